package formulation

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Variant names one of the supported formulations.
type Variant string

const (
	// SCFHub is the single-commodity-flow form with per-depot hub flow.
	SCFHub Variant = "scf-hub"
	// SCFRoute is the single-commodity-flow form carrying demand along routes.
	SCFRoute Variant = "scf-route"
	// CDA ties customers to depots with fractional assignment variables.
	CDA Variant = "cda"
)

// Variants lists every supported variant in a stable order.
func Variants() []Variant { return []Variant{SCFHub, SCFRoute, CDA} }

// ParseVariant accepts the canonical tags case-insensitively, with '_' for '-'.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	for _, known := range Variants() {
		if v == known {
			return v, nil
		}
	}
	return "", configErr("variant", "unknown variant %q", s)
}

// Subtour selects how cycles that avoid every depot are excluded.
type Subtour string

const (
	// SubtourForbid forces every customer-customer arc to zero.
	SubtourForbid Subtour = "forbid"
	// SubtourMTZ adds Miller-Tucker-Zemlin load constraints.
	SubtourMTZ Subtour = "mtz"
	// SubtourNone adds nothing.
	SubtourNone Subtour = "none"
)

// ParseSubtour normalises s to a known strategy. The empty string is kept
// and means the variant's default; anything else unknown is a
// *ConfigurationError on the subtour field.
func ParseSubtour(s string) (Subtour, error) {
	switch t := Subtour(strings.ToLower(strings.TrimSpace(s))); t {
	case SubtourForbid, SubtourMTZ, SubtourNone:
		return t, nil
	case "":
		return "", nil
	}
	return "", configErr("subtour", "unknown subtour strategy %q", s)
}

// DefaultSubtour is the strategy used when none is requested.
func DefaultSubtour(v Variant) Subtour {
	if v == CDA {
		return SubtourMTZ
	}
	return SubtourForbid
}

type options struct {
	subtour Subtour
	pruned  bool
	log     logrus.FieldLogger
}

// Option customises Build.
type Option func(*options)

// WithSubtour overrides the variant's default subtour strategy. The empty
// strategy keeps the default.
func WithSubtour(s Subtour) Option { return func(o *options) { o.subtour = s } }

// WithPrunedArcs restricts the arc universe to depot<->customer arcs instead of
// declaring the unused arcs and forcing them to zero. Requires SubtourForbid.
func WithPrunedArcs() Option { return func(o *options) { o.pruned = true } }

// WithLogger sets the logger receiving build progress at debug level.
func WithLogger(l logrus.FieldLogger) Option { return func(o *options) { o.log = l } }
