// Package integrations loads instances from external sources by reference.
package integrations

import (
	"context"
	"errors"

	"cmdvrp/internal/instance"
)

var ErrUnknownInstance = errors.New("integrations: unknown instance")

// Source resolves instance references to parsed instances.
type Source interface {
	Name() string
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, ref string) (*instance.Instance, error)
}
