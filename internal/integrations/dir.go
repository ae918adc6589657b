package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cmdvrp/internal/instance"
)

// DirSource serves the .dat and .json instances found in a directory. The
// reference of a file is its base name without extension. Files describing
// more than MaxNodes nodes are refused; zero means no limit.
type DirSource struct {
	Dir      string
	MaxNodes int
}

func (s DirSource) Name() string { return "dir:" + s.Dir }

func (s DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".dat" && ext != ".json" {
			continue
		}
		ref := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Load prefers ref.dat over ref.json. References containing path separators
// are rejected.
func (s DirSource) Load(ctx context.Context, ref string) (*instance.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInstance, ref)
	}
	dat := filepath.Join(s.Dir, ref+".dat")
	if _, err := os.Stat(dat); err == nil {
		return instance.ParseDATFile(dat, s.MaxNodes)
	}
	js := filepath.Join(s.Dir, ref+".json")
	if _, err := os.Stat(js); err == nil {
		return LoadJSONFile(js, s.MaxNodes)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownInstance, ref)
}

// LoadJSONFile reads an instance in its JSON form. A missing name is filled
// in from the file name.
func LoadJSONFile(path string, maxNodes int) (*instance.Instance, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d instance.Data
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	in, err := instance.NewLimit(d, maxNodes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

// LoadFile picks the parser from the file extension.
func LoadFile(path string, maxNodes int) (*instance.Instance, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSONFile(path, maxNodes)
	}
	return instance.ParseDATFile(path, maxNodes)
}
