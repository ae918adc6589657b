package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmdvrp/internal/instance"
)

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join("..", "instance", "testdata", "small.dat"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "small.dat"), src, 0o644))

	in, err := instance.New(instance.Data{
		NumDepots: 1, NumCustomers: 1,
		DepotCapacities: []float64{5}, DepotOpeningCosts: []float64{1}, CustomerDemands: []float64{2},
		VehicleCapacity: 4,
		DistanceMatrix:  [][]float64{{0, 3}, {3, 0}},
	})
	require.NoError(t, err)
	b, err := json.Marshal(in)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pair.json"), b, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	return dir
}

func TestDirSourceList(t *testing.T) {
	s := DirSource{Dir: writeFixtures(t)}
	refs, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pair", "small"}, refs)
}

func TestDirSourceLoad(t *testing.T) {
	s := DirSource{Dir: writeFixtures(t)}
	ctx := context.Background()

	in, err := s.Load(ctx, "small")
	require.NoError(t, err)
	assert.Equal(t, "small", in.Name())
	assert.Equal(t, 2, in.NumDepots())
	assert.Equal(t, 3, in.NumCustomers())

	in, err = s.Load(ctx, "pair")
	require.NoError(t, err)
	assert.Equal(t, "pair", in.Name())
	assert.Equal(t, 3.0, in.Distance(0, 1))

	for _, ref := range []string{"missing", "../small", "", ".hidden"} {
		_, err := s.Load(ctx, ref)
		assert.True(t, errors.Is(err, ErrUnknownInstance), "ref %q: %v", ref, err)
	}
}

func TestLoadFileByExtension(t *testing.T) {
	dir := writeFixtures(t)
	in, err := LoadFile(filepath.Join(dir, "pair.json"), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, in.NumCustomers())

	in, err = LoadFile(filepath.Join(dir, "small.dat"), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, in.NumCustomers())
}

func TestDirSourceMaxNodes(t *testing.T) {
	s := DirSource{Dir: writeFixtures(t), MaxNodes: 4}
	ctx := context.Background()

	_, err := s.Load(ctx, "small")
	assert.True(t, errors.Is(err, instance.ErrTooLarge), "got %v", err)

	in, err := s.Load(ctx, "pair")
	require.NoError(t, err)
	assert.Equal(t, 2, in.NumNodes())

	_, err = LoadFile(filepath.Join(s.Dir, "pair.json"), 1)
	assert.True(t, errors.Is(err, instance.ErrTooLarge), "got %v", err)
}
