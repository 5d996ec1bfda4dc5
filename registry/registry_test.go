// registry_test.go - Tests fuer die Architektur-Registry
package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moliushang/gqcnn/arch"
)

func testGraph(t *testing.T) *arch.GraphDescription {
	t.Helper()
	g, err := arch.Compile(arch.Input{
		ImHeight: 32, ImWidth: 32, ImChannels: 1, PoseDim: 1,
		Streams: []arch.RawStream{
			{Name: arch.StreamImage, Layers: []arch.RawLayer{
				{Name: "conv1_1", Attrs: map[string]any{"type": "conv", "filt_dim": 9, "num_filt": 8, "pool_size": 2, "pool_stride": 2}},
			}},
			{Name: arch.StreamPose, Layers: []arch.RawLayer{
				{Name: "pc1", Attrs: map[string]any{"type": "pc", "out_size": 4}},
			}},
			{Name: arch.StreamMerge, Layers: []arch.RawLayer{
				{Name: "fc3", Attrs: map[string]any{"type": "fc_merge", "out_size": 64}},
				{Name: "fc4", Attrs: map[string]any{"type": "fc", "out_size": 2, "final_layer": true}},
			}},
		},
	})
	require.NoError(t, err)
	return g
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveGetDelete(t *testing.T) {
	s := openTestStore(t)
	g := testGraph(t)

	rec := &Record{
		Name:        "dexnet2",
		GripperMode: "parallel_jaw",
		OutputSize:  g.OutputSize,
		Source:      []byte("gqcnn: {}"),
		Graph:       g,
	}
	require.NoError(t, s.Save(rec))
	require.NotEmpty(t, rec.ID)

	// Per Name und per ID auffindbar
	byName, err := s.Get("dexnet2")
	require.NoError(t, err)
	require.Equal(t, rec.ID, byName.ID)
	require.Equal(t, 2, byName.Graph.OutputSize)

	byID, err := s.Get(rec.ID)
	require.NoError(t, err)
	require.Equal(t, "dexnet2", byID.Name)

	require.NoError(t, s.Delete("dexnet2"))
	_, err = s.Get("dexnet2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveUeberschreibtNamen(t *testing.T) {
	s := openTestStore(t)
	g := testGraph(t)

	require.NoError(t, s.Save(&Record{Name: "dexnet2", OutputSize: 2, Source: []byte("a"), Graph: g}))
	require.NoError(t, s.Save(&Record{Name: "dexnet2", OutputSize: 2, Source: []byte("b"), Graph: g}))

	rec, err := s.Get("dexnet2")
	require.NoError(t, err)
	require.Equal(t, []byte("b"), rec.Source)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestGetUnbekannt(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("fehlt")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete("fehlt"), ErrNotFound)
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	g := testGraph(t)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(&Record{Name: name, OutputSize: 2, Source: []byte("x"), Graph: g}))
	}
	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	// List laedt weder Quelle noch Graph
	require.Nil(t, list[0].Graph)
}
