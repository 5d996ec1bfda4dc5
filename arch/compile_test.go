// compile_test.go - Tests fuer Stream Builder, Merger und Compiler
// Deckt das Referenzszenario, Determinismus und die Fehlertaxonomie ab
package arch

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// conv - Kurzform fuer einen rohen conv-Eintrag
func conv(name string, filt, num, pool, stride int) RawLayer {
	return RawLayer{Name: name, Attrs: map[string]any{
		"type":        "conv",
		"filt_dim":    filt,
		"num_filt":    num,
		"pool_size":   pool,
		"pool_stride": stride,
	}}
}

func fc(name string, out int, final bool) RawLayer {
	attrs := map[string]any{"type": "fc", "out_size": out}
	if final {
		attrs["final_layer"] = true
	}
	return RawLayer{Name: name, Attrs: attrs}
}

// referenceInput - das Referenzszenario: zwei Faltungen auf dem Bild,
// ein Pose-Layer, Merge auf 64 und finaler fc auf 2
func referenceInput() Input {
	return Input{
		ImHeight:   32,
		ImWidth:    32,
		ImChannels: 1,
		PoseDim:    1,
		Streams: []RawStream{
			{Name: StreamImage, Layers: []RawLayer{
				conv("conv1_1", 9, 8, 2, 2),
				conv("conv1_2", 3, 8, 2, 2),
			}},
			{Name: StreamPose, Layers: []RawLayer{
				{Name: "pc1", Attrs: map[string]any{"type": "pc", "out_size": 4}},
			}},
			{Name: StreamMerge, Layers: []RawLayer{
				{Name: "fc3", Attrs: map[string]any{"type": "fc_merge", "out_size": 64}},
				fc("fc4", 2, true),
			}},
		},
	}
}

func TestCompileReferenzszenario(t *testing.T) {
	g, err := Compile(referenceInput())
	if err != nil {
		t.Fatalf("Compile() Fehler = %v, erwartet nil", err)
	}

	if g.OutputSize != 2 {
		t.Errorf("OutputSize = %d, erwartet 2", g.OutputSize)
	}

	// VALID-Faltung: 32 -> 24 -> 12 -> 10 -> 5
	im, ok := g.Stream(StreamImage)
	if !ok {
		t.Fatalf("im_stream nicht im Kompilat")
	}
	want := Shape{Height: 5, Width: 5, Channels: 8}
	if im.Terminal().Output != want {
		t.Errorf("Terminal im_stream = %v, erwartet %v", im.Terminal().Output, want)
	}

	// Merge fusioniert 5*5*8 + 4 = 204 Eingaenge
	if g.Merge.InputSize != 204 {
		t.Errorf("Merge.InputSize = %d, erwartet 204", g.Merge.InputSize)
	}
	wantInputs := []string{StreamImage, StreamPose}
	if diff := cmp.Diff(wantInputs, g.Merge.Inputs); diff != "" {
		t.Errorf("Merge.Inputs Differenz (-erwartet +erhalten):\n%s", diff)
	}
}

func TestCompileDeterminismus(t *testing.T) {
	// Zweimal kompilieren liefert strukturell identische Kompilate
	a, err := Compile(referenceInput())
	if err != nil {
		t.Fatalf("erster Lauf: %v", err)
	}
	b, err := Compile(referenceInput())
	if err != nil {
		t.Fatalf("zweiter Lauf: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Kompilate unterscheiden sich (-a +b):\n%s", diff)
	}
}

func TestCompileReihenfolge(t *testing.T) {
	// Deklarationsreihenfolge = Ausfuehrungsreihenfolge
	g, err := Compile(referenceInput())
	if err != nil {
		t.Fatalf("Compile() Fehler = %v", err)
	}
	im, _ := g.Stream(StreamImage)
	gotNames := []string{im.Layers[0].Name, im.Layers[1].Name}
	if gotNames[0] != "conv1_1" || gotNames[1] != "conv1_2" {
		t.Errorf("Layer-Reihenfolge = %v, erwartet [conv1_1 conv1_2]", gotNames)
	}
}

func TestCompileZustandsmaschine(t *testing.T) {
	c := NewCompiler()
	if c.State() != StateUnbuilt {
		t.Fatalf("State = %v, erwartet %v", c.State(), StateUnbuilt)
	}
	if _, err := c.Compile(referenceInput()); err != nil {
		t.Fatalf("Compile() Fehler = %v", err)
	}
	if c.State() != StateBuilt {
		t.Errorf("State = %v, erwartet %v", c.State(), StateBuilt)
	}
	// Built ist terminal: ein zweiter Lauf wird abgelehnt
	if _, err := c.Compile(referenceInput()); !errors.Is(err, ErrCompilerSpent) {
		t.Errorf("zweiter Lauf: Fehler = %v, erwartet ErrCompilerSpent", err)
	}

	f := NewCompiler()
	bad := referenceInput()
	bad.Streams[2].Layers = bad.Streams[2].Layers[:1]
	if _, err := f.Compile(bad); err == nil {
		t.Fatalf("Compile() ohne final_layer erfolgreich, erwartet Fehler")
	}
	if f.State() != StateFailed {
		t.Errorf("State = %v, erwartet %v", f.State(), StateFailed)
	}
}

func TestCompileFehlertaxonomie(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		want   error
	}{
		{
			name: "Doppelter Layer-Name im Stream",
			mutate: func(in *Input) {
				in.Streams[0].Layers = []RawLayer{
					conv("conv1_1", 9, 8, 2, 2),
					conv("conv1_1", 3, 8, 2, 2),
				}
			},
			want: ErrDuplicateLayerName,
		},
		{
			name: "Leerer Stream",
			mutate: func(in *Input) {
				in.Streams[1].Layers = nil
			},
			want: ErrEmptyStream,
		},
		{
			name: "Kein fc_merge Layer",
			mutate: func(in *Input) {
				in.Streams[2].Layers = []RawLayer{fc("fc4", 2, true)}
			},
			want: ErrMissingMergeLayer,
		},
		{
			name: "Kein Merge-Stream deklariert",
			mutate: func(in *Input) {
				in.Streams = in.Streams[:2]
			},
			want: ErrMissingMergeLayer,
		},
		{
			name: "Mehr als ein fc_merge Layer",
			mutate: func(in *Input) {
				in.Streams[2].Layers = []RawLayer{
					{Name: "fc3", Attrs: map[string]any{"type": "fc_merge", "out_size": 64}},
					{Name: "fc3b", Attrs: map[string]any{"type": "fc_merge", "out_size": 32}},
					fc("fc4", 2, true),
				}
			},
			want: ErrMultipleMergeLayers,
		},
		{
			name: "Kein final_layer",
			mutate: func(in *Input) {
				in.Streams[2].Layers = []RawLayer{
					{Name: "fc3", Attrs: map[string]any{"type": "fc_merge", "out_size": 64}},
					fc("fc4", 2, false),
				}
			},
			want: ErrMissingFinalLayer,
		},
		{
			name: "Zwei final_layer",
			mutate: func(in *Input) {
				in.Streams[2].Layers = []RawLayer{
					{Name: "fc3", Attrs: map[string]any{"type": "fc_merge", "out_size": 64}},
					fc("fc4", 16, true),
					fc("fc5", 2, true),
				}
			},
			want: ErrMultipleFinalLayers,
		},
		{
			// Die Zaehlpruefung geht der Positionspruefung vor: auch wenn
			// kein final_layer terminal liegt, zaehlt die Mehrfachmarkierung.
			name: "Zwei final_layer ohne terminalen Abschluss",
			mutate: func(in *Input) {
				in.Streams[2].Layers = []RawLayer{
					{Name: "fc3", Attrs: map[string]any{"type": "fc_merge", "out_size": 64}},
					fc("fc4", 16, true),
					fc("fc5", 8, true),
					fc("fc6", 2, false),
				}
			},
			want: ErrMultipleFinalLayers,
		},
		{
			name: "Merge referenziert nicht gebauten Stream",
			mutate: func(in *Input) {
				in.Streams[2].Layers[0].Attrs["input_streams"] = []string{StreamImage, StreamGripper}
			},
			want: ErrUnresolvedStreamReference,
		},
		{
			name: "Unbekannter Stream-Name",
			mutate: func(in *Input) {
				in.Streams = append(in.Streams, RawStream{Name: "depth_stream", Layers: []RawLayer{fc("fc9", 8, false)}})
			},
			want: ErrUnknownStream,
		},
		{
			name: "final_layer ausserhalb des Merge-Streams",
			mutate: func(in *Input) {
				in.Streams[1].Layers = []RawLayer{
					{Name: "pc1", Attrs: map[string]any{"type": "pc", "out_size": 4, "final_layer": true}},
				}
			},
			want: ErrInvalidValue,
		},
		{
			name: "fc_merge nicht erster Layer",
			mutate: func(in *Input) {
				in.Streams[2].Layers = []RawLayer{
					fc("fc2", 32, false),
					{Name: "fc3", Attrs: map[string]any{"type": "fc_merge", "out_size": 64}},
					fc("fc4", 2, true),
				}
			},
			want: ErrInvalidValue,
		},
		{
			name: "Faltung reduziert Bild unter 1x1",
			mutate: func(in *Input) {
				in.Streams[0].Layers = []RawLayer{conv("conv1_1", 33, 8, 2, 2)}
			},
			want: ErrInvalidValue,
		},
		{
			name: "Winkel-Bins passen nicht zur Ausgabegroesse",
			mutate: func(in *Input) {
				in.AngularBins = 8 // verlangt out_size 16, final ist 2
			},
			want: ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := referenceInput()
			tt.mutate(&in)
			_, err := Compile(in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Compile() Fehler = %v, erwartet %v", err, tt.want)
			}
		})
	}
}

func TestCompileGripperStream(t *testing.T) {
	in := referenceInput()
	in.GripperDim = 2
	in.Streams = append(in.Streams[:2:2], RawStream{
		Name: StreamGripper,
		Layers: []RawLayer{
			{Name: "gc1", Attrs: map[string]any{"type": "gc", "out_size": 8}},
		},
	}, in.Streams[2])

	g, err := Compile(in)
	if err != nil {
		t.Fatalf("Compile() Fehler = %v", err)
	}
	// 200 (Bild) + 4 (Pose) + 8 (Gripper)
	if g.Merge.InputSize != 212 {
		t.Errorf("Merge.InputSize = %d, erwartet 212", g.Merge.InputSize)
	}
	wantInputs := []string{StreamImage, StreamPose, StreamGripper}
	if diff := cmp.Diff(wantInputs, g.Merge.Inputs); diff != "" {
		t.Errorf("Merge.Inputs Differenz:\n%s", diff)
	}
}

func TestCompileAngularBins(t *testing.T) {
	in := referenceInput()
	in.AngularBins = 8
	in.Streams[2].Layers = []RawLayer{
		{Name: "fc3", Attrs: map[string]any{"type": "fc_merge", "out_size": 64}},
		fc("fc4", 16, true), // 2 Logits pro Bin
	}
	g, err := Compile(in)
	if err != nil {
		t.Fatalf("Compile() Fehler = %v", err)
	}
	if g.OutputSize != 16 {
		t.Errorf("OutputSize = %d, erwartet 16", g.OutputSize)
	}
}
