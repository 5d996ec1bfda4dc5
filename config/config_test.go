// config_test.go - Tests fuer Laden, Defaults, Validierung und die
// ordnungserhaltende Dekodierung der architecture-Sektion
package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/moliushang/gqcnn/arch"
)

const minimalYAML = `
dataset_dir: data/training/example
train_pct: 0.8
train_batch_size: 64
val_batch_size: 64
num_epochs: 5
eval_frequency: 0.5
save_frequency: 0.5
log_frequency: 10
loss: sparse
optimizer: momentum
training_mode: classification
base_lr: 0.01
decay_step_multiplier: 0.66
decay_rate: 0.95
momentum_rate: 0.9
metric_thresh: 0.5
seed: 6122
gqcnn:
  im_height: 32
  im_width: 32
  im_channels: 1
  gripper_mode: parallel_jaw
  architecture:
    im_stream:
      conv1_1: {type: conv, filt_dim: 9, num_filt: 8, pool_size: 2, pool_stride: 2}
      conv1_2: {type: conv, filt_dim: 3, num_filt: 8, pool_size: 2, pool_stride: 2}
    pose_stream:
      pc1: {type: pc, out_size: 4}
    merge_stream:
      fc3: {type: fc_merge, out_size: 64}
      fc4: {type: fc, out_size: 2, final_layer: true}
`

func TestParseDefaults(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse() Fehler = %v", err)
	}
	if c.SplitName != DefaultSplitName {
		t.Errorf("SplitName = %q, erwartet %q", c.SplitName, DefaultSplitName)
	}
	if c.TotalPct != 1.0 {
		t.Errorf("TotalPct = %g, erwartet 1.0", c.TotalPct)
	}
	if c.ImageFieldName != DefaultImageField || c.PoseFieldName != DefaultPoseField {
		t.Errorf("Feldnamen = %q/%q, erwartet Defaults", c.ImageFieldName, c.PoseFieldName)
	}
}

func TestArchitectureReihenfolge(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse() Fehler = %v", err)
	}
	streams := c.GQCNN.Architecture.Streams
	wantStreams := []string{"im_stream", "pose_stream", "merge_stream"}
	if len(streams) != len(wantStreams) {
		t.Fatalf("Streams = %d, erwartet %d", len(streams), len(wantStreams))
	}
	for i, want := range wantStreams {
		if streams[i].Name != want {
			t.Errorf("Stream[%d] = %q, erwartet %q", i, streams[i].Name, want)
		}
	}
	// Layer-Reihenfolge innerhalb des Streams bleibt Dokumentreihenfolge
	im := streams[0]
	if im.Layers[0].Name != "conv1_1" || im.Layers[1].Name != "conv1_2" {
		t.Errorf("Layer-Reihenfolge = [%s %s], erwartet [conv1_1 conv1_2]", im.Layers[0].Name, im.Layers[1].Name)
	}
}

func TestCompileAusKonfiguration(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse() Fehler = %v", err)
	}
	g, err := c.Compile()
	if err != nil {
		t.Fatalf("Compile() Fehler = %v", err)
	}
	if g.OutputSize != 2 {
		t.Errorf("OutputSize = %d, erwartet 2", g.OutputSize)
	}
}

func TestValidateFehler(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		want    error
	}{
		{
			name:    "Unbekannter Optimizer",
			replace: [2]string{"optimizer: momentum", "optimizer: sgd"},
			want:    ErrUnsupportedOptimizer,
		},
		{
			name:    "Unbekannter Loss",
			replace: [2]string{"loss: sparse", "loss: hinge"},
			want:    ErrUnsupportedLoss,
		},
		{
			name:    "Unbekannter Training-Modus",
			replace: [2]string{"training_mode: classification", "training_mode: ranking"},
			want:    ErrUnsupportedTrainingMode,
		},
		{
			name:    "train_pct ausserhalb (0,1]",
			replace: [2]string{"train_pct: 0.8", "train_pct: 1.5"},
			want:    ErrInvalidField,
		},
		{
			name:    "base_lr nicht positiv",
			replace: [2]string{"base_lr: 0.01", "base_lr: 0"},
			want:    ErrInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := strings.Replace(minimalYAML, tt.replace[0], tt.replace[1], 1)
			_, err := Parse([]byte(src))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse() Fehler = %v, erwartet %v", err, tt.want)
			}
		})
	}
}

func TestUnbekannterGripperModus(t *testing.T) {
	src := strings.Replace(minimalYAML, "gripper_mode: parallel_jaw", "gripper_mode: magnetic", 1)
	if _, err := Parse([]byte(src)); err == nil {
		t.Fatalf("Parse() mit unbekanntem Gripper-Modus erfolgreich, erwartet Fehler")
	}
}

func TestLoadBeispielKonfiguration(t *testing.T) {
	// Die mitgelieferte Beispiel-Konfiguration muss laden und kompilieren
	c, err := Load("../configs/train_dexnet_2.0.yaml")
	if err != nil {
		t.Fatalf("Load() Fehler = %v", err)
	}
	g, err := c.Compile()
	if err != nil {
		t.Fatalf("Compile() Fehler = %v", err)
	}
	if g.OutputSize != 2 {
		t.Errorf("OutputSize = %d, erwartet 2", g.OutputSize)
	}
	// SAME-Faltungen mit zwei 2x2-Poolings: 32 -> 16 -> 8, dann fc 1024
	im, ok := g.Stream(arch.StreamImage)
	if !ok {
		t.Fatalf("im_stream nicht im Kompilat")
	}
	if got := im.Terminal().Output.Flat(); got != 1024 {
		t.Errorf("Terminal im_stream = %d, erwartet 1024", got)
	}
}

func TestFehlerhafteArchitekturMeldetFundstelle(t *testing.T) {
	src := strings.Replace(minimalYAML, "type: conv, filt_dim: 9,", "type: conv,", 1)
	c, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() Fehler = %v", err)
	}
	_, err = c.Compile()
	if !errors.Is(err, arch.ErrMissingAttribute) {
		t.Fatalf("Compile() Fehler = %v, erwartet ErrMissingAttribute", err)
	}
	var ce *arch.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("Fehler ist kein *CompileError: %v", err)
	}
	if ce.Stream != "im_stream" || ce.Layer != "conv1_1" || ce.Attribute != "filt_dim" {
		t.Errorf("Fundstelle = %q/%q/%q, erwartet im_stream/conv1_1/filt_dim", ce.Stream, ce.Layer, ce.Attribute)
	}
}
