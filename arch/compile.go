// compile.go - Architecture Compiler: orchestriert Parser, Stream Builder
// und Merger ueber die volle architecture-Sektion
// Hauptfunktionen: Compile, Compiler.Compile
package arch

import (
	"errors"
	"fmt"
	"log/slog"
)

// =============================================================================
// Compiler-Zustand
// =============================================================================

// State ist der Zustand eines Compiler-Durchlaufs.
// Unbuilt -> Parsing -> Merging -> Built, oder Unbuilt -> ... -> Failed.
// Built und Failed sind terminal; ein Failed-Compiler wird verworfen und
// der Aufrufer startet mit korrigierter Konfiguration neu.
type State int

const (
	StateUnbuilt State = iota
	StateParsing
	StateMerging
	StateBuilt
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateParsing:
		return "parsing"
	case StateMerging:
		return "merging"
	case StateBuilt:
		return "built"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrCompilerSpent - ein Compiler kompiliert genau einmal
var ErrCompilerSpent = errors.New("arch: compiler is not in unbuilt state")

// =============================================================================
// Eingabe
// =============================================================================

// Input ist die vollstaendige Eingabe eines Kompilierlaufs: die rohe
// architecture-Sektion in Deklarationsreihenfolge plus die skalaren
// Eingabedimensionen, die die Konfigurationsschicht beisteuert.
type Input struct {
	Streams []RawStream

	// Bildeingabe des Image-Streams
	ImHeight   int
	ImWidth    int
	ImChannels int

	// PoseDim ist die Dimension des Pose-Vektors (aus dem Gripper-Modus).
	PoseDim int

	// GripperDim ist die Dimension des Gripper-Vektors; 0 wenn die
	// Architektur keinen Gripper-Stream fusioniert.
	GripperDim int

	// AngularBins > 0 erzwingt OutputSize == 2*AngularBins, da das
	// Training pro Winkel-Bin zwei Logits maskiert.
	AngularBins int
}

// =============================================================================
// Compiler
// =============================================================================

// Compiler baut aus einer Input genau eine unveraenderliche
// GraphDescription. Kein Zustand wird zwischen Instanzen geteilt;
// parallele Kompilierungen brauchen keine Synchronisation.
type Compiler struct {
	state State
	graph *GraphDescription
	err   error
}

func NewCompiler() *Compiler {
	return &Compiler{state: StateUnbuilt}
}

// State liefert den aktuellen Zustand.
func (c *Compiler) State() State {
	return c.state
}

// Err liefert den Fehler eines fehlgeschlagenen Laufs.
func (c *Compiler) Err() error {
	return c.err
}

// Graph liefert das Kompilat eines erfolgreichen Laufs.
func (c *Compiler) Graph() *GraphDescription {
	return c.graph
}

// Compile fuehrt den Kompilierlauf aus. Der erste strukturelle Fehler
// bricht ab (fail fast); eine fehlerhafte Architektur kann nicht sicher
// ausgefuehrt werden, Teilrekonstruktion waere irrefuehrend.
func (c *Compiler) Compile(in Input) (*GraphDescription, error) {
	if c.state != StateUnbuilt {
		return nil, fmt.Errorf("%w: %s", ErrCompilerSpent, c.state)
	}

	g, err := c.run(in)
	if err != nil {
		c.state = StateFailed
		c.err = err
		return nil, err
	}
	c.state = StateBuilt
	c.graph = g
	return g, nil
}

func (c *Compiler) run(in Input) (*GraphDescription, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	c.state = StateParsing
	g := &GraphDescription{}
	var mergeRaw []RawLayer
	var haveMerge bool
	seen := make(map[string]bool, len(in.Streams))

	for _, rs := range in.Streams {
		if seen[rs.Name] {
			return nil, &CompileError{
				Stream: rs.Name,
				Msg:    "stream declared twice",
				Err:    ErrInvalidValue,
			}
		}
		seen[rs.Name] = true

		kind, ok := streamKinds[rs.Name]
		if !ok {
			return nil, &CompileError{
				Stream: rs.Name,
				Msg:    fmt.Sprintf("recognized streams are %s, %s, %s, %s", StreamImage, StreamPose, StreamGripper, StreamMerge),
				Err:    ErrUnknownStream,
			}
		}
		if kind == KindMerge {
			mergeRaw = rs.Layers
			haveMerge = true
			continue
		}

		input, err := streamInput(kind, in)
		if err != nil {
			return nil, err
		}
		built, err := buildStream(rs.Name, kind, input, rs.Layers)
		if err != nil {
			return nil, err
		}
		// final_layer gehoert in den Merge-Stream, nirgendwo sonst.
		for _, cl := range built.Layers {
			if cl.FinalLayer {
				return nil, &CompileError{
					Stream:    rs.Name,
					Layer:     cl.Name,
					Attribute: "final_layer",
					Msg:       "final layer must belong to the merge stream",
					Err:       ErrInvalidValue,
				}
			}
		}
		g.Streams = append(g.Streams, built)
		slog.Debug("built stream", "stream", built.Name, "layers", len(built.Layers), "terminal", built.Terminal().Output.String())
	}

	c.state = StateMerging
	if !haveMerge {
		return nil, compileErr(ErrMissingMergeLayer, "", "")
	}
	merge, outSize, err := buildMerge(g.Streams, mergeRaw)
	if err != nil {
		return nil, err
	}
	g.Merge = merge
	g.OutputSize = outSize

	if in.AngularBins > 0 && outSize != 2*in.AngularBins {
		return nil, &CompileError{
			Stream:    StreamMerge,
			Layer:     merge.Layers[len(merge.Layers)-1].Name,
			Attribute: "out_size",
			Msg:       fmt.Sprintf("angular training with %d bins requires out_size %d, got %d", in.AngularBins, 2*in.AngularBins, outSize),
			Err:       ErrInvalidValue,
		}
	}

	slog.Debug("architecture built", "streams", len(g.Streams), "layers", g.NumLayers(), "output_size", g.OutputSize)
	return g, nil
}

// Compile ist die Einweg-Kurzform ohne sichtbaren Compiler.
func Compile(in Input) (*GraphDescription, error) {
	return NewCompiler().Compile(in)
}

// =============================================================================
// Eingabe-Validierung
// =============================================================================

func validateInput(in Input) error {
	if len(in.Streams) == 0 {
		return compileErr(ErrMissingMergeLayer, "", "")
	}
	if hasStream(in, StreamImage) {
		for _, dim := range []struct {
			attr string
			v    int
		}{
			{"im_height", in.ImHeight},
			{"im_width", in.ImWidth},
			{"im_channels", in.ImChannels},
		} {
			if dim.v <= 0 {
				return &CompileError{
					Stream:    StreamImage,
					Attribute: dim.attr,
					Msg:       fmt.Sprintf("must be > 0, got %d", dim.v),
					Err:       ErrInvalidValue,
				}
			}
		}
	}
	if hasStream(in, StreamPose) && in.PoseDim <= 0 {
		return &CompileError{
			Stream:    StreamPose,
			Attribute: "pose_dim",
			Msg:       fmt.Sprintf("must be > 0, got %d", in.PoseDim),
			Err:       ErrInvalidValue,
		}
	}
	if hasStream(in, StreamGripper) && in.GripperDim <= 0 {
		return &CompileError{
			Stream:    StreamGripper,
			Attribute: "gripper_dim",
			Msg:       fmt.Sprintf("must be > 0, got %d", in.GripperDim),
			Err:       ErrInvalidValue,
		}
	}
	if in.AngularBins < 0 {
		return &CompileError{
			Attribute: "angular_bins",
			Msg:       fmt.Sprintf("must be >= 0, got %d", in.AngularBins),
			Err:       ErrInvalidValue,
		}
	}
	return nil
}

func hasStream(in Input, name string) bool {
	for _, rs := range in.Streams {
		if rs.Name == name {
			return true
		}
	}
	return false
}

func streamInput(kind StreamKind, in Input) (Shape, error) {
	switch kind {
	case KindImage:
		return Shape{Height: in.ImHeight, Width: in.ImWidth, Channels: in.ImChannels}, nil
	case KindPose:
		return flatShape(in.PoseDim), nil
	case KindGripper:
		return flatShape(in.GripperDim), nil
	}
	return Shape{}, fmt.Errorf("arch: no input shape for stream kind %d", kind)
}
