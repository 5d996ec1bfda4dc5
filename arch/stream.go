// stream.go - Stream Builder: ordnet rohe Architektur-Eintraege eines
// Streams zu einer sequentiellen Pipeline mit Formpropagation
// Hauptfunktionen: buildStream, StreamKind.allows
package arch

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// =============================================================================
// Rohe Eingabeform (von der Konfigurationsschicht geliefert)
// =============================================================================

// RawLayer ist ein unvalidierter Architektur-Eintrag.
type RawLayer struct {
	Name  string
	Attrs map[string]any
}

// RawStream ist ein Stream in Deklarationsreihenfolge.
type RawStream struct {
	Name   string
	Layers []RawLayer
}

// =============================================================================
// Stream-Arten
// =============================================================================

// StreamKind typisiert einen Stream nach seiner Eingabequelle.
type StreamKind int

const (
	// KindImage - Tiefenbild-Tensor
	KindImage StreamKind = iota
	// KindPose - Pose-Vektor (Dimension haengt am Gripper-Modus)
	KindPose
	// KindGripper - Gripper-Parameter-Vektor
	KindGripper
	// KindMerge - Fusionspfad, faehig final_layer zu tragen
	KindMerge
)

// Erkannte Stream-Namen der Architektur-Sektion.
const (
	StreamImage   = "im_stream"
	StreamPose    = "pose_stream"
	StreamGripper = "gripper_stream"
	StreamMerge   = "merge_stream"
)

// streamKinds - Zuordnung Name -> Art; andere Namen sind Fehler
var streamKinds = map[string]StreamKind{
	StreamImage:   KindImage,
	StreamPose:    KindPose,
	StreamGripper: KindGripper,
	StreamMerge:   KindMerge,
}

// allows meldet, ob ein Layer-Typ in dieser Stream-Art zulaessig ist.
func (k StreamKind) allows(t LayerType) bool {
	switch k {
	case KindImage:
		return t == LayerConv || t == LayerResidual || t == LayerSpatialTransformer || t == LayerFC
	case KindPose:
		return t == LayerPC || t == LayerFC
	case KindGripper:
		return t == LayerGC || t == LayerFC
	case KindMerge:
		return t == LayerFCMerge || t == LayerFC
	}
	return false
}

// =============================================================================
// buildStream
// =============================================================================

// buildStream validiert die Eintraege eines Streams in Deklarationsreihenfolge
// und propagiert die Tensorform von input durch jeden Layer. Die Reihenfolge
// wird nie umsortiert: sie ist die Ausfuehrungsreihenfolge, die der Autor der
// Konfiguration festgelegt hat.
//
// Fuer den Merge-Stream wird buildStream nicht direkt benutzt; siehe merge.go.
func buildStream(name string, kind StreamKind, input Shape, raw []RawLayer) (StreamGraph, error) {
	if len(raw) == 0 {
		return StreamGraph{}, compileErr(ErrEmptyStream, name, "")
	}

	seen := orderedmap.New[string, *LayerDescriptor]()
	out := StreamGraph{Name: name, Input: input}
	shape := input

	for _, rl := range raw {
		d, err := ParseLayer(name, rl.Name, rl.Attrs)
		if err != nil {
			return StreamGraph{}, err
		}
		if _, dup := seen.Set(rl.Name, d); dup {
			return StreamGraph{}, compileErr(ErrDuplicateLayerName, name, rl.Name)
		}
		if !kind.allows(d.Type) {
			return StreamGraph{}, &CompileError{
				Stream:    name,
				Layer:     rl.Name,
				Attribute: "type",
				Msg:       fmt.Sprintf("layer type %q not allowed in %s", d.Type, name),
				Err:       ErrInvalidValue,
			}
		}

		shape, err = propagate(name, d, shape)
		if err != nil {
			return StreamGraph{}, err
		}
		out.Layers = append(out.Layers, CompiledLayer{LayerDescriptor: *d, Output: shape})
	}
	return out, nil
}

// =============================================================================
// Formpropagation
// =============================================================================

// propagate berechnet die Ausgabeform eines Layers aus seiner Eingabeform.
func propagate(stream string, d *LayerDescriptor, in Shape) (Shape, error) {
	switch d.Type {
	case LayerConv:
		return propagateConv(stream, d, in)

	case LayerResidual:
		// Residual-Bloecke sind formtreu in H/W, die Kanalzahl folgt num_filt.
		if in.Height == 1 && in.Width == 1 {
			return Shape{}, spatialAfterFlat(stream, d)
		}
		return Shape{Height: in.Height, Width: in.Width, Channels: d.NumFilt}, nil

	case LayerSpatialTransformer:
		// Resampling veraendert die Form nicht, nur den Bildinhalt.
		if in.Height == 1 && in.Width == 1 {
			return Shape{}, spatialAfterFlat(stream, d)
		}
		return in, nil

	case LayerFC, LayerPC, LayerGC, LayerFCMerge:
		return flatShape(d.OutSize), nil
	}
	return Shape{}, compileErr(ErrUnknownLayerType, stream, d.Name)
}

func propagateConv(stream string, d *LayerDescriptor, in Shape) (Shape, error) {
	if in.Height == 1 && in.Width == 1 {
		return Shape{}, spatialAfterFlat(stream, d)
	}

	h, w := in.Height, in.Width
	if d.Pad == PadValid {
		h -= d.FiltDim - 1
		w -= d.FiltDim - 1
	}
	if h >= 1 && w >= 1 {
		// Pooling: SAME rundet auf, VALID passt das Fenster vollstaendig ein.
		if d.Pad == PadSame {
			h = ceilDiv(h, d.PoolStride)
			w = ceilDiv(w, d.PoolStride)
		} else {
			h = (h-d.PoolSize)/d.PoolStride + 1
			w = (w-d.PoolSize)/d.PoolStride + 1
		}
	}
	if h < 1 || w < 1 {
		return Shape{}, &CompileError{
			Stream:    stream,
			Layer:     d.Name,
			Attribute: "filt_dim",
			Msg:       fmt.Sprintf("filter/pool reduce input %s below 1x1", in),
			Err:       ErrInvalidValue,
		}
	}
	return Shape{Height: h, Width: w, Channels: d.NumFilt}, nil
}

func spatialAfterFlat(stream string, d *LayerDescriptor) error {
	return &CompileError{
		Stream:    stream,
		Layer:     d.Name,
		Attribute: "type",
		Msg:       fmt.Sprintf("%s layer requires a spatial input, but the preceding layer is fully connected", d.Type),
		Err:       ErrInvalidValue,
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
