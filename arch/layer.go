// layer.go - Layer-Parser: validiert und normalisiert einen
// Architektur-Eintrag zu einem typisierten LayerDescriptor
// Hauptfunktionen: ParseLayer, LayerType.Valid
package arch

import (
	"fmt"
	"math"

	"github.com/agnivade/levenshtein"
)

// =============================================================================
// Layer-Typen
// =============================================================================

// LayerType identifiziert die Bauart eines Layers.
type LayerType string

const (
	// LayerConv - Faltung mit optionalem Pooling und Local Response Norm
	LayerConv LayerType = "conv"
	// LayerFC - vollverbundener Layer
	LayerFC LayerType = "fc"
	// LayerFCMerge - Fusionspunkt mehrerer Streams
	LayerFCMerge LayerType = "fc_merge"
	// LayerPC - vollverbundener Layer auf dem Pose-Vektor
	LayerPC LayerType = "pc"
	// LayerGC - vollverbundener Layer auf dem Gripper-Vektor
	LayerGC LayerType = "gc"
	// LayerResidual - Residual-Block (zwei Faltungen, formtreu)
	LayerResidual LayerType = "residual"
	// LayerSpatialTransformer - differenzierbares Resampling des Eingabebilds
	LayerSpatialTransformer LayerType = "spatial_transformer"
)

// layerTypes - erkanntes Set, Reihenfolge nur fuer Vorschlaege relevant
var layerTypes = []LayerType{
	LayerConv,
	LayerFC,
	LayerFCMerge,
	LayerPC,
	LayerGC,
	LayerResidual,
	LayerSpatialTransformer,
}

// Valid meldet, ob t im erkannten Set liegt.
func (t LayerType) Valid() bool {
	for _, known := range layerTypes {
		if t == known {
			return true
		}
	}
	return false
}

// suggestLayerType - naechster bekannter Typ per Levenshtein-Distanz,
// leer wenn kein Typ nah genug liegt
func suggestLayerType(s string) LayerType {
	best, bestDist := LayerType(""), math.MaxInt
	for _, known := range layerTypes {
		if d := levenshtein.ComputeDistance(s, string(known)); d < bestDist {
			best, bestDist = known, d
		}
	}
	if bestDist > 2 {
		return ""
	}
	return best
}

// =============================================================================
// Padding
// =============================================================================

// Padding steuert das Randverhalten von Faltung und Pooling.
type Padding string

const (
	PadSame  Padding = "SAME"
	PadValid Padding = "VALID"
)

// =============================================================================
// LayerDescriptor
// =============================================================================

// LayerDescriptor ist das validierte, normalisierte Abbild eines
// Architektur-Eintrags. Welche Felder belegt sind, bestimmt Type.
type LayerDescriptor struct {
	Name string    `json:"name"`
	Type LayerType `json:"type"`

	// Faltungs-Attribute (conv, residual)
	FiltDim int `json:"filt_dim,omitempty"`
	NumFilt int `json:"num_filt,omitempty"`

	// Pooling-Attribute (conv)
	PoolSize   int     `json:"pool_size,omitempty"`
	PoolStride int     `json:"pool_stride,omitempty"`
	Pad        Padding `json:"pad,omitempty"`

	// Local Response Normalization (conv)
	Norm       bool `json:"norm,omitempty"`
	NormRadius int  `json:"norm_radius,omitempty"`

	// Ausgabegroesse (fc, fc_merge, pc, gc)
	OutSize int `json:"out_size,omitempty"`

	// Spatial-Transformer-Attribute
	NumTransformParams int `json:"num_transform_params,omitempty"`

	// FinalLayer markiert den Layer, dessen OutSize die
	// Ausgabedimension des Netzes definiert.
	FinalLayer bool `json:"final_layer,omitempty"`
}

// defaultNormRadius - Standardradius der Local Response Normalization,
// entspricht dem klassischen GQCNN-Setup
const defaultNormRadius = 2

// =============================================================================
// ParseLayer
// =============================================================================

// ParseLayer validiert einen rohen Architektur-Eintrag und liefert den
// normalisierten Descriptor. stream und name dienen nur der Fehlerannotation;
// der Parser selbst hat keine Seiteneffekte.
func ParseLayer(stream, name string, attrs map[string]any) (*LayerDescriptor, error) {
	p := &layerParser{stream: stream, layer: name, attrs: attrs}

	rawType, ok := attrs["type"]
	if !ok {
		return nil, p.missing("type")
	}
	typeName, ok := rawType.(string)
	if !ok || !LayerType(typeName).Valid() {
		e := &CompileError{
			Stream:    stream,
			Layer:     name,
			Attribute: "type",
			Err:       ErrUnknownLayerType,
			Msg:       fmt.Sprintf("%v", rawType),
		}
		if s := suggestLayerType(fmt.Sprintf("%v", rawType)); s != "" {
			e.Msg += fmt.Sprintf(" (did you mean %q?)", s)
		}
		return nil, e
	}

	d := &LayerDescriptor{Name: name, Type: LayerType(typeName)}

	switch d.Type {
	case LayerConv:
		p.parseConv(d)
	case LayerResidual:
		p.parseResidual(d)
	case LayerSpatialTransformer:
		p.parseSpatialTransformer(d)
	case LayerFC, LayerFCMerge, LayerPC, LayerGC:
		p.parseFullyConnected(d)
	}
	if p.err != nil {
		return nil, p.err
	}

	d.FinalLayer = p.optionalBool("final_layer", false)
	if p.err != nil {
		return nil, p.err
	}
	return d, nil
}

// =============================================================================
// layerParser - Attribut-Zugriff mit Fehlerakkumulation (first error wins)
// =============================================================================

type layerParser struct {
	stream string
	layer  string
	attrs  map[string]any
	err    error
}

func (p *layerParser) parseConv(d *LayerDescriptor) {
	d.FiltDim = p.requiredInt("filt_dim")
	d.NumFilt = p.requiredInt("num_filt")
	d.PoolSize = p.requiredInt("pool_size")
	d.PoolStride = p.requiredInt("pool_stride")
	d.Pad = p.optionalPad()
	d.Norm = p.optionalBool("norm", false)
	d.NormRadius = p.optionalInt("norm_radius", defaultNormRadius)
	if p.err != nil {
		return
	}

	p.positive("filt_dim", d.FiltDim)
	p.positive("num_filt", d.NumFilt)
	p.positive("pool_size", d.PoolSize)
	if d.PoolStride < 1 {
		p.invalid("pool_stride", fmt.Sprintf("must be >= 1, got %d", d.PoolStride))
	}
	// Bei aktiver Normalisierung muss der Filter ein ungerades Quadrat um
	// den Radius bilden, sonst ist das LRN-Fenster nicht zentrierbar.
	if d.Norm {
		p.positive("norm_radius", d.NormRadius)
		if d.FiltDim%2 == 0 {
			p.invalid("filt_dim", fmt.Sprintf("must be a positive odd integer when norm is enabled, got %d", d.FiltDim))
		}
	}
}

func (p *layerParser) parseResidual(d *LayerDescriptor) {
	d.FiltDim = p.requiredInt("filt_dim")
	d.NumFilt = p.requiredInt("num_filt")
	if p.err != nil {
		return
	}
	p.positive("filt_dim", d.FiltDim)
	p.positive("num_filt", d.NumFilt)
}

func (p *layerParser) parseSpatialTransformer(d *LayerDescriptor) {
	d.NumTransformParams = p.requiredInt("num_transform_params")
	if p.err != nil {
		return
	}
	p.positive("num_transform_params", d.NumTransformParams)
}

func (p *layerParser) parseFullyConnected(d *LayerDescriptor) {
	d.OutSize = p.requiredInt("out_size")
	if p.err != nil {
		return
	}
	if d.OutSize <= 0 {
		p.invalid("out_size", fmt.Sprintf("must be > 0, got %d", d.OutSize))
	}
}

// requiredInt liest ein Pflicht-Attribut; fehlt es, setzt er MissingAttribute.
func (p *layerParser) requiredInt(key string) int {
	if p.err != nil {
		return 0
	}
	v, ok := p.attrs[key]
	if !ok {
		p.err = p.missing(key)
		return 0
	}
	n, ok := asInt(v)
	if !ok {
		p.invalid(key, fmt.Sprintf("expected integer, got %v", v))
		return 0
	}
	return n
}

func (p *layerParser) optionalInt(key string, def int) int {
	if p.err != nil {
		return def
	}
	v, ok := p.attrs[key]
	if !ok {
		return def
	}
	n, ok := asInt(v)
	if !ok {
		p.invalid(key, fmt.Sprintf("expected integer, got %v", v))
		return def
	}
	return n
}

func (p *layerParser) optionalBool(key string, def bool) bool {
	if p.err != nil {
		return def
	}
	v, ok := p.attrs[key]
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case int:
		return b != 0
	default:
		p.invalid(key, fmt.Sprintf("expected boolean, got %v", v))
		return def
	}
}

// optionalPad normalisiert pad auf VALID wenn nicht gesetzt.
func (p *layerParser) optionalPad() Padding {
	if p.err != nil {
		return PadValid
	}
	v, ok := p.attrs["pad"]
	if !ok {
		return PadValid
	}
	s, ok := v.(string)
	if !ok || (Padding(s) != PadSame && Padding(s) != PadValid) {
		p.invalid("pad", fmt.Sprintf("must be SAME or VALID, got %v", v))
		return PadValid
	}
	return Padding(s)
}

func (p *layerParser) positive(key string, n int) {
	if p.err != nil {
		return
	}
	if n <= 0 {
		p.invalid(key, fmt.Sprintf("must be > 0, got %d", n))
	}
}

func (p *layerParser) missing(key string) error {
	return &CompileError{Stream: p.stream, Layer: p.layer, Attribute: key, Err: ErrMissingAttribute}
}

func (p *layerParser) invalid(key, msg string) {
	if p.err != nil {
		return
	}
	p.err = &CompileError{Stream: p.stream, Layer: p.layer, Attribute: key, Msg: msg, Err: ErrInvalidValue}
}

// asInt - YAML-Decoder liefern je nach Quelle int oder float; beides wird
// akzeptiert, solange der Wert ganzzahlig ist.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
