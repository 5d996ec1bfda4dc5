// errors.go - Fehlertaxonomie des Architektur-Compilers
// Alle Fehler sind strukturelle Konfigurationsfehler: sie werden eager
// waehrend der Kompilierung erkannt, nie zur Laufzeit, und nie retried.
package arch

import (
	"errors"
	"fmt"
)

// =============================================================================
// Sentinel-Fehler
// =============================================================================

var (
	// ErrUnknownLayerType - Layer-Typ ist nicht im erkannten Set
	ErrUnknownLayerType = errors.New("arch: unknown layer type")

	// ErrMissingAttribute - Pflicht-Attribut fuer den Layer-Typ fehlt
	ErrMissingAttribute = errors.New("arch: missing required attribute")

	// ErrInvalidValue - Attributwert verletzt seinen Wertebereich
	ErrInvalidValue = errors.New("arch: invalid attribute value")

	// ErrDuplicateLayerName - zwei Layer im selben Stream teilen einen Namen
	ErrDuplicateLayerName = errors.New("arch: duplicate layer name")

	// ErrEmptyStream - deklarierter Stream ohne Eintraege
	ErrEmptyStream = errors.New("arch: empty stream")

	// ErrUnknownStream - Stream-Name ist keiner der erkannten Streams
	ErrUnknownStream = errors.New("arch: unknown stream")

	// ErrMissingMergeLayer - Architektur enthaelt keinen fc_merge Layer
	ErrMissingMergeLayer = errors.New("arch: no fc_merge layer in architecture")

	// ErrMultipleMergeLayers - mehr als ein fc_merge Layer
	ErrMultipleMergeLayers = errors.New("arch: more than one fc_merge layer")

	// ErrUnresolvedStreamReference - Merge referenziert einen nicht gebauten Stream
	ErrUnresolvedStreamReference = errors.New("arch: merge references unbuilt stream")

	// ErrMissingFinalLayer - kein Layer traegt final_layer: true
	ErrMissingFinalLayer = errors.New("arch: no layer marked final_layer")

	// ErrMultipleFinalLayers - mehr als ein Layer traegt final_layer: true
	ErrMultipleFinalLayers = errors.New("arch: more than one layer marked final_layer")
)

// =============================================================================
// CompileError - Fehler mit Fundstelle in der Quell-Konfiguration
// =============================================================================

// CompileError annotiert einen Sentinel-Fehler mit genug Kontext, um die
// Fundstelle in der Quell-Konfiguration zu lokalisieren (Stream, Layer,
// Attribut). Msg traegt eine optionale Detailbeschreibung.
type CompileError struct {
	Stream    string
	Layer     string
	Attribute string
	Msg       string
	Err       error
}

func (e *CompileError) Error() string {
	s := e.Err.Error()
	if e.Attribute != "" {
		s += fmt.Sprintf(" %q", e.Attribute)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	switch {
	case e.Stream != "" && e.Layer != "":
		return fmt.Sprintf("stream %q, layer %q: %s", e.Stream, e.Layer, s)
	case e.Stream != "":
		return fmt.Sprintf("stream %q: %s", e.Stream, s)
	default:
		return s
	}
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// compileErr - Kurzform fuer CompileError ohne Attribut
func compileErr(err error, stream, layer string) *CompileError {
	return &CompileError{Stream: stream, Layer: layer, Err: err}
}
