// merge.go - Stream Merger: fusioniert die terminalen Ausgaben aller
// Nicht-Merge-Streams am fc_merge Layer zu einem Merkmalsvektor
// Hauptfunktionen: buildMerge
package arch

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// mergeInputsAttr - optionales fc_merge Attribut, das die fusionierten
// Streams explizit benennt; fehlt es, werden alle gebauten
// Nicht-Merge-Streams in Deklarationsreihenfolge fusioniert.
const mergeInputsAttr = "input_streams"

// buildMerge validiert den Merge-Stream und liefert den fusionierten Pfad
// samt Ausgabedimension des Netzes (OutSize des final_layer).
//
// Regeln:
//   - genau ein fc_merge Layer, und zwar als erster Layer des Streams
//   - danach eine strikt sequentielle Fortsetzung vollverbundener Layer
//   - genau ein final_layer in der Fortsetzung, als terminaler Layer
func buildMerge(streams []StreamGraph, raw []RawLayer) (MergePath, int, error) {
	if len(raw) == 0 {
		return MergePath{}, 0, compileErr(ErrEmptyStream, StreamMerge, "")
	}

	// fc_merge und final_layer Vorkommen zaehlen, bevor weiter validiert
	// wird: die Zahlen entscheiden zwischen Missing- und Multiple-Fehlern.
	// Die Positionsregeln unten gelten erst, wenn die Anzahl stimmt; sonst
	// wuerde ein zweiter final_layer den ersten nicht-terminal machen und
	// die Positionspruefung den Zaehlfehler verdecken.
	var mergeCount, finalCount int
	for _, rl := range raw {
		if t, ok := rl.Attrs["type"].(string); ok && LayerType(t) == LayerFCMerge {
			mergeCount++
		}
		switch v := rl.Attrs["final_layer"].(type) {
		case bool:
			if v {
				finalCount++
			}
		case int:
			if v != 0 {
				finalCount++
			}
		}
	}
	switch {
	case mergeCount == 0:
		return MergePath{}, 0, compileErr(ErrMissingMergeLayer, StreamMerge, "")
	case mergeCount > 1:
		return MergePath{}, 0, compileErr(ErrMultipleMergeLayers, StreamMerge, "")
	case finalCount == 0:
		return MergePath{}, 0, compileErr(ErrMissingFinalLayer, StreamMerge, "")
	case finalCount > 1:
		return MergePath{}, 0, compileErr(ErrMultipleFinalLayers, StreamMerge, "")
	}

	seen := orderedmap.New[string, *LayerDescriptor]()
	var path MergePath
	var finalSize int

	for i, rl := range raw {
		d, err := ParseLayer(StreamMerge, rl.Name, rl.Attrs)
		if err != nil {
			return MergePath{}, 0, err
		}
		if _, dup := seen.Set(rl.Name, d); dup {
			return MergePath{}, 0, compileErr(ErrDuplicateLayerName, StreamMerge, rl.Name)
		}

		if d.Type == LayerFCMerge {
			if i != 0 {
				return MergePath{}, 0, &CompileError{
					Stream:    StreamMerge,
					Layer:     rl.Name,
					Attribute: "type",
					Msg:       "fc_merge must be the first layer of the merge stream",
					Err:       ErrInvalidValue,
				}
			}
			if d.FinalLayer {
				return MergePath{}, 0, &CompileError{
					Stream:    StreamMerge,
					Layer:     rl.Name,
					Attribute: "final_layer",
					Msg:       "fc_merge cannot be the final layer",
					Err:       ErrInvalidValue,
				}
			}
			inputs, size, err := resolveMergeInputs(streams, rl)
			if err != nil {
				return MergePath{}, 0, err
			}
			path.Inputs = inputs
			path.InputSize = size
			path.Layers = append(path.Layers, CompiledLayer{LayerDescriptor: *d, Output: flatShape(d.OutSize)})
			continue
		}

		// Fortsetzung nach dem Merge-Punkt: nur vollverbundene Layer.
		if !KindMerge.allows(d.Type) {
			return MergePath{}, 0, &CompileError{
				Stream:    StreamMerge,
				Layer:     rl.Name,
				Attribute: "type",
				Msg:       fmt.Sprintf("layer type %q not allowed in %s", d.Type, StreamMerge),
				Err:       ErrInvalidValue,
			}
		}
		path.Layers = append(path.Layers, CompiledLayer{LayerDescriptor: *d, Output: flatShape(d.OutSize)})

		if d.FinalLayer {
			finalSize = d.OutSize
			if i != len(raw)-1 {
				return MergePath{}, 0, &CompileError{
					Stream:    StreamMerge,
					Layer:     rl.Name,
					Attribute: "final_layer",
					Msg:       "final layer must be the terminal layer of the merge stream",
					Err:       ErrInvalidValue,
				}
			}
		}
	}
	return path, finalSize, nil
}

// resolveMergeInputs bestimmt die Vorgaenger des fc_merge Layers: entweder
// die explizit deklarierten input_streams oder alle gebauten
// Nicht-Merge-Streams. Die Eingabegroesse ist die Summe der terminalen
// (geflatteten) Ausgaben.
func resolveMergeInputs(streams []StreamGraph, rl RawLayer) ([]string, int, error) {
	byName := make(map[string]StreamGraph, len(streams))
	var names []string
	for _, s := range streams {
		byName[s.Name] = s
		names = append(names, s.Name)
	}

	if v, ok := rl.Attrs[mergeInputsAttr]; ok {
		declared, ok := asStringSlice(v)
		if !ok || len(declared) == 0 {
			return nil, 0, &CompileError{
				Stream:    StreamMerge,
				Layer:     rl.Name,
				Attribute: mergeInputsAttr,
				Msg:       fmt.Sprintf("expected a non-empty list of stream names, got %v", v),
				Err:       ErrInvalidValue,
			}
		}
		names = declared
	}

	if len(names) == 0 {
		return nil, 0, &CompileError{
			Stream: StreamMerge,
			Layer:  rl.Name,
			Msg:    "architecture declares no input streams to merge",
			Err:    ErrUnresolvedStreamReference,
		}
	}

	var size int
	for _, name := range names {
		s, ok := byName[name]
		if !ok {
			return nil, 0, &CompileError{
				Stream:    StreamMerge,
				Layer:     rl.Name,
				Attribute: mergeInputsAttr,
				Msg:       fmt.Sprintf("stream %q was not built", name),
				Err:       ErrUnresolvedStreamReference,
			}
		}
		size += s.Terminal().Output.Flat()
	}
	return names, size, nil
}

func asStringSlice(v any) ([]string, bool) {
	switch vs := v.(type) {
	case []string:
		return vs, true
	case []any:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
