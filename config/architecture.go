// architecture.go - Ordnungserhaltendes Dekodieren der architecture-Sektion
// Ein gewoehnliches map-Decoding wuerde die Dokumentreihenfolge verlieren;
// die Reihenfolge der Layer ist aber die Ausfuehrungsreihenfolge.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/moliushang/gqcnn/arch"
)

// Architecture traegt die rohe architecture-Sektion in Dokumentreihenfolge.
type Architecture struct {
	Streams []arch.RawStream
}

// UnmarshalYAML dekodiert die Sektion ueber den yaml.Node-Baum, dessen
// Content-Liste die Quellreihenfolge der Mapping-Eintraege erhaelt.
func (a *Architecture) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("config: architecture must be a mapping, got %s on line %d", kindName(value.Kind), value.Line)
	}

	a.Streams = a.Streams[:0]
	for i := 0; i+1 < len(value.Content); i += 2 {
		nameNode, streamNode := value.Content[i], value.Content[i+1]
		rs := arch.RawStream{Name: nameNode.Value}

		if streamNode.Kind != yaml.MappingNode {
			return fmt.Errorf("config: stream %q must be a mapping of layers, got %s on line %d", rs.Name, kindName(streamNode.Kind), streamNode.Line)
		}
		for j := 0; j+1 < len(streamNode.Content); j += 2 {
			layerName := streamNode.Content[j].Value
			var attrs map[string]any
			if err := streamNode.Content[j+1].Decode(&attrs); err != nil {
				return fmt.Errorf("config: stream %q, layer %q: %w", rs.Name, layerName, err)
			}
			rs.Layers = append(rs.Layers, arch.RawLayer{Name: layerName, Attrs: attrs})
		}
		a.Streams = append(a.Streams, rs)
	}
	return nil
}

// MarshalYAML gibt die Sektion in der erhaltenen Reihenfolge wieder aus.
func (a Architecture) MarshalYAML() (any, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, rs := range a.Streams {
		streamNode := &yaml.Node{Kind: yaml.MappingNode}
		for _, rl := range rs.Layers {
			var attrNode yaml.Node
			if err := attrNode.Encode(rl.Attrs); err != nil {
				return nil, err
			}
			streamNode.Content = append(streamNode.Content,
				scalarNode(rl.Name), &attrNode)
		}
		root.Content = append(root.Content, scalarNode(rs.Name), streamNode)
	}
	return root, nil
}

func scalarNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: s}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}
