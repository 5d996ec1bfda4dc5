// graph.go - Unveraenderliche Graph-Beschreibung fuer das Execution-Backend
// Haupttypen: GraphDescription, StreamGraph, CompiledLayer, Shape
package arch

import "fmt"

// =============================================================================
// Shape - Tensorform zwischen zwei Layern
// =============================================================================

// Shape beschreibt die Ausgabeform eines Layers. Vollverbundene Layer
// tragen Height = Width = 1, der flache Vektor steht in Channels.
type Shape struct {
	Height   int `json:"height"`
	Width    int `json:"width"`
	Channels int `json:"channels"`
}

// Flat ist die Anzahl der Elemente nach dem Flatten.
func (s Shape) Flat() int {
	return s.Height * s.Width * s.Channels
}

func (s Shape) String() string {
	if s.Height == 1 && s.Width == 1 {
		return fmt.Sprintf("%d", s.Channels)
	}
	return fmt.Sprintf("%dx%dx%d", s.Height, s.Width, s.Channels)
}

// flatShape - Form eines flachen Vektors
func flatShape(n int) Shape {
	return Shape{Height: 1, Width: 1, Channels: n}
}

// =============================================================================
// Graph-Beschreibung
// =============================================================================

// CompiledLayer ist ein Descriptor samt propagierter Ausgabeform.
type CompiledLayer struct {
	LayerDescriptor
	Output Shape `json:"output"`
}

// StreamGraph ist ein gebauter Stream: Eingabeform und Layer in
// Ausfuehrungsreihenfolge (= Deklarationsreihenfolge der Konfiguration).
type StreamGraph struct {
	Name   string          `json:"name"`
	Input  Shape           `json:"input"`
	Layers []CompiledLayer `json:"layers"`
}

// Terminal liefert den letzten Layer des Streams.
func (s StreamGraph) Terminal() CompiledLayer {
	return s.Layers[len(s.Layers)-1]
}

// MergePath beschreibt den fusionierten Pfad nach dem fc_merge Layer.
// Inputs sind die Namen der fusionierten Streams in Deklarationsreihenfolge,
// InputSize die Summe ihrer terminalen Ausgabegroessen.
type MergePath struct {
	Inputs    []string        `json:"inputs"`
	InputSize int             `json:"input_size"`
	Layers    []CompiledLayer `json:"layers"`
}

// GraphDescription ist das unveraenderliche Kompilat einer Architektur.
// Es ist ein reines Datenobjekt: das numerische Execution-Backend baut
// daraus seinen eigenen Rechen-Graphen.
type GraphDescription struct {
	// Streams in Deklarationsreihenfolge, ohne den Merge-Stream.
	Streams []StreamGraph `json:"streams"`

	Merge MergePath `json:"merge"`

	// OutputSize ist die Ausgabedimension des Netzes (OutSize des
	// final_layer), z.B. 2 fuer binaere Grasp-Quality-Klassifikation.
	OutputSize int `json:"output_size"`
}

// Stream sucht einen gebauten Stream per Name.
func (g *GraphDescription) Stream(name string) (StreamGraph, bool) {
	for _, s := range g.Streams {
		if s.Name == name {
			return s, true
		}
	}
	return StreamGraph{}, false
}

// NumLayers - Gesamtzahl der Layer inklusive Merge-Pfad
func (g *GraphDescription) NumLayers() int {
	n := len(g.Merge.Layers)
	for _, s := range g.Streams {
		n += len(s.Layers)
	}
	return n
}
