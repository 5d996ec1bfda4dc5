// split.go - Deterministische Train/Validation-Splits ueber die
// Datenpunkt-Indizes eines Datensatzes
// Hauptfunktionen: SplitIndices
package training

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// SplitName benennt die Split-Strategie.
type SplitName string

const (
	// SplitImageWise mischt Datenpunkte unabhaengig voneinander.
	SplitImageWise SplitName = "image_wise"
	// SplitObjectWise haelt alle Datenpunkte eines Objekts zusammen.
	SplitObjectWise SplitName = "object_wise"
)

var (
	// ErrUnknownSplit - Split-Name ist keiner der definierten
	ErrUnknownSplit = errors.New("training: unknown split")

	// ErrInvalidSplit - Split-Parameter ausserhalb ihres Wertebereichs
	ErrInvalidSplit = errors.New("training: invalid split parameters")
)

// Split ist das Ergebnis eines Splits: disjunkte, aufsteigend sortierte
// Index-Mengen. Fuer gleiche Eingaben und gleichen Seed ist das Ergebnis
// reproduzierbar.
type Split struct {
	Train []int
	Val   []int
}

// SplitIndices teilt n Datenpunkte in Training und Validierung.
// totalPct wird vor dem Split angewendet (Subsampling des Datensatzes),
// trainPct teilt die verbleibenden Punkte.
func SplitIndices(name SplitName, n int, trainPct, totalPct float64, seed int64) (Split, error) {
	if name != SplitImageWise && name != SplitObjectWise {
		return Split{}, fmt.Errorf("%w %q", ErrUnknownSplit, name)
	}
	if name == SplitObjectWise {
		return Split{}, fmt.Errorf("%w: object-wise split requires object labels, use SplitByObject", ErrInvalidSplit)
	}
	return splitShuffled(identityIndices(n), trainPct, totalPct, seed)
}

// SplitByObject teilt Datenpunkte objektweise: alle Punkte mit demselben
// Objekt-Label landen auf derselben Seite des Splits.
func SplitByObject(objectLabels []int, trainPct, totalPct float64, seed int64) (Split, error) {
	if err := checkPcts(trainPct, totalPct); err != nil {
		return Split{}, err
	}

	byObject := map[int][]int{}
	var objects []int
	for i, obj := range objectLabels {
		if _, ok := byObject[obj]; !ok {
			objects = append(objects, obj)
		}
		byObject[obj] = append(byObject[obj], i)
	}
	sort.Ints(objects)

	objSplit, err := splitShuffled(objects, trainPct, totalPct, seed)
	if err != nil {
		return Split{}, err
	}

	var out Split
	for _, obj := range objSplit.Train {
		out.Train = append(out.Train, byObject[obj]...)
	}
	for _, obj := range objSplit.Val {
		out.Val = append(out.Val, byObject[obj]...)
	}
	sort.Ints(out.Train)
	sort.Ints(out.Val)
	return out, nil
}

func splitShuffled(indices []int, trainPct, totalPct float64, seed int64) (Split, error) {
	if err := checkPcts(trainPct, totalPct); err != nil {
		return Split{}, err
	}
	n := len(indices)
	if n == 0 {
		return Split{}, fmt.Errorf("%w: no datapoints", ErrInvalidSplit)
	}

	shuffled := make([]int, n)
	copy(shuffled, indices)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	total := int(math.Round(totalPct * float64(n)))
	if total < 1 {
		total = 1
	}
	shuffled = shuffled[:total]

	cut := int(math.Round(trainPct * float64(total)))
	if cut < 1 {
		cut = 1
	}
	if cut > total {
		cut = total
	}

	out := Split{
		Train: append([]int(nil), shuffled[:cut]...),
		Val:   append([]int(nil), shuffled[cut:]...),
	}
	sort.Ints(out.Train)
	sort.Ints(out.Val)
	return out, nil
}

func checkPcts(trainPct, totalPct float64) error {
	if trainPct <= 0 || trainPct > 1 {
		return fmt.Errorf("%w: train_pct must be in (0, 1], got %g", ErrInvalidSplit, trainPct)
	}
	if totalPct <= 0 || totalPct > 1 {
		return fmt.Errorf("%w: total_pct must be in (0, 1], got %g", ErrInvalidSplit, totalPct)
	}
	return nil
}

func identityIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
