// MODUL: gripper
// ZWECK: Gripper-Modi und die davon abhaengige Pose-Dimensionalitaet
// INPUT: Modus-Name aus der Konfiguration
// OUTPUT: Mode mit PoseDim und PoseColumns
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: errors, fmt (Standard-Library)
// HINWEISE: Die Spaltenindizes folgen dem rohen Pose-Tensor-Layout der
// GQCNN-Datensaetze; Legacy-Suction konsumiert Tiefe und Anstellwinkel.

package gripper

import (
	"errors"
	"fmt"
)

// Mode identifiziert den Greifer, fuer den ein Netz trainiert wird.
type Mode string

const (
	ParallelJaw       Mode = "parallel_jaw"
	Suction           Mode = "suction"
	MultiSuction      Mode = "multi_suction"
	LegacyParallelJaw Mode = "legacy_parallel_jaw"
	LegacySuction     Mode = "legacy_suction"
)

// ErrUnknownMode - Modus-Name ist keiner der definierten Modi
var ErrUnknownMode = errors.New("gripper: unknown gripper mode")

// Modes - alle definierten Modi
var Modes = []Mode{ParallelJaw, Suction, MultiSuction, LegacyParallelJaw, LegacySuction}

// Parse validiert einen Modus-Namen aus der Konfiguration.
func Parse(s string) (Mode, error) {
	for _, m := range Modes {
		if Mode(s) == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// PoseDim ist die Dimension des Pose-Vektors, den der Pose-Stream
// konsumiert. Moderne Modi nutzen nur die Greiftiefe; Legacy-Suction
// zusaetzlich den Anstellwinkel.
func (m Mode) PoseDim() int {
	if m == LegacySuction {
		return 2
	}
	return 1
}

// PoseColumns sind die Spalten des rohen Pose-Tensors, die der Modus
// konsumiert (Spalte 2: Greiftiefe, Spalte 4: Anstellwinkel).
func (m Mode) PoseColumns() []int {
	if m == LegacySuction {
		return []int{2, 4}
	}
	return []int{2}
}

// SelectPose projiziert eine rohe Pose-Zeile auf die Spalten des Modus.
func (m Mode) SelectPose(row []float64) ([]float64, error) {
	cols := m.PoseColumns()
	out := make([]float64, len(cols))
	for i, c := range cols {
		if c >= len(row) {
			return nil, fmt.Errorf("gripper: pose row has %d columns, mode %s needs column %d", len(row), m, c)
		}
		out[i] = row[c]
	}
	return out, nil
}
