// stats.go - Normalisierungsstatistiken und Klassifikationsmetriken
// Hauptfunktionen: TensorStats, PoseStats, ClassificationResult
package training

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// ErrNoData - Statistik ueber leere Eingabe
var ErrNoData = errors.New("training: no data")

// =============================================================================
// Normalisierungsstatistiken
// =============================================================================

// TensorStats sind Mittelwert und Standardabweichung eines flachen
// Tensors, z.B. aller Tiefenbild-Pixel des Trainings-Splits. Das
// Execution-Backend normalisiert Eingaben mit (x - Mean) / Std.
type TensorStats struct {
	Mean float64
	Std  float64
}

// ComputeTensorStats berechnet die Statistik ueber alle Werte.
func ComputeTensorStats(values []float64) (TensorStats, error) {
	if len(values) == 0 {
		return TensorStats{}, ErrNoData
	}
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return TensorStats{Mean: mean, Std: std}, nil
}

// PoseStats berechnet Mittelwert und Standardabweichung je Pose-Spalte.
func PoseStats(rows [][]float64) (mean, std []float64, err error) {
	if len(rows) == 0 {
		return nil, nil, ErrNoData
	}
	dim := len(rows[0])
	cols := make([][]float64, dim)
	for i, row := range rows {
		if len(row) != dim {
			return nil, nil, fmt.Errorf("training: pose row %d has %d columns, expected %d", i, len(row), dim)
		}
		for j, v := range row {
			cols[j] = append(cols[j], v)
		}
	}

	mean = make([]float64, dim)
	std = make([]float64, dim)
	for j, col := range cols {
		m, s := stat.MeanStdDev(col, nil)
		if len(col) == 1 {
			s = 0
		}
		mean[j], std[j] = m, s
	}
	return mean, std, nil
}

// =============================================================================
// Klassifikationsmetriken
// =============================================================================

// ClassificationResult bewertet binaere Grasp-Quality-Vorhersagen gegen
// die mit metric_thresh binarisierten Labels.
type ClassificationResult struct {
	Correct int
	Total   int
}

// Evaluate binarisiert labels an thresh und vergleicht mit den
// vorhergesagten Erfolgswahrscheinlichkeiten (Entscheidungsgrenze 0.5).
func Evaluate(predictions, labels []float64, thresh float64) (ClassificationResult, error) {
	if len(predictions) != len(labels) {
		return ClassificationResult{}, fmt.Errorf("training: %d predictions vs %d labels", len(predictions), len(labels))
	}
	if len(predictions) == 0 {
		return ClassificationResult{}, ErrNoData
	}

	var r ClassificationResult
	for i, p := range predictions {
		predicted := p > 0.5
		actual := labels[i] > thresh
		if predicted == actual {
			r.Correct++
		}
		r.Total++
	}
	return r, nil
}

// ErrorRate - Fehlerrate in Prozent, die target_metric des Trainings
func (r ClassificationResult) ErrorRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return 100 * float64(r.Total-r.Correct) / float64(r.Total)
}

// Accuracy - Trefferquote in Prozent
func (r ClassificationResult) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return 100 * float64(r.Correct) / float64(r.Total)
}
