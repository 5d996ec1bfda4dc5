// schedule.go - Trainings-Zeitplan: exponentieller Learning-Rate-Decay
// und die aus der Datensatzgroesse abgeleiteten Schrittfrequenzen
// Haupttypen: Schedule
package training

import (
	"errors"
	"math"
)

// ErrInvalidSchedule - Zeitplan-Parameter ausserhalb ihres Wertebereichs
var ErrInvalidSchedule = errors.New("training: invalid schedule parameters")

// Schedule bildet den Lernraten-Verlauf eines Trainingslaufs ab.
// Der Decay ist treppenfoermig (staircase): innerhalb eines Decay-Fensters
// bleibt die Rate konstant.
type Schedule struct {
	BaseLR    float64
	DecayRate float64

	// DecayStep ist die Fensterbreite in Datenpunkten,
	// decay_step_multiplier * Anzahl Trainingsbeispiele.
	DecayStep float64

	BatchSize int
	NumTrain  int
	NumEpochs int
}

// NewSchedule leitet den Zeitplan aus den Trainings-Hyperparametern und
// der Datensatzgroesse ab.
func NewSchedule(baseLR, decayRate, decayStepMultiplier float64, batchSize, numTrain, numEpochs int) (*Schedule, error) {
	if baseLR <= 0 || decayRate <= 0 || decayRate > 1 || decayStepMultiplier <= 0 || batchSize <= 0 || numTrain <= 0 || numEpochs <= 0 {
		return nil, ErrInvalidSchedule
	}
	return &Schedule{
		BaseLR:    baseLR,
		DecayRate: decayRate,
		DecayStep: decayStepMultiplier * float64(numTrain),
		BatchSize: batchSize,
		NumTrain:  numTrain,
		NumEpochs: numEpochs,
	}, nil
}

// Rate ist die Lernrate im Optimierungsschritt step:
// base_lr * decay_rate ^ floor(step*batch_size / decay_step).
func (s *Schedule) Rate(step int) float64 {
	progress := float64(step*s.BatchSize) / s.DecayStep
	return s.BaseLR * math.Pow(s.DecayRate, math.Floor(progress))
}

// StepsPerEpoch - Optimierungsschritte je Epoche
func (s *Schedule) StepsPerEpoch() int {
	return s.NumTrain / s.BatchSize
}

// TotalSteps - Optimierungsschritte des gesamten Laufs
func (s *Schedule) TotalSteps() int {
	return s.NumEpochs * s.NumTrain / s.BatchSize
}

// Epoch ist die (gebrochene) Epoche, in der ein Schritt liegt.
func (s *Schedule) Epoch(step int) float64 {
	return float64(step) * float64(s.BatchSize) / float64(s.NumTrain)
}

// EverySteps rechnet eine in Epochenbruchteilen angegebene Frequenz
// (eval_frequency, save_frequency) in Optimierungsschritte um.
func (s *Schedule) EverySteps(frequency float64) int {
	return int(math.Ceil(frequency * float64(s.NumTrain) / float64(s.BatchSize)))
}
