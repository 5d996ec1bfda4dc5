// training_test.go - Tests fuer Zeitplan, Splits und Statistiken
package training

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScheduleRate(t *testing.T) {
	// base_lr 0.01, decay 0.5, Multiplier 1.0 ueber 1000 Beispiele:
	// Decay-Fenster ist 1000 Datenpunkte = 100 Schritte bei Batch 10
	s, err := NewSchedule(0.01, 0.5, 1.0, 10, 1000, 5)
	if err != nil {
		t.Fatalf("NewSchedule() Fehler = %v", err)
	}

	tests := []struct {
		step int
		want float64
	}{
		{step: 0, want: 0.01},
		{step: 99, want: 0.01},
		{step: 100, want: 0.005},
		{step: 250, want: 0.0025},
	}
	for _, tt := range tests {
		if got := s.Rate(tt.step); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Rate(%d) = %g, erwartet %g", tt.step, got, tt.want)
		}
	}

	if got := s.TotalSteps(); got != 500 {
		t.Errorf("TotalSteps() = %d, erwartet 500", got)
	}
	if got := s.EverySteps(0.5); got != 50 {
		t.Errorf("EverySteps(0.5) = %d, erwartet 50", got)
	}
}

func TestScheduleParameterpruefung(t *testing.T) {
	if _, err := NewSchedule(0, 0.5, 1.0, 10, 1000, 5); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("NewSchedule() mit base_lr 0: Fehler = %v, erwartet ErrInvalidSchedule", err)
	}
}

func TestSplitIndicesDeterminismus(t *testing.T) {
	a, err := SplitIndices(SplitImageWise, 100, 0.8, 1.0, 6122)
	if err != nil {
		t.Fatalf("SplitIndices() Fehler = %v", err)
	}
	b, err := SplitIndices(SplitImageWise, 100, 0.8, 1.0, 6122)
	if err != nil {
		t.Fatalf("SplitIndices() Fehler = %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Splits mit gleichem Seed unterscheiden sich:\n%s", diff)
	}

	if len(a.Train) != 80 || len(a.Val) != 20 {
		t.Errorf("Split-Groessen = %d/%d, erwartet 80/20", len(a.Train), len(a.Val))
	}

	// Disjunkt und vollstaendig
	seen := map[int]bool{}
	for _, i := range append(append([]int(nil), a.Train...), a.Val...) {
		if seen[i] {
			t.Fatalf("Index %d in beiden Seiten des Splits", i)
		}
		seen[i] = true
	}
	if len(seen) != 100 {
		t.Errorf("Split deckt %d Indizes ab, erwartet 100", len(seen))
	}
}

func TestSplitByObject(t *testing.T) {
	// 3 Objekte mit je 2 Datenpunkten: Objektgrenzen duerfen nicht
	// durch den Split geschnitten werden
	labels := []int{7, 7, 3, 3, 9, 9}
	s, err := SplitByObject(labels, 0.67, 1.0, 42)
	if err != nil {
		t.Fatalf("SplitByObject() Fehler = %v", err)
	}
	side := map[int]string{}
	for _, i := range s.Train {
		side[labels[i]] = "train"
	}
	for _, i := range s.Val {
		if side[labels[i]] == "train" {
			t.Errorf("Objekt %d auf beiden Seiten des Splits", labels[i])
		}
	}
	if len(s.Train)+len(s.Val) != len(labels) {
		t.Errorf("Split deckt %d Punkte ab, erwartet %d", len(s.Train)+len(s.Val), len(labels))
	}
}

func TestSplitFehler(t *testing.T) {
	if _, err := SplitIndices(SplitImageWise, 100, 1.5, 1.0, 0); !errors.Is(err, ErrInvalidSplit) {
		t.Errorf("train_pct 1.5: Fehler = %v, erwartet ErrInvalidSplit", err)
	}
	if _, err := SplitIndices("pose_wise", 100, 0.8, 1.0, 0); !errors.Is(err, ErrUnknownSplit) {
		t.Errorf("unbekannter Split: Fehler = %v, erwartet ErrUnknownSplit", err)
	}
}

func TestComputeTensorStats(t *testing.T) {
	s, err := ComputeTensorStats([]float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("ComputeTensorStats() Fehler = %v", err)
	}
	if math.Abs(s.Mean-2.5) > 1e-12 {
		t.Errorf("Mean = %g, erwartet 2.5", s.Mean)
	}
	if s.Std <= 0 {
		t.Errorf("Std = %g, erwartet > 0", s.Std)
	}

	if _, err := ComputeTensorStats(nil); !errors.Is(err, ErrNoData) {
		t.Errorf("leere Eingabe: Fehler = %v, erwartet ErrNoData", err)
	}
}

func TestPoseStats(t *testing.T) {
	rows := [][]float64{{0.6, 0.1}, {0.8, 0.3}}
	mean, std, err := PoseStats(rows)
	if err != nil {
		t.Fatalf("PoseStats() Fehler = %v", err)
	}
	if math.Abs(mean[0]-0.7) > 1e-12 || math.Abs(mean[1]-0.2) > 1e-12 {
		t.Errorf("Mittelwerte = %v, erwartet [0.7 0.2]", mean)
	}
	if len(std) != 2 {
		t.Errorf("Std-Dimension = %d, erwartet 2", len(std))
	}

	if _, _, err := PoseStats([][]float64{{1, 2}, {1}}); err == nil {
		t.Errorf("ungleiche Zeilenlaengen: kein Fehler, erwartet Fehler")
	}
}

func TestEvaluate(t *testing.T) {
	preds := []float64{0.9, 0.2, 0.7, 0.1}
	labels := []float64{1.0, 0.0, 0.0, 0.0}
	r, err := Evaluate(preds, labels, 0.5)
	if err != nil {
		t.Fatalf("Evaluate() Fehler = %v", err)
	}
	// Eine Fehlklassifikation von vier Punkten
	if r.Correct != 3 || r.Total != 4 {
		t.Errorf("Ergebnis = %d/%d, erwartet 3/4", r.Correct, r.Total)
	}
	if math.Abs(r.ErrorRate()-25.0) > 1e-12 {
		t.Errorf("ErrorRate() = %g, erwartet 25", r.ErrorRate())
	}
}
