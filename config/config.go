// config.go - Training-Konfiguration: Laden, Defaults, Validierung
// Hauptfunktionen: Load, Parse, TrainConfig.Validate, TrainConfig.CompileInput
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/moliushang/gqcnn/arch"
	"github.com/moliushang/gqcnn/gripper"
)

// =============================================================================
// Fehler-Definitionen
// =============================================================================

var (
	// ErrUnsupportedLoss - Loss-Name ist keiner der unterstuetzten
	ErrUnsupportedLoss = errors.New("config: unsupported loss")

	// ErrUnsupportedOptimizer - Optimizer-Name ist keiner der unterstuetzten
	ErrUnsupportedOptimizer = errors.New("config: unsupported optimizer")

	// ErrUnsupportedTrainingMode - Training-Modus ist keiner der unterstuetzten
	ErrUnsupportedTrainingMode = errors.New("config: unsupported training mode")

	// ErrInvalidField - Skalarfeld verletzt seinen Wertebereich
	ErrInvalidField = errors.New("config: invalid field")
)

// =============================================================================
// Enums
// =============================================================================

// Loss waehlt die Verlustfunktion des Trainings.
type Loss string

const (
	LossL2                   Loss = "l2"
	LossSparse               Loss = "sparse"
	LossWeightedCrossEntropy Loss = "weighted_cross_entropy"
)

// Optimizer waehlt das Gradientenverfahren.
type Optimizer string

const (
	OptimizerMomentum Optimizer = "momentum"
	OptimizerAdam     Optimizer = "adam"
	OptimizerRMSProp  Optimizer = "rmsprop"
)

// TrainingMode unterscheidet Klassifikation und Regression.
type TrainingMode string

const (
	ModeClassification TrainingMode = "classification"
	ModeRegression     TrainingMode = "regression"
)

// =============================================================================
// Konfigurationsstrukturen
// =============================================================================

// Default-Feldnamen der Datensatz-Tensoren
const (
	DefaultImageField = "tf_depth_ims"
	DefaultPoseField  = "hand_poses"
	DefaultSplitName  = "image_wise"
)

// GQCNNConfig ist der gqcnn-Block: Netz-Eingabedimensionen, Gripper-Modus
// und die architecture-Sektion in Dokumentreihenfolge.
type GQCNNConfig struct {
	ImHeight   int `yaml:"im_height"`
	ImWidth    int `yaml:"im_width"`
	ImChannels int `yaml:"im_channels"`

	GripperMode string `yaml:"gripper_mode"`

	// AngularBins > 0 aktiviert winkelaufgeloestes Training.
	AngularBins int `yaml:"angular_bins"`

	// GripperDim ist die Eingabedimension eines optionalen Gripper-Streams.
	GripperDim int `yaml:"gripper_dim"`

	Architecture Architecture `yaml:"architecture"`
}

// TrainConfig ist die vollstaendige Training-Konfiguration. Die Feldnamen
// folgen der YAML-Quelle des Original-Frameworks.
type TrainConfig struct {
	DatasetDir string `yaml:"dataset_dir"`
	SplitName  string `yaml:"split_name"`

	TrainPct float64 `yaml:"train_pct"`
	TotalPct float64 `yaml:"total_pct"`

	TrainBatchSize int `yaml:"train_batch_size"`
	ValBatchSize   int `yaml:"val_batch_size"`
	NumEpochs      int `yaml:"num_epochs"`

	// Eval- und Save-Frequenz in Epochenbruchteilen, Log-Frequenz in
	// Optimierungsschritten (siehe training.Schedule.EverySteps).
	EvalFrequency float64 `yaml:"eval_frequency"`
	SaveFrequency float64 `yaml:"save_frequency"`
	LogFrequency  int     `yaml:"log_frequency"`
	MaxFilesEval  int     `yaml:"max_files_eval"`

	Loss         Loss         `yaml:"loss"`
	Optimizer    Optimizer    `yaml:"optimizer"`
	TrainingMode TrainingMode `yaml:"training_mode"`

	BaseLR              float64 `yaml:"base_lr"`
	DecayStepMultiplier float64 `yaml:"decay_step_multiplier"`
	DecayRate           float64 `yaml:"decay_rate"`
	MomentumRate        float64 `yaml:"momentum_rate"`
	TrainL2Regularizer  float64 `yaml:"train_l2_regularizer"`
	DropRate            float64 `yaml:"drop_rate"`
	MaxGlobalGradNorm   float64 `yaml:"max_global_grad_norm"`
	PosWeight           float64 `yaml:"pos_weight"`

	TargetMetricName string  `yaml:"target_metric_name"`
	MetricThresh     float64 `yaml:"metric_thresh"`

	Seed int64 `yaml:"seed"`

	ImageFieldName string `yaml:"image_field_name"`
	PoseFieldName  string `yaml:"pose_field_name"`

	GQCNN GQCNNConfig `yaml:"gqcnn"`
}

// =============================================================================
// Laden und Parsen
// =============================================================================

// Load liest und validiert eine Training-Konfiguration von der Platte.
func Load(path string) (*TrainConfig, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(bts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse dekodiert eine Training-Konfiguration, wendet Defaults an und
// validiert die Skalarfelder. Die architecture-Sektion wird hier nicht
// kompiliert; das uebernimmt arch.Compile ueber CompileInput.
func Parse(bts []byte) (*TrainConfig, error) {
	var c TrainConfig
	if err := yaml.Unmarshal(bts, &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *TrainConfig) applyDefaults() {
	if c.SplitName == "" {
		slog.Warn("using default image-wise split")
		c.SplitName = DefaultSplitName
	}
	if c.TotalPct == 0 {
		c.TotalPct = 1.0
	}
	if c.ImageFieldName == "" {
		c.ImageFieldName = DefaultImageField
	}
	if c.PoseFieldName == "" {
		c.PoseFieldName = DefaultPoseField
	}
}

// =============================================================================
// Validierung
// =============================================================================

// Validate prueft die Skalarfelder. Strukturfehler der Architektur meldet
// erst der Compiler; hier geht es um die Felder drumherum.
func (c *TrainConfig) Validate() error {
	switch c.Loss {
	case LossL2, LossSparse, LossWeightedCrossEntropy:
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedLoss, c.Loss)
	}
	switch c.Optimizer {
	case OptimizerMomentum, OptimizerAdam, OptimizerRMSProp:
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedOptimizer, c.Optimizer)
	}
	switch c.TrainingMode {
	case ModeClassification, ModeRegression:
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedTrainingMode, c.TrainingMode)
	}

	if c.TrainPct <= 0 || c.TrainPct > 1 {
		return fmt.Errorf("%w: train_pct must be in (0, 1], got %g", ErrInvalidField, c.TrainPct)
	}
	if c.TotalPct <= 0 || c.TotalPct > 1 {
		return fmt.Errorf("%w: total_pct must be in (0, 1], got %g", ErrInvalidField, c.TotalPct)
	}
	if c.TrainBatchSize <= 0 {
		return fmt.Errorf("%w: train_batch_size must be > 0, got %d", ErrInvalidField, c.TrainBatchSize)
	}
	if c.ValBatchSize <= 0 {
		return fmt.Errorf("%w: val_batch_size must be > 0, got %d", ErrInvalidField, c.ValBatchSize)
	}
	if c.NumEpochs <= 0 {
		return fmt.Errorf("%w: num_epochs must be > 0, got %d", ErrInvalidField, c.NumEpochs)
	}
	if c.BaseLR <= 0 {
		return fmt.Errorf("%w: base_lr must be > 0, got %g", ErrInvalidField, c.BaseLR)
	}
	if c.DecayRate <= 0 || c.DecayRate > 1 {
		return fmt.Errorf("%w: decay_rate must be in (0, 1], got %g", ErrInvalidField, c.DecayRate)
	}
	if c.DecayStepMultiplier <= 0 {
		return fmt.Errorf("%w: decay_step_multiplier must be > 0, got %g", ErrInvalidField, c.DecayStepMultiplier)
	}
	if c.Loss == LossWeightedCrossEntropy && c.PosWeight <= 0 {
		return fmt.Errorf("%w: pos_weight must be > 0 for weighted cross entropy", ErrInvalidField)
	}
	if _, err := gripper.Parse(c.GQCNN.GripperMode); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// Uebergabe an den Compiler
// =============================================================================

// CompileInput uebersetzt die Konfiguration in die Compiler-Eingabe.
func (c *TrainConfig) CompileInput() (arch.Input, error) {
	mode, err := gripper.Parse(c.GQCNN.GripperMode)
	if err != nil {
		return arch.Input{}, err
	}
	return arch.Input{
		Streams:     c.GQCNN.Architecture.Streams,
		ImHeight:    c.GQCNN.ImHeight,
		ImWidth:     c.GQCNN.ImWidth,
		ImChannels:  c.GQCNN.ImChannels,
		PoseDim:     mode.PoseDim(),
		GripperDim:  c.GQCNN.GripperDim,
		AngularBins: c.GQCNN.AngularBins,
	}, nil
}

// Compile kompiliert die architecture-Sektion zur Graph-Beschreibung.
func (c *TrainConfig) Compile() (*arch.GraphDescription, error) {
	in, err := c.CompileInput()
	if err != nil {
		return nil, err
	}
	return arch.Compile(in)
}
