package train

import (
	"fmt"

	"github.com/Mahdi-Kalfat/IdeaTon/internal/augment"
)

// Config is everything a training run needs. Zero values are filled in
// by WithDefaults; Validate rejects configs that would corrupt the
// pretrained weights or make no progress.
type Config struct {
	InputSize int // model input resolution (square)
	BatchSize int

	LR1 float32 // head-only phase learning rate
	LR2 float32 // fine-tune phase learning rate, must be < LR1

	// UnfreezeDepth is how many trailing feature-extractor layers
	// become trainable in the fine-tune phase.
	UnfreezeDepth int

	Augment augment.Config

	Patience        int     // epochs without improvement before early stop
	MinDelta        float32 // improvement smaller than this doesn't count; zero takes the default
	MaxEpochsPhase1 int
	MaxEpochsPhase2 int

	// ValidationSplit is the fraction of samples held out for
	// validation. Zero takes the default; negative disables the holdout
	// entirely, in which case early stopping monitors training loss.
	ValidationSplit float64

	// PretrainedBackbone is the checkpoint the feature extractor is
	// initialized from. Empty means random init (accuracy will suffer).
	PretrainedBackbone string

	ArtifactPath string

	// Seed drives shuffling, augmentation, dropout and weight init.
	// Two runs with the same dataset, config and seed produce the same
	// result. Zero keeps the default seed of 1.
	Seed int64
}

// DefaultConfig mirrors the hyperparameters the model was tuned with.
func DefaultConfig() Config {
	return Config{
		InputSize:       224,
		BatchSize:       32,
		LR1:             1e-3,
		LR2:             1e-4,
		UnfreezeDepth:   20,
		Augment:         augment.DefaultConfig(),
		Patience:        5,
		MinDelta:        1e-4,
		MaxEpochsPhase1: 20,
		MaxEpochsPhase2: 10,
		ValidationSplit: 0.2,
		ArtifactPath:    "light_detection_model.bin",
		Seed:            1,
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.InputSize == 0 {
		c.InputSize = def.InputSize
	}
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.LR1 == 0 {
		c.LR1 = def.LR1
	}
	if c.LR2 == 0 {
		c.LR2 = def.LR2
	}
	if c.UnfreezeDepth == 0 {
		c.UnfreezeDepth = def.UnfreezeDepth
	}
	if c.Patience == 0 {
		c.Patience = def.Patience
	}
	if c.MinDelta == 0 {
		c.MinDelta = def.MinDelta
	}
	if c.MaxEpochsPhase1 == 0 {
		c.MaxEpochsPhase1 = def.MaxEpochsPhase1
	}
	if c.MaxEpochsPhase2 == 0 {
		c.MaxEpochsPhase2 = def.MaxEpochsPhase2
	}
	if c.ValidationSplit == 0 {
		c.ValidationSplit = def.ValidationSplit
	}
	if c.ArtifactPath == "" {
		c.ArtifactPath = def.ArtifactPath
	}
	if c.Seed == 0 {
		c.Seed = def.Seed
	}
	return c
}

// Validate rejects configurations that are wrong rather than merely
// unusual.
func (c *Config) Validate() error {
	if c.LR2 >= c.LR1 {
		// Fine-tuning a partially pretrained network at the phase 1
		// rate destroys the pretrained weights.
		return fmt.Errorf("train: fine-tune learning rate %v must be less than phase 1 rate %v", c.LR2, c.LR1)
	}
	if c.LR1 <= 0 || c.LR2 <= 0 {
		return fmt.Errorf("train: learning rates must be positive")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("train: batch size %v must be at least 1", c.BatchSize)
	}
	if c.ValidationSplit >= 1 {
		return fmt.Errorf("train: validation split %v must be below 1", c.ValidationSplit)
	}
	if c.Patience < 1 {
		return fmt.Errorf("train: patience %v must be at least 1", c.Patience)
	}
	if c.UnfreezeDepth < 1 {
		return fmt.Errorf("train: unfreeze depth %v must be at least 1", c.UnfreezeDepth)
	}
	if c.ArtifactPath == "" {
		return fmt.Errorf("train: artifact path is required")
	}
	return nil
}
