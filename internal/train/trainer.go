// Package train runs the two-phase transfer learning protocol:
// a head-only phase with the feature extractor frozen, followed by a
// fine-tune phase where the last layers of the extractor are unfrozen
// and trained at a lower rate.
package train

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/cyclopcam/logs"
	"gorgonia.org/tensor"

	"github.com/Mahdi-Kalfat/IdeaTon/internal/augment"
	"github.com/Mahdi-Kalfat/IdeaTon/internal/classifier"
	"github.com/Mahdi-Kalfat/IdeaTon/internal/dataset"
	"github.com/Mahdi-Kalfat/IdeaTon/internal/nn"
)

// Phase is the current training stage. The model itself knows nothing
// about phases; transitions are performed here.
type Phase int

const (
	PhaseHeadOnly Phase = iota
	PhaseFineTune
)

func (p Phase) String() string {
	switch p {
	case PhaseHeadOnly:
		return "head-only"
	case PhaseFineTune:
		return "fine-tune"
	}
	return "unknown"
}

// DivergenceError means training loss became non-finite. Fatal: the
// run aborts without writing an artifact.
type DivergenceError struct {
	Phase Phase
	Epoch int
	Loss  float32
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("training diverged in %v phase, epoch %v: loss is %v", e.Phase, e.Epoch+1, e.Loss)
}

// RunState is the live state of one training invocation. It is not
// persisted beyond the final artifact.
type RunState struct {
	Phase        Phase
	Epoch        int
	BestValLoss  float32
	SinceImprove int
	EarlyStopped bool
}

// Result summarizes a completed run.
type Result struct {
	ArtifactPath string
	TrainLoss    float32
	ValLoss      float32
	ValAccuracy  float32
	EpochsPhase1 int
	EpochsPhase2 int

	// MonitoredLoss is the per-epoch loss that early stopping tracked
	// (validation loss, or training loss when there is no holdout),
	// phase 1 epochs followed by phase 2 epochs.
	MonitoredLoss []float32
}

// Trainer produces a validated model artifact from a labeled dataset.
type Trainer struct {
	log logs.Log
	cfg Config
}

func NewTrainer(log logs.Log, cfg Config) (*Trainer, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Trainer{log: log, cfg: cfg}, nil
}

// Train runs both phases and persists the artifact. It returns a
// *dataset.DatasetError if the training directory is unusable and a
// *DivergenceError if the loss becomes non-finite.
func (t *Trainer) Train(datasetDir string) (*Result, error) {
	cfg := t.cfg
	rng := rand.New(rand.NewSource(cfg.Seed))

	samples, err := dataset.Scan(datasetDir)
	if err != nil {
		return nil, err
	}
	valFraction := cfg.ValidationSplit
	if valFraction < 0 {
		valFraction = 0
	}
	split := dataset.NewSplit(samples, valFraction, rng)
	t.log.Infof("Dataset: %v training samples, %v validation samples", len(split.Train), len(split.Validation))
	if len(split.Validation) == 0 {
		t.log.Warnf("No validation samples; early stopping will track training loss")
	}

	model, err := classifier.New(cfg.InputSize, rng)
	if err != nil {
		return nil, err
	}
	if cfg.PretrainedBackbone != "" {
		if err := model.LoadBackboneCheckpoint(cfg.PretrainedBackbone); err != nil {
			return nil, err
		}
		t.log.Infof("Loaded pretrained feature extractor from %v", cfg.PretrainedBackbone)
	} else {
		t.log.Warnf("No pretrained backbone configured; feature extractor starts from random weights")
	}

	aug, err := augment.New(cfg.Augment, rng)
	if err != nil {
		return nil, err
	}
	loader := dataset.NewLoader(t.log, cfg.InputSize)

	result := &Result{ArtifactPath: cfg.ArtifactPath}

	// Phase 1: train only the classification head.
	model.FreezeBackbone()
	state := &RunState{Phase: PhaseHeadOnly}
	opt := nn.NewAdam(cfg.LR1)
	t.log.Infof("Phase 1 (%v): extractor frozen, lr=%v", state.Phase, cfg.LR1)
	if err := t.runPhase(model, opt, split, aug, loader, state, cfg.MaxEpochsPhase1, result); err != nil {
		return nil, err
	}
	result.EpochsPhase1 = state.Epoch

	// Phase 2: unfreeze the tail of the extractor, recompile at the
	// lower rate. Fresh optimizer state, as a recompile implies.
	model.UnfreezeLastLayers(cfg.UnfreezeDepth)
	state = &RunState{Phase: PhaseFineTune}
	opt = nn.NewAdam(cfg.LR2)
	t.log.Infof("Phase 2 (%v): last %v extractor layers trainable (of %v), lr=%v",
		state.Phase, cfg.UnfreezeDepth, model.BackboneLayerCount(), cfg.LR2)
	if err := t.runPhase(model, opt, split, aug, loader, state, cfg.MaxEpochsPhase2, result); err != nil {
		return nil, err
	}
	result.EpochsPhase2 = state.Epoch

	if err := model.Save(cfg.ArtifactPath); err != nil {
		return nil, err
	}
	t.log.Infof("Training complete: loss=%.4f val_loss=%.4f val_accuracy=%.4f, artifact %v",
		result.TrainLoss, result.ValLoss, result.ValAccuracy, cfg.ArtifactPath)
	return result, nil
}

// runPhase runs epochs until maxEpochs or early stop. On early stop
// (and at normal phase end) the best-observed weights are restored, so
// what carries forward is never a worse-than-best final epoch.
func (t *Trainer) runPhase(model *classifier.Model, opt *nn.Adam, split dataset.Split,
	aug *augment.Augmenter, loader *dataset.Loader, state *RunState, maxEpochs int, result *Result,
) error {
	stopper := newEarlyStopper(t.cfg.Patience, t.cfg.MinDelta)
	var bestWeights [][]float32
	rng := rand.New(rand.NewSource(t.cfg.Seed + int64(state.Phase) + 1))

	trainOrder := make([]dataset.Sample, len(split.Train))
	copy(trainOrder, split.Train)

	for epoch := 0; epoch < maxEpochs; epoch++ {
		state.Epoch = epoch + 1

		rng.Shuffle(len(trainOrder), func(i, j int) {
			trainOrder[i], trainOrder[j] = trainOrder[j], trainOrder[i]
		})
		trainLoss, err := t.runTrainEpoch(model, opt, trainOrder, aug, loader)
		if err != nil {
			return err
		}
		if !finite(trainLoss) {
			return &DivergenceError{Phase: state.Phase, Epoch: epoch, Loss: trainLoss}
		}

		valLoss, valAcc, err := t.evaluate(model, split.Validation, loader)
		if err != nil {
			return err
		}
		monitored := valLoss
		if len(split.Validation) == 0 {
			monitored = trainLoss
		}
		if !finite(monitored) {
			return &DivergenceError{Phase: state.Phase, Epoch: epoch, Loss: monitored}
		}

		result.MonitoredLoss = append(result.MonitoredLoss, monitored)
		improved, stop := stopper.observe(monitored)
		state.BestValLoss = stopper.best
		state.SinceImprove = stopper.sinceBest
		if improved {
			bestWeights = model.Net().Snapshot()
		}
		t.log.Infof("[%v] epoch %v/%v: loss=%.4f val_loss=%.4f val_accuracy=%.4f (best=%.4f, since_improve=%v)",
			state.Phase, state.Epoch, maxEpochs, trainLoss, valLoss, valAcc, stopper.best, stopper.sinceBest)

		result.TrainLoss = trainLoss
		result.ValLoss = valLoss
		result.ValAccuracy = valAcc

		if stop {
			state.EarlyStopped = true
			t.log.Infof("[%v] early stopping after %v epochs without improvement", state.Phase, stopper.sinceBest)
			break
		}
	}

	if bestWeights != nil {
		model.Net().Restore(bestWeights)
		if len(split.Validation) > 0 {
			valLoss, valAcc, err := t.evaluate(model, split.Validation, loader)
			if err != nil {
				return err
			}
			result.ValLoss = valLoss
			result.ValAccuracy = valAcc
		}
	}
	return nil
}

func (t *Trainer) runTrainEpoch(model *classifier.Model, opt *nn.Adam,
	order []dataset.Sample, aug *augment.Augmenter, loader *dataset.Loader,
) (float32, error) {
	var totalLoss float32
	var batches int
	for start := 0; start < len(order); start += t.cfg.BatchSize {
		end := start + t.cfg.BatchSize
		if end > len(order) {
			end = len(order)
		}
		batch := order[start:end]

		tensors := make([]*tensor.Dense, len(batch))
		labels := make([]float32, len(batch))
		for i, s := range batch {
			base, err := loader.Base(s)
			if err != nil {
				return 0, err
			}
			tensors[i] = aug.Apply(base)
			labels[i] = s.Label
		}

		logits := model.ForwardLogits(dataset.Stack(tensors), true)
		loss, grad := nn.BCEWithLogits(logits, labels)
		model.Backward(grad)
		opt.Step(model.Params())

		totalLoss += loss
		batches++
	}
	return totalLoss / float32(batches), nil
}

// evaluate runs un-augmented validation batches. Augmented data must
// never reach validation; it would corrupt the early-stop signal.
func (t *Trainer) evaluate(model *classifier.Model, samples []dataset.Sample, loader *dataset.Loader) (float32, float32, error) {
	if len(samples) == 0 {
		return 0, 0, nil
	}
	var totalLoss, totalAcc float32
	var batches int
	for start := 0; start < len(samples); start += t.cfg.BatchSize {
		end := start + t.cfg.BatchSize
		if end > len(samples) {
			end = len(samples)
		}
		batch := samples[start:end]

		tensors := make([]*tensor.Dense, len(batch))
		labels := make([]float32, len(batch))
		for i, s := range batch {
			base, err := loader.Base(s)
			if err != nil {
				return 0, 0, err
			}
			tensors[i] = base
			labels[i] = s.Label
		}

		logits := model.ForwardLogits(dataset.Stack(tensors), false)
		loss, _ := nn.BCEWithLogits(logits, labels)
		totalLoss += loss
		totalAcc += nn.Accuracy(logits, labels)
		batches++
	}
	return totalLoss / float32(batches), totalAcc / float32(batches), nil
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
