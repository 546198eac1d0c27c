package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"

	"github.com/Mahdi-Kalfat/IdeaTon/internal/dataset"
	"github.com/Mahdi-Kalfat/IdeaTon/internal/train"
)

// learningRates resolves the per-phase rates from the flags: the
// fine-tune rate defaults to a tenth of the phase 1 rate when not set
// explicitly.
func learningRates(lr, fineTuneLR float64) (float32, float32) {
	if fineTuneLR > 0 {
		return float32(lr), float32(fineTuneLR)
	}
	return float32(lr), float32(lr) / 10
}

func main() {
	parser := argparse.NewParser("train", "Train the light detection model")
	dataDir := parser.String("d", "data", &argparse.Options{Help: "Training data directory (containing lights_on/ and lights_off/)", Default: "data/train"})
	artifact := parser.String("o", "out", &argparse.Options{Help: "Output model artifact path", Default: "light_detection_model.bin"})
	backbone := parser.String("b", "backbone", &argparse.Options{Help: "Pretrained feature extractor checkpoint", Default: ""})
	lr := parser.Float("", "lr", &argparse.Options{Help: "Phase 1 learning rate", Default: 0.001})
	fineTuneLR := parser.Float("", "finetune-lr", &argparse.Options{Help: "Fine-tune phase learning rate (default: lr/10)", Default: 0.0})
	epochs := parser.Int("e", "epochs", &argparse.Options{Help: "Max epochs for the head-only phase", Default: 20})
	fineTuneEpochs := parser.Int("", "finetune-epochs", &argparse.Options{Help: "Max epochs for the fine-tune phase", Default: 10})
	batchSize := parser.Int("", "batch", &argparse.Options{Help: "Batch size", Default: 32})
	unfreeze := parser.Int("", "unfreeze", &argparse.Options{Help: "Feature extractor layers to unfreeze for fine-tuning", Default: 20})
	patience := parser.Int("", "patience", &argparse.Options{Help: "Early stopping patience (epochs)", Default: 5})
	seed := parser.Int("", "seed", &argparse.Options{Help: "Random seed for reproducible runs", Default: 1})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg := train.DefaultConfig()
	cfg.ArtifactPath = *artifact
	cfg.PretrainedBackbone = *backbone
	cfg.LR1, cfg.LR2 = learningRates(*lr, *fineTuneLR)
	cfg.MaxEpochsPhase1 = *epochs
	cfg.MaxEpochsPhase2 = *fineTuneEpochs
	cfg.BatchSize = *batchSize
	cfg.UnfreezeDepth = *unfreeze
	cfg.Patience = *patience
	cfg.Seed = int64(*seed)

	trainer, err := train.NewTrainer(logger, cfg)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	result, err := trainer.Train(*dataDir)
	if err != nil {
		if dsErr, ok := err.(*dataset.DatasetError); ok {
			fmt.Printf("%v\n\n", dsErr)
			fmt.Println("Please organize your data as follows:")
			fmt.Println("  data/train/lights_on/   - images with lights on")
			fmt.Println("  data/train/lights_off/  - images with lights off")
		} else {
			fmt.Printf("Training failed: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Training complete. Model saved to %v\n", result.ArtifactPath)
	fmt.Printf("  val_loss=%.4f val_accuracy=%.4f\n", result.ValLoss, result.ValAccuracy)
}
