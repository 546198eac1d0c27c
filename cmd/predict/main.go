package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"

	"github.com/Mahdi-Kalfat/IdeaTon/internal/detect"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".webp": true,
}

func main() {
	parser := argparse.NewParser("predict", "Detect if lights are ON or OFF in images")
	imagePath := parser.String("i", "image", &argparse.Options{Help: "Path to the image file or directory", Required: true})
	model := parser.String("m", "model", &argparse.Options{Help: "Path to the trained model artifact", Default: "light_detection_model.bin"})
	threshold := parser.Float("t", "threshold", &argparse.Options{Help: "Decision threshold", Default: 0.5})
	batch := parser.Flag("b", "batch", &argparse.Options{Help: "Process all images in a directory", Default: false})
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

	detector, err := detect.NewDetector(logger, *model)
	if err != nil {
		fmt.Printf("%v\n", err)
		fmt.Println("\nPlease train the model first with the train command")
		os.Exit(1)
	}

	if *batch {
		predictDirectory(detector, *imagePath, float32(*threshold))
	} else {
		predictSingle(detector, *imagePath, float32(*threshold))
	}
}

func predictSingle(detector *detect.Detector, path string, threshold float32) {
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Cannot read image '%v': %v\n", path, err)
		os.Exit(1)
	}
	pred, err := detector.Predict(raw, threshold)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Prediction: %v\n", pred.Label)
	fmt.Printf("Confidence: %.2f%%\n", pred.Confidence)
	fmt.Printf("Raw Score:  %.4f\n", pred.RawScore)
}

func predictDirectory(detector *detect.Detector, dir string, threshold float32) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Printf("Cannot read directory '%v': %v\n", dir, err)
		os.Exit(1)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		fmt.Printf("No image files found in %v\n", dir)
		os.Exit(1)
	}

	fmt.Printf("Processing %v images...\n\n", len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			fmt.Printf("%v: cannot read: %v\n", filepath.Base(p), err)
			continue
		}
		pred, err := detector.Predict(raw, threshold)
		if err != nil {
			// A corrupt image is skipped, not fatal to the batch.
			fmt.Printf("%v: %v\n", filepath.Base(p), err)
			continue
		}
		fmt.Printf("%v\n", filepath.Base(p))
		fmt.Printf("  Prediction: %v\n", pred.Label)
		fmt.Printf("  Confidence: %.2f%%\n", pred.Confidence)
		fmt.Printf("  Raw Score:  %.4f\n\n", pred.RawScore)
	}
}
