package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/disintegration/imaging"

	"github.com/Mahdi-Kalfat/IdeaTon/internal/dataset"
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
	parser := argparse.NewParser("preparedata", "Create and validate the training data layout")
	root := parser.String("d", "data", &argparse.Options{Help: "Training data directory", Default: "data/train"})
	create := parser.Flag("", "create", &argparse.Options{Help: "Create the directory structure", Default: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	if *create {
		createStructure(*root)
		return
	}
	if !validate(*root) {
		os.Exit(1)
	}
}

func createStructure(root string) {
	for _, class := range []string{dataset.DirLightsOn, dataset.DirLightsOff} {
		dir := filepath.Join(root, class)
		if err := os.MkdirAll(dir, 0770); err != nil {
			fmt.Printf("Failed to create %v: %v\n", dir, err)
			os.Exit(1)
		}
		fmt.Printf("Created: %v\n", dir)
	}
	fmt.Println("\nNext steps:")
	fmt.Printf("1. Add images with lights ON to:  %v\n", filepath.Join(root, dataset.DirLightsOn))
	fmt.Printf("2. Add images with lights OFF to: %v\n", filepath.Join(root, dataset.DirLightsOff))
	fmt.Println("3. Run the train command")
}

func validate(root string) bool {
	counts := map[string]int{}
	corrupt := 0
	for _, class := range []string{dataset.DirLightsOn, dataset.DirLightsOff} {
		dir := filepath.Join(root, class)
		entries, err := os.ReadDir(dir)
		if err != nil {
			fmt.Printf("Directory not found: %v\n", dir)
			fmt.Println("Run with --create to create the structure")
			return false
		}
		for _, e := range entries {
			if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			// Make sure every image actually decodes before training
			// trips over it.
			if _, err := imaging.Open(filepath.Join(dir, e.Name())); err != nil {
				fmt.Printf("Corrupt image: %v (%v)\n", filepath.Join(dir, e.Name()), err)
				corrupt++
				continue
			}
			counts[class]++
		}
	}

	total := counts[dataset.DirLightsOn] + counts[dataset.DirLightsOff]
	fmt.Println("==================================================")
	fmt.Println("DATASET STATISTICS")
	fmt.Println("==================================================")
	fmt.Printf("Lights ON images:  %v\n", counts[dataset.DirLightsOn])
	fmt.Printf("Lights OFF images: %v\n", counts[dataset.DirLightsOff])
	fmt.Printf("Total images:      %v\n", total)
	if corrupt > 0 {
		fmt.Printf("Corrupt images:    %v\n", corrupt)
	}
	fmt.Println("==================================================")

	switch {
	case total == 0:
		fmt.Println("\nNo images found. Please add images to the training folders.")
		return false
	case total < 20:
		fmt.Println("\nWARNING: Very few images (< 20). Recommended: at least 50-100 per category.")
	case total < 50:
		fmt.Println("\nWARNING: Limited images (< 50). Consider adding more for better accuracy.")
	default:
		fmt.Println("\nDataset looks ready for training.")
	}
	if counts[dataset.DirLightsOn] == 0 || counts[dataset.DirLightsOff] == 0 {
		fmt.Println("One of the classes has no images; training will fail.")
		return false
	}
	return true
}
