// Package dataset scans the labeled training directory layout
//
//	<root>/lights_on/*.jpg
//	<root>/lights_off/*.jpg
//
// and partitions the samples into training and validation subsets.
package dataset

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Directory names double as the label vocabulary. lights_on maps to
// label 1, matching the alphabetical class ordering of the original
// training data generator.
const (
	DirLightsOn  = "lights_on"
	DirLightsOff = "lights_off"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".webp": true,
}

// DatasetError means the training directory is missing, empty, or has
// no samples in one of the label classes. Fatal to a training run.
type DatasetError struct {
	Dir    string
	Reason string
}

func (e *DatasetError) Error() string {
	return fmt.Sprintf("dataset '%v': %v", e.Dir, e.Reason)
}

// Sample is one labeled image on disk. The file is never mutated; the
// in-memory tensor is regenerated per augmentation draw.
type Sample struct {
	Path  string
	Label float32 // 1 = lights on, 0 = lights off
}

// Split partitions samples into training and validation subsets. The
// partition is fixed at construction and must not change during a run.
type Split struct {
	Train      []Sample
	Validation []Sample
}

// Scan collects all labeled samples under root. Paths are returned in
// deterministic (sorted) order so a seeded shuffle is reproducible.
func Scan(root string) ([]Sample, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, &DatasetError{Dir: root, Reason: "directory does not exist"}
	}
	on, err := scanClass(filepath.Join(root, DirLightsOn), 1)
	if err != nil {
		return nil, err
	}
	off, err := scanClass(filepath.Join(root, DirLightsOff), 0)
	if err != nil {
		return nil, err
	}
	if len(on) == 0 {
		return nil, &DatasetError{Dir: root, Reason: "no images in class " + DirLightsOn}
	}
	if len(off) == 0 {
		return nil, &DatasetError{Dir: root, Reason: "no images in class " + DirLightsOff}
	}
	samples := append(on, off...)
	sort.Slice(samples, func(i, j int) bool { return samples[i].Path < samples[j].Path })
	return samples, nil
}

func scanClass(dir string, label float32) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, &DatasetError{Dir: dir, Reason: "class directory does not exist"}
	} else if err != nil {
		return nil, &DatasetError{Dir: dir, Reason: err.Error()}
	}
	var samples []Sample
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !imageExtensions[ext] {
			continue
		}
		samples = append(samples, Sample{Path: filepath.Join(dir, e.Name()), Label: label})
	}
	return samples, nil
}

// NewSplit shuffles samples with rng and holds out valFraction of them
// for validation. With the same rng seed and sample list the partition
// is identical run to run.
func NewSplit(samples []Sample, valFraction float64, rng *rand.Rand) Split {
	shuffled := make([]Sample, len(samples))
	copy(shuffled, samples)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	nVal := int(float64(len(shuffled)) * valFraction)
	if nVal < 1 && len(shuffled) > 1 && valFraction > 0 {
		nVal = 1
	}
	return Split{
		Train:      shuffled[nVal:],
		Validation: shuffled[:nVal],
	}
}
