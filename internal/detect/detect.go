// Package detect is the inference side of the light detector: it loads
// a trained model artifact once and turns images into labeled
// predictions.
package detect

import (
	"math/rand"
	"time"

	"github.com/cyclopcam/logs"

	"github.com/Mahdi-Kalfat/IdeaTon/internal/classifier"
	"github.com/Mahdi-Kalfat/IdeaTon/internal/imgproc"
)

// DefaultThreshold is the score cutoff between ON and OFF.
const DefaultThreshold = 0.5

const (
	LabelOn  = "LIGHTS ON"
	LabelOff = "LIGHTS OFF"
)

// Prediction is the outcome of classifying one image. Confidence is
// the score's distance from the decision boundary as a percentage:
// score*100 for ON, (1-score)*100 for OFF. With the default threshold
// it lands in [50, 100]; for other thresholds it can fall outside that
// range, which is long-standing documented behavior we keep as-is.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	RawScore   float64 `json:"raw_score"`
	Source     string  `json:"source,omitempty"`
}

// Detector owns one loaded model. Load happens once, in NewDetector;
// after that the detector holds no mutable cross-call state, so
// concurrent Predict calls are safe. Run several Detectors in one
// process to serve several artifacts side by side.
type Detector struct {
	log   logs.Log
	model *classifier.Model
}

// NewDetector loads the artifact at path. Returns
// *classifier.ArtifactNotFoundError if no artifact exists there, which
// callers should treat as fatal at startup.
func NewDetector(log logs.Log, artifactPath string) (*Detector, error) {
	// The rng only matters if this model is trained further; inference
	// never draws from it.
	model, err := classifier.Load(artifactPath, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return nil, err
	}
	log.Infof("Loaded model artifact %v (input %vx%v)", artifactPath, model.InputSize, model.InputSize)
	return &Detector{log: log, model: model}, nil
}

// Decide maps a score to (label, confidence) for a given threshold.
func Decide(score float32, threshold float32) (string, float64) {
	if score >= threshold {
		return LabelOn, float64(score) * 100
	}
	return LabelOff, float64(1-score) * 100
}

// Predict classifies one encoded image. Returns *imgproc.DecodeError
// for undecodable input.
func (d *Detector) Predict(image []byte, threshold float32) (*Prediction, error) {
	t, err := imgproc.Preprocess(image, d.model.InputSize)
	if err != nil {
		return nil, err
	}
	score := d.model.Score(t)
	label, confidence := Decide(score, threshold)
	return &Prediction{
		Label:      label,
		Confidence: confidence,
		RawScore:   float64(score),
	}, nil
}

// PredictBatch classifies images independently, in order. It is
// exactly equivalent to repeated Predict calls; it exists for caller
// convenience only.
func (d *Detector) PredictBatch(images [][]byte, threshold float32) ([]*Prediction, error) {
	results := make([]*Prediction, 0, len(images))
	for _, img := range images {
		p, err := d.Predict(img, threshold)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, nil
}
