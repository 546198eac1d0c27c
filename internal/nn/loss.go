package nn

import (
	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
)

// BCEWithLogits computes mean binary cross-entropy over a batch of
// logits with shape [N, 1] and labels of length N, along with the
// gradient with respect to the logits. Working in logit space keeps the
// loss finite for saturated predictions.
func BCEWithLogits(logits *tensor.Dense, labels []float32) (float32, *tensor.Dense) {
	ld := dataOf(logits)
	n := len(labels)
	grad := newDense(logits.Shape()...)
	gd := dataOf(grad)

	var loss float32
	inv := 1 / float32(n)
	for i := 0; i < n; i++ {
		z := ld[i]
		y := labels[i]
		// log(1 + e^-|z|) + max(z, 0) - z*y is the stable form.
		loss += math32.Log(1+math32.Exp(-math32.Abs(z))) + math32.Max(z, 0) - z*y
		gd[i] = (Sigmoid(z) - y) * inv
	}
	return loss * inv, grad
}

// Accuracy is the fraction of logits whose thresholded score matches
// the label, using the 0.5 score boundary (logit 0).
func Accuracy(logits *tensor.Dense, labels []float32) float32 {
	ld := dataOf(logits)
	var correct int
	for i, y := range labels {
		pred := float32(0)
		if ld[i] >= 0 {
			pred = 1
		}
		if pred == y {
			correct++
		}
	}
	return float32(correct) / float32(len(labels))
}
