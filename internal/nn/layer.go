// Package nn implements the small set of neural network layers that the
// light classifier is built from, with forward and backward passes over
// float32 tensors in NHWC layout.
package nn

import (
	"math/rand"

	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
)

// Param is one learnable variable. Trainability is first-class state:
// the optimizer skips params whose Trainable flag is off, which is how
// the frozen/unfrozen phases of transfer learning are expressed.
type Param struct {
	Name      string
	Value     *tensor.Dense
	Grad      *tensor.Dense
	Trainable bool
}

// Layer is a differentiable building block. Forward with training=false
// must not mutate any layer state, so pure inference is safe to call
// concurrently. Backward may only be called after a Forward with
// training=true, and consumes the gradient of the loss with respect to
// the layer's output.
type Layer interface {
	Name() string
	Forward(x *tensor.Dense, training bool) *tensor.Dense
	Backward(dout *tensor.Dense) *tensor.Dense
	Params() []*Param
}

func newDense(shape ...int) *tensor.Dense {
	return tensor.New(tensor.Of(tensor.Float32), tensor.WithShape(shape...))
}

func dataOf(t *tensor.Dense) []float32 {
	return t.Data().([]float32)
}

func newParam(name string, shape ...int) *Param {
	return &Param{
		Name:      name,
		Value:     newDense(shape...),
		Grad:      newDense(shape...),
		Trainable: true,
	}
}

// heInit fills p with He-normal initialization, the usual choice for
// layers followed by a rectifier.
func heInit(p *Param, fanIn int, rng *rand.Rand) {
	std := math32.Sqrt(2 / float32(fanIn))
	data := dataOf(p.Value)
	for i := range data {
		data[i] = float32(rng.NormFloat64()) * std
	}
}

func zeroSlice(s []float32) {
	for i := range s {
		s[i] = 0
	}
}

// Sigmoid is the logistic function.
func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}
