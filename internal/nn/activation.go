package nn

import (
	"math/rand"

	"gorgonia.org/tensor"
)

// ReLU is a rectified linear activation. Works on any shape.
type ReLU struct {
	name string
	mask []bool
}

func NewReLU(name string) *ReLU {
	return &ReLU{name: name}
}

func (r *ReLU) Name() string     { return r.name }
func (r *ReLU) Params() []*Param { return nil }

func (r *ReLU) Forward(x *tensor.Dense, training bool) *tensor.Dense {
	out := newDense(x.Shape()...)
	xd := dataOf(x)
	od := dataOf(out)
	var mask []bool
	if training {
		mask = make([]bool, len(xd))
	}
	for i, v := range xd {
		if v > 0 {
			od[i] = v
			if training {
				mask[i] = true
			}
		}
	}
	if training {
		r.mask = mask
	}
	return out
}

func (r *ReLU) Backward(dout *tensor.Dense) *tensor.Dense {
	dx := newDense(dout.Shape()...)
	dod := dataOf(dout)
	dxd := dataOf(dx)
	for i, pass := range r.mask {
		if pass {
			dxd[i] = dod[i]
		}
	}
	return dx
}

// Dropout zeroes a random fraction of activations during training and
// rescales the survivors (inverted dropout), so inference needs no
// adjustment. Inactive (identity) when training=false.
type Dropout struct {
	name string
	rate float32
	rng  *rand.Rand
	mask []float32
}

func NewDropout(name string, rate float32, rng *rand.Rand) *Dropout {
	return &Dropout{name: name, rate: rate, rng: rng}
}

func (d *Dropout) Name() string     { return d.name }
func (d *Dropout) Params() []*Param { return nil }

func (d *Dropout) Forward(x *tensor.Dense, training bool) *tensor.Dense {
	if !training || d.rate <= 0 {
		return x
	}
	out := newDense(x.Shape()...)
	xd := dataOf(x)
	od := dataOf(out)
	mask := make([]float32, len(xd))
	keep := 1 - d.rate
	scale := 1 / keep
	for i := range xd {
		if float32(d.rng.Float64()) < keep {
			mask[i] = scale
			od[i] = xd[i] * scale
		}
	}
	d.mask = mask
	return out
}

func (d *Dropout) Backward(dout *tensor.Dense) *tensor.Dense {
	if d.rate <= 0 {
		return dout
	}
	dx := newDense(dout.Shape()...)
	dod := dataOf(dout)
	dxd := dataOf(dx)
	for i, m := range d.mask {
		dxd[i] = dod[i] * m
	}
	return dx
}
