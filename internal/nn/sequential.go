package nn

import (
	"gorgonia.org/tensor"
)

// Sequential chains layers. It has no notion of training phase; which
// params are trainable is decided by whoever owns the model.
type Sequential struct {
	Layers []Layer
}

func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{Layers: layers}
}

func (s *Sequential) Forward(x *tensor.Dense, training bool) *tensor.Dense {
	for _, l := range s.Layers {
		x = l.Forward(x, training)
	}
	return x
}

// Backward propagates dout through every layer in reverse, populating
// param gradients along the way. The gradient always flows through
// frozen layers too: an earlier trainable layer still needs it.
func (s *Sequential) Backward(dout *tensor.Dense) *tensor.Dense {
	for i := len(s.Layers) - 1; i >= 0; i-- {
		dout = s.Layers[i].Backward(dout)
	}
	return dout
}

func (s *Sequential) Params() []*Param {
	var params []*Param
	for _, l := range s.Layers {
		params = append(params, l.Params()...)
	}
	return params
}

// Snapshot deep-copies every param value, for best-weights
// checkpointing during early stopping.
func (s *Sequential) Snapshot() [][]float32 {
	params := s.Params()
	snap := make([][]float32, len(params))
	for i, p := range params {
		src := dataOf(p.Value)
		dst := make([]float32, len(src))
		copy(dst, src)
		snap[i] = dst
	}
	return snap
}

// Restore copies a snapshot taken from the same network back into the
// param values.
func (s *Sequential) Restore(snap [][]float32) {
	params := s.Params()
	for i, p := range params {
		copy(dataOf(p.Value), snap[i])
	}
}
