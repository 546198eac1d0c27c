// Package classifier assembles the light detection model: a stack of
// convolutional feature-extractor blocks followed by a small
// classification head ending in a single sigmoid unit.
//
// The model carries no notion of a training phase. Freezing and
// unfreezing layer groups are explicit calls made by the training
// orchestrator.
package classifier

import (
	"fmt"
	"math/rand"

	"gorgonia.org/tensor"

	"github.com/Mahdi-Kalfat/IdeaTon/internal/nn"
)

// DropoutRate is the drop probability of the head's dropout layer.
const DropoutRate = 0.2

// backboneChannels is the channel progression of the feature
// extractor. Each block halves the spatial resolution.
var backboneChannels = []int{8, 16, 32, 64}

// HeadUnits is the width of the head's hidden dense layer.
const HeadUnits = 128

// Model is a differentiable function from a [H, W, 3] image tensor to
// a probability in [0, 1].
type Model struct {
	InputSize int

	backbone []nn.Layer
	head     []nn.Layer
	net      *nn.Sequential
}

// New builds a model with randomly initialized weights. The feature
// extractor is normally overwritten afterwards via
// LoadBackboneCheckpoint. rng drives both weight init and dropout.
func New(inputSize int, rng *rand.Rand) (*Model, error) {
	stride := 1 << len(backboneChannels)
	if inputSize <= 0 || inputSize%stride != 0 {
		return nil, fmt.Errorf("classifier: input size %v must be a positive multiple of %v", inputSize, stride)
	}

	var backbone []nn.Layer
	inC := 3
	for i, outC := range backboneChannels {
		prefix := fmt.Sprintf("features.%v", i)
		backbone = append(backbone,
			nn.NewConv2D(prefix+".conv", 3, inC, outC, rng),
			nn.NewReLU(prefix+".relu"),
			nn.NewMaxPool2(prefix+".pool"),
		)
		inC = outC
	}

	head := []nn.Layer{
		nn.NewGlobalAvgPool("head.gap"),
		nn.NewDense("head.fc1", inC, HeadUnits, rng),
		nn.NewReLU("head.relu"),
		nn.NewDropout("head.dropout", DropoutRate, rng),
		nn.NewDense("head.fc2", HeadUnits, 1, rng),
	}

	m := &Model{
		InputSize: inputSize,
		backbone:  backbone,
		head:      head,
		net:       nn.NewSequential(append(append([]nn.Layer{}, backbone...), head...)...),
	}
	return m, nil
}

// Net exposes the underlying layer stack for snapshot/restore.
func (m *Model) Net() *nn.Sequential { return m.net }

func (m *Model) Params() []*nn.Param { return m.net.Params() }

// BackboneLayerCount returns the number of layers in the feature
// extractor, the unit that UnfreezeLastLayers counts in.
func (m *Model) BackboneLayerCount() int { return len(m.backbone) }

// FreezeBackbone marks every feature-extractor param non-trainable.
func (m *Model) FreezeBackbone() {
	for _, l := range m.backbone {
		for _, p := range l.Params() {
			p.Trainable = false
		}
	}
}

// UnfreezeLastLayers makes the last k backbone layers trainable while
// keeping earlier ones frozen. k larger than the backbone unfreezes
// all of it.
func (m *Model) UnfreezeLastLayers(k int) {
	if k > len(m.backbone) {
		k = len(m.backbone)
	}
	for i, l := range m.backbone {
		trainable := i >= len(m.backbone)-k
		for _, p := range l.Params() {
			p.Trainable = trainable
		}
	}
}

// ForwardLogits runs a [N, H, W, 3] batch through the network and
// returns [N, 1] logits.
func (m *Model) ForwardLogits(x *tensor.Dense, training bool) *tensor.Dense {
	return m.net.Forward(x, training)
}

// Backward propagates the loss gradient, filling param gradients.
func (m *Model) Backward(dout *tensor.Dense) {
	m.net.Backward(dout)
}

// Score runs pure inference on a single [H, W, 3] tensor and returns
// the sigmoid probability. It mutates no model state, so concurrent
// calls are safe.
func (m *Model) Score(x *tensor.Dense) float32 {
	shape := x.Shape()
	batched := tensor.New(
		tensor.WithShape(1, shape[0], shape[1], shape[2]),
		tensor.WithBacking(x.Data().([]float32)),
	)
	logits := m.net.Forward(batched, false)
	return nn.Sigmoid(logits.Data().([]float32)[0])
}
