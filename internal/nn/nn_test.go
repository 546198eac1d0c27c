package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func randTensor(rng *rand.Rand, shape ...int) *tensor.Dense {
	t := newDense(shape...)
	data := dataOf(t)
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return t
}

// scalarLoss is the dot product of the layer output with fixed
// coefficients, a scalar whose analytic gradient is just the
// coefficients themselves.
func scalarLoss(l Layer, x *tensor.Dense, coeffs []float32, training bool) float64 {
	out := dataOf(l.Forward(x, training))
	var sum float64
	for i, v := range out {
		sum += float64(v) * float64(coeffs[i])
	}
	return sum
}

// checkGrads compares the analytic gradients produced by Backward
// against central-difference numeric gradients for every param and for
// the input.
func checkGrads(t *testing.T, l Layer, x *tensor.Dense, outLen int) {
	rng := rand.New(rand.NewSource(99))
	coeffs := make([]float32, outLen)
	for i := range coeffs {
		coeffs[i] = float32(rng.NormFloat64())
	}

	// Analytic pass.
	out := l.Forward(x, true)
	require.Equal(t, outLen, len(dataOf(out)))
	dout := newDense(out.Shape()...)
	copy(dataOf(dout), coeffs)
	dx := l.Backward(dout)

	const eps = 1e-2
	const tol = 5e-3

	for _, p := range l.Params() {
		val := dataOf(p.Value)
		grad := dataOf(p.Grad)
		for i := range val {
			orig := val[i]
			val[i] = orig + eps
			plus := scalarLoss(l, x, coeffs, true)
			val[i] = orig - eps
			minus := scalarLoss(l, x, coeffs, true)
			val[i] = orig
			numeric := (plus - minus) / (2 * eps)
			require.InDelta(t, numeric, float64(grad[i]), tol, "%v value %v", p.Name, i)
		}
	}
	// Re-run so the cached forward state matches x again.
	l.Forward(x, true)

	xd := dataOf(x)
	dxd := dataOf(dx)
	for i := range xd {
		orig := xd[i]
		xd[i] = orig + eps
		plus := scalarLoss(l, x, coeffs, true)
		xd[i] = orig - eps
		minus := scalarLoss(l, x, coeffs, true)
		xd[i] = orig
		numeric := (plus - minus) / (2 * eps)
		require.InDelta(t, numeric, float64(dxd[i]), tol, "input %v", i)
	}
}

func TestDenseGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDense("fc", 3, 2, rng)
	x := randTensor(rng, 2, 3)
	checkGrads(t, d, x, 2*2)
}

func TestConv2DGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	c := NewConv2D("conv", 3, 2, 3, rng)
	x := randTensor(rng, 1, 4, 4, 2)
	checkGrads(t, c, x, 1*4*4*3)
}

func TestReLUGradients(t *testing.T) {
	// Values sit well away from zero so the finite-difference
	// perturbation can't cross the kink.
	r := NewReLU("relu")
	x := newDense(2, 5)
	copy(dataOf(x), []float32{-1.5, 0.7, 2.1, -0.4, 1.2, 0.9, -2.2, 0.5, -0.8, 1.7})
	checkGrads(t, r, x, 2*5)
}

func TestMaxPoolGradients(t *testing.T) {
	// Well-separated values so the argmax can't flip under the
	// finite-difference perturbation.
	p := NewMaxPool2("pool")
	x := newDense(1, 4, 4, 2)
	xd := dataOf(x)
	for i := range xd {
		xd[i] = float32((i*7)%31) - 15
	}
	checkGrads(t, p, x, 1*2*2*2)
}

func TestGlobalAvgPoolGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p := NewGlobalAvgPool("gap")
	x := randTensor(rng, 2, 3, 3, 2)
	checkGrads(t, p, x, 2*2)
}

func TestConv2DShape(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	c := NewConv2D("conv", 3, 3, 8, rng)
	out := c.Forward(randTensor(rng, 2, 16, 16, 3), false)
	require.Equal(t, []int{2, 16, 16, 8}, []int(out.Shape()))
}

func TestDropoutInference(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	d := NewDropout("drop", 0.5, rng)
	x := randTensor(rng, 4, 8)

	// Inference is the identity; the same tensor comes back.
	out := d.Forward(x, false)
	require.Same(t, x, out)
}

func TestDropoutTraining(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	d := NewDropout("drop", 0.5, rng)
	x := newDense(1, 1000)
	xd := dataOf(x)
	for i := range xd {
		xd[i] = 1
	}

	out := dataOf(d.Forward(x, true))
	zeros := 0
	var sum float32
	for _, v := range out {
		if v == 0 {
			zeros++
		} else {
			require.InDelta(t, 2, v, 1e-5) // inverted scaling by 1/keep
		}
		sum += v
	}
	require.Greater(t, zeros, 300)
	require.Less(t, zeros, 700)
	// Inverted dropout keeps the expected activation sum.
	require.InDelta(t, 1000, sum, 150)
}

func TestBCEWithLogits(t *testing.T) {
	logits := newDense(2, 1)
	copy(dataOf(logits), []float32{0, 0})
	loss, grad := BCEWithLogits(logits, []float32{1, 0})
	// At logit 0 the per-sample loss is ln(2) regardless of label.
	require.InDelta(t, 0.6931, float64(loss), 1e-3)
	gd := dataOf(grad)
	require.InDelta(t, (0.5-1.0)/2, float64(gd[0]), 1e-5)
	require.InDelta(t, (0.5-0.0)/2, float64(gd[1]), 1e-5)

	// Saturated logits stay finite.
	copy(dataOf(logits), []float32{80, -80})
	loss, _ = BCEWithLogits(logits, []float32{1, 0})
	require.InDelta(t, 0, float64(loss), 1e-4)
}

func TestBCEGradientNumeric(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	logits := randTensor(rng, 4, 1)
	labels := []float32{1, 0, 1, 0}

	_, grad := BCEWithLogits(logits, labels)
	gd := dataOf(grad)
	ld := dataOf(logits)
	const eps = 1e-2
	for i := range ld {
		orig := ld[i]
		ld[i] = orig + eps
		plus, _ := BCEWithLogits(logits, labels)
		ld[i] = orig - eps
		minus, _ := BCEWithLogits(logits, labels)
		ld[i] = orig
		numeric := float64(plus-minus) / (2 * eps)
		require.InDelta(t, numeric, float64(gd[i]), 1e-3)
	}
}

func TestAccuracy(t *testing.T) {
	logits := newDense(4, 1)
	copy(dataOf(logits), []float32{2, -2, 0.1, -0.1})
	require.InDelta(t, 0.75, float64(Accuracy(logits, []float32{1, 0, 0, 0})), 1e-6)
	require.InDelta(t, 1.0, float64(Accuracy(logits, []float32{1, 0, 1, 0})), 1e-6)
}

func TestAdamSkipsFrozenParams(t *testing.T) {
	trainable := newParam("a", 3)
	frozen := newParam("b", 3)
	frozen.Trainable = false
	for _, p := range []*Param{trainable, frozen} {
		copy(dataOf(p.Value), []float32{1, 2, 3})
		copy(dataOf(p.Grad), []float32{1, 1, 1})
	}

	opt := NewAdam(0.1)
	opt.Step([]*Param{trainable, frozen})

	require.Equal(t, []float32{1, 2, 3}, dataOf(frozen.Value))
	for i, v := range dataOf(trainable.Value) {
		require.Less(t, v, []float32{1, 2, 3}[i])
	}
	require.Nil(t, opt.m[frozen])
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	// Minimize (w - 5)^2 by gradient descent.
	p := newParam("w", 1)
	val := dataOf(p.Value)
	grad := dataOf(p.Grad)
	val[0] = 0

	opt := NewAdam(0.1)
	for i := 0; i < 500; i++ {
		grad[0] = 2 * (val[0] - 5)
		opt.Step([]*Param{p})
	}
	require.InDelta(t, 5, float64(val[0]), 0.1)
}

func TestSequentialSnapshotRestore(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	net := NewSequential(
		NewDense("fc1", 4, 3, rng),
		NewReLU("relu"),
		NewDense("fc2", 3, 1, rng),
	)
	x := randTensor(rng, 2, 4)
	before := dataOf(net.Forward(x, false))
	beforeCopy := append([]float32(nil), before...)

	snap := net.Snapshot()
	for _, p := range net.Params() {
		data := dataOf(p.Value)
		for i := range data {
			data[i] += 1
		}
	}
	changed := dataOf(net.Forward(x, false))
	require.NotEqual(t, beforeCopy, changed)

	net.Restore(snap)
	after := dataOf(net.Forward(x, false))
	require.Equal(t, beforeCopy, after)
}

func TestSequentialBackwardThroughFrozen(t *testing.T) {
	// Freezing a later layer must not cut the gradient to earlier ones.
	rng := rand.New(rand.NewSource(11))
	first := NewDense("fc1", 3, 3, rng)
	second := NewDense("fc2", 3, 1, rng)
	for _, p := range second.Params() {
		p.Trainable = false
	}
	net := NewSequential(first, second)

	out := net.Forward(randTensor(rng, 1, 3), true)
	dout := newDense(out.Shape()...)
	dataOf(dout)[0] = 1
	net.Backward(dout)

	var nonZero bool
	for _, g := range dataOf(first.Params()[0].Grad) {
		if g != 0 {
			nonZero = true
		}
	}
	require.True(t, nonZero)
}
