package augment

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func makeImage(seed int64, h, w int) *tensor.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float32, h*w*3)
	for i := range data {
		data[i] = 2*float32(rng.Float64()) - 1
	}
	return tensor.New(tensor.WithShape(h, w, 3), tensor.WithBacking(data))
}

func TestValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bad := []Config{
		{RotationDeg: -1},
		{RotationDeg: 181},
		{WidthShift: 1},
		{HeightShift: -0.1},
		{ShearDeg: 90},
		{Zoom: 1},
	}
	for _, cfg := range bad {
		_, err := New(cfg, rng)
		require.Error(t, err, "config %+v", cfg)
	}

	_, err := New(DefaultConfig(), nil)
	require.Error(t, err)

	_, err = New(DefaultConfig(), rng)
	require.NoError(t, err)
}

func TestSeededDeterminism(t *testing.T) {
	src := makeImage(7, 16, 16)

	a1, err := New(DefaultConfig(), rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	a2, err := New(DefaultConfig(), rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		out1 := a1.Apply(src)
		out2 := a2.Apply(src)
		require.Equal(t, out1.Data().([]float32), out2.Data().([]float32))
	}
}

func TestIdentityTransform(t *testing.T) {
	// All bounds at zero and no flip reduces the warp to the identity.
	src := makeImage(3, 8, 8)
	aug, err := New(Config{}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	out := aug.Apply(src)
	srcData := src.Data().([]float32)
	outData := out.Data().([]float32)
	for i := range srcData {
		require.InDelta(t, srcData[i], outData[i], 1e-5)
	}
}

func TestSourceNotModified(t *testing.T) {
	src := makeImage(9, 8, 8)
	before := append([]float32(nil), src.Data().([]float32)...)

	aug, err := New(DefaultConfig(), rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	aug.Apply(src)

	require.Equal(t, before, src.Data().([]float32))
}

func TestOutputShapeAndFinite(t *testing.T) {
	src := makeImage(11, 12, 12)
	aug, err := New(DefaultConfig(), rand.New(rand.NewSource(8)))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		out := aug.Apply(src)
		require.Equal(t, []int{12, 12, 3}, []int(out.Shape()))
		for _, v := range out.Data().([]float32) {
			// Bilinear interpolation of in-range values stays in range,
			// for both fill modes.
			require.GreaterOrEqual(t, v, float32(-1.001))
			require.LessOrEqual(t, v, float32(1.001))
		}
	}
}

func TestConstantFill(t *testing.T) {
	// A max shift of almost a full image width with constant fill must
	// produce some exact zeros from outside the source.
	data := make([]float32, 8*8*3)
	for i := range data {
		data[i] = 1
	}
	src := tensor.New(tensor.WithShape(8, 8, 3), tensor.WithBacking(data))

	cfg := Config{WidthShift: 0.9, Fill: FillConstant}
	aug, err := New(cfg, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	zeros := 0
	for i := 0; i < 20; i++ {
		for _, v := range aug.Apply(src).Data().([]float32) {
			if v == 0 {
				zeros++
			}
		}
	}
	require.Greater(t, zeros, 0)
}
