package imgproc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	buf := bytes.Buffer{}
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeError(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"))
	require.Error(t, err)
	decodeErr, ok := err.(*DecodeError)
	require.True(t, ok)
	require.NotEmpty(t, decodeErr.Reason)

	_, err = Preprocess([]byte{0xff, 0x00}, 32)
	_, ok = err.(*DecodeError)
	require.True(t, ok)
}

func TestPreprocessShapeAndRange(t *testing.T) {
	// A non-square source must be stretched to size x size.
	raw := encodePNG(t, 100, 60, color.RGBA{R: 200, G: 10, B: 90, A: 255})
	out, err := Preprocess(raw, 32)
	require.NoError(t, err)
	require.Equal(t, []int{32, 32, 3}, []int(out.Shape()))

	for _, v := range out.Data().([]float32) {
		require.GreaterOrEqual(t, v, float32(-1))
		require.LessOrEqual(t, v, float32(1.01))
	}
}

func TestNormalization(t *testing.T) {
	black, err := Preprocess(encodePNG(t, 8, 8, color.Black), 8)
	require.NoError(t, err)
	for _, v := range black.Data().([]float32) {
		require.InDelta(t, -1, v, 1e-5)
	}

	white, err := Preprocess(encodePNG(t, 8, 8, color.White), 8)
	require.NoError(t, err)
	for _, v := range white.Data().([]float32) {
		// 255/127.5 - 1 = 1
		require.InDelta(t, 1, v, 1e-2)
	}
}

func TestPreprocessDeterministic(t *testing.T) {
	raw := encodePNG(t, 50, 40, color.RGBA{R: 30, G: 140, B: 250, A: 255})
	a, err := Preprocess(raw, 16)
	require.NoError(t, err)
	b, err := Preprocess(raw, 16)
	require.NoError(t, err)
	require.Equal(t, a.Data().([]float32), b.Data().([]float32))
}
