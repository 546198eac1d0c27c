// Package imgproc converts encoded images into the fixed-shape float32
// tensors that the classifier consumes.
package imgproc

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	"gorgonia.org/tensor"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Channels is the number of color channels the model expects.
const Channels = 3

// DecodeError means the input bytes are not a decodable color image.
// Callers should treat this as a bad input, not a system failure.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode image: %v", e.Reason)
}

// Decode decodes JPEG, PNG, GIF, BMP or WEBP bytes.
func Decode(b []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, &DecodeError{Reason: err.Error()}
	}
	return img, nil
}

// ToTensor stretches img to size x size (bilinear, aspect ratio is
// deliberately ignored so that training and inference see the same
// geometry) and normalizes each channel to [-1, 1], which is the input
// distribution the pretrained feature extractor was trained on.
// The result has shape [size, size, 3].
func ToTensor(img image.Image, size int) *tensor.Dense {
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)

	data := make([]float32, size*size*Channels)
	bounds := resized.Bounds()
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			// RGBA returns 16-bit channels. Scale v/127.5 - 1.
			data[i] = float32(r>>8)/127.5 - 1
			data[i+1] = float32(g>>8)/127.5 - 1
			data[i+2] = float32(b>>8)/127.5 - 1
			i += Channels
		}
	}
	return tensor.New(tensor.WithShape(size, size, Channels), tensor.WithBacking(data))
}

// Preprocess is the whole pipeline: decode, resize, normalize.
// Pure function of its inputs.
func Preprocess(b []byte, size int) (*tensor.Dense, error) {
	img, err := Decode(b)
	if err != nil {
		return nil, err
	}
	return ToTensor(img, size), nil
}
