// Package augment synthesizes label-preserving variations of training
// images. Rotation, shift, shear, zoom and horizontal flip are folded
// into a single affine warp with bilinear sampling, so each draw costs
// one pass over the pixels.
package augment

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"
	"gorgonia.org/tensor"

	"github.com/Mahdi-Kalfat/IdeaTon/internal/imgproc"
)

// FillMode controls what is sampled for pixels that the warp maps
// outside the source image.
type FillMode int

const (
	// FillNearest clamps to the nearest edge pixel.
	FillNearest FillMode = iota
	// FillConstant fills with mid-gray (0 in normalized space).
	FillConstant
)

// Config bounds the random transform parameters. All bounds are
// half-ranges: a RotationDeg of 20 draws from [-20, 20].
type Config struct {
	RotationDeg    float32  // degrees
	WidthShift     float32  // fraction of image width
	HeightShift    float32  // fraction of image height
	ShearDeg       float32  // degrees
	Zoom           float32  // fraction, e.g. 0.2 draws scale from [0.8, 1.2]
	HorizontalFlip bool     // 50/50 mirror
	Fill           FillMode //
}

// DefaultConfig matches the bounds the model was originally tuned with.
func DefaultConfig() Config {
	return Config{
		RotationDeg:    20,
		WidthShift:     0.2,
		HeightShift:    0.2,
		ShearDeg:       10,
		Zoom:           0.2,
		HorizontalFlip: true,
		Fill:           FillNearest,
	}
}

// Augmenter draws fresh transform parameters from rng on every Apply.
// Seed rng yourself if you need reproducible draws.
type Augmenter struct {
	cfg Config
	rng *rand.Rand
}

// New validates the bounds and returns an Augmenter. Malformed bounds
// are a configuration error, caught here rather than at Apply time.
func New(cfg Config, rng *rand.Rand) (*Augmenter, error) {
	if cfg.RotationDeg < 0 || cfg.RotationDeg > 180 {
		return nil, fmt.Errorf("augment: rotation bound %v out of range [0, 180]", cfg.RotationDeg)
	}
	if cfg.WidthShift < 0 || cfg.WidthShift >= 1 || cfg.HeightShift < 0 || cfg.HeightShift >= 1 {
		return nil, fmt.Errorf("augment: shift bounds (%v, %v) out of range [0, 1)", cfg.WidthShift, cfg.HeightShift)
	}
	if cfg.ShearDeg < 0 || cfg.ShearDeg >= 90 {
		return nil, fmt.Errorf("augment: shear bound %v out of range [0, 90)", cfg.ShearDeg)
	}
	if cfg.Zoom < 0 || cfg.Zoom >= 1 {
		return nil, fmt.Errorf("augment: zoom bound %v out of range [0, 1)", cfg.Zoom)
	}
	if rng == nil {
		return nil, fmt.Errorf("augment: rng is required")
	}
	return &Augmenter{cfg: cfg, rng: rng}, nil
}

func (a *Augmenter) uniform(bound float32) float32 {
	if bound == 0 {
		return 0
	}
	return (2*float32(a.rng.Float64()) - 1) * bound
}

// Apply returns a freshly perturbed copy of src. src must have shape
// [H, W, 3] and is never modified.
func (a *Augmenter) Apply(src *tensor.Dense) *tensor.Dense {
	shape := src.Shape()
	h, w := shape[0], shape[1]

	theta := a.uniform(a.cfg.RotationDeg) * math32.Pi / 180
	shear := a.uniform(a.cfg.ShearDeg) * math32.Pi / 180
	scale := 1 + a.uniform(a.cfg.Zoom)
	tx := a.uniform(a.cfg.WidthShift) * float32(w)
	ty := a.uniform(a.cfg.HeightShift) * float32(h)
	flip := float32(1)
	if a.cfg.HorizontalFlip && a.rng.Intn(2) == 1 {
		flip = -1
	}

	// Forward transform about the image center:
	//   p' = S(scale) * Shear * R(theta) * F(flip) * p + t
	cos, sin := math32.Cos(theta), math32.Sin(theta)
	sh := math32.Tan(shear)
	m00 := scale * (cos + sh*sin) * flip
	m01 := scale * (-sin + sh*cos)
	m10 := scale * sin * flip
	m11 := scale * cos

	// We sample destination pixels through the inverse transform.
	det := m00*m11 - m01*m10
	i00, i01 := m11/det, -m01/det
	i10, i11 := -m10/det, m00/det

	cx, cy := float32(w-1)/2, float32(h-1)/2

	srcData := src.Data().([]float32)
	dstData := make([]float32, len(srcData))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := float32(x) - cx - tx
			dy := float32(y) - cy - ty
			sx := i00*dx + i01*dy + cx
			sy := i10*dx + i11*dy + cy
			a.sampleBilinear(srcData, dstData, w, h, x, y, sx, sy)
		}
	}
	return tensor.New(tensor.WithShape(h, w, imgproc.Channels), tensor.WithBacking(dstData))
}

func (a *Augmenter) sampleBilinear(src, dst []float32, w, h, x, y int, sx, sy float32) {
	x0 := int(math32.Floor(sx))
	y0 := int(math32.Floor(sy))
	fx := sx - float32(x0)
	fy := sy - float32(y0)

	di := (y*w + x) * imgproc.Channels
	for c := 0; c < imgproc.Channels; c++ {
		v00 := a.at(src, w, h, x0, y0, c)
		v10 := a.at(src, w, h, x0+1, y0, c)
		v01 := a.at(src, w, h, x0, y0+1, c)
		v11 := a.at(src, w, h, x0+1, y0+1, c)
		top := v00 + (v10-v00)*fx
		bot := v01 + (v11-v01)*fx
		dst[di+c] = top + (bot-top)*fy
	}
}

func (a *Augmenter) at(src []float32, w, h, x, y, c int) float32 {
	if x < 0 || x >= w || y < 0 || y >= h {
		switch a.cfg.Fill {
		case FillConstant:
			return 0
		default:
			// clamp to nearest edge
			if x < 0 {
				x = 0
			} else if x >= w {
				x = w - 1
			}
			if y < 0 {
				y = 0
			} else if y >= h {
				y = h - 1
			}
		}
	}
	return src[(y*w+x)*imgproc.Channels+c]
}
