package nn

import (
	"fmt"
	"math/rand"

	"gorgonia.org/tensor"
)

// Conv2D is a stride-1, same-padded 2D convolution over NHWC input.
// Weights have shape [KH, KW, InC, OutC].
type Conv2D struct {
	name   string
	kh, kw int
	inC    int
	outC   int

	w *Param
	b *Param

	lastX *tensor.Dense // input of the last training-mode forward
}

func NewConv2D(name string, kernel, inC, outC int, rng *rand.Rand) *Conv2D {
	c := &Conv2D{
		name: name,
		kh:   kernel,
		kw:   kernel,
		inC:  inC,
		outC: outC,
		w:    newParam(name+".w", kernel, kernel, inC, outC),
		b:    newParam(name+".b", outC),
	}
	heInit(c.w, kernel*kernel*inC, rng)
	return c
}

func (c *Conv2D) Name() string     { return c.name }
func (c *Conv2D) Params() []*Param { return []*Param{c.w, c.b} }

func (c *Conv2D) Forward(x *tensor.Dense, training bool) *tensor.Dense {
	shape := x.Shape()
	n, h, w, ic := shape[0], shape[1], shape[2], shape[3]
	if ic != c.inC {
		panic(fmt.Sprintf("conv %v: input has %v channels, expected %v", c.name, ic, c.inC))
	}
	if training {
		c.lastX = x
	}

	out := newDense(n, h, w, c.outC)
	xd := dataOf(x)
	od := dataOf(out)
	wd := dataOf(c.w.Value)
	bd := dataOf(c.b.Value)
	padH := c.kh / 2
	padW := c.kw / 2

	for bi := 0; bi < n; bi++ {
		xBase := bi * h * w * ic
		oBase := bi * h * w * c.outC
		for oy := 0; oy < h; oy++ {
			for ox := 0; ox < w; ox++ {
				oIdx := oBase + (oy*w+ox)*c.outC
				for oc := 0; oc < c.outC; oc++ {
					od[oIdx+oc] = bd[oc]
				}
				for ky := 0; ky < c.kh; ky++ {
					iy := oy + ky - padH
					if iy < 0 || iy >= h {
						continue
					}
					for kx := 0; kx < c.kw; kx++ {
						ix := ox + kx - padW
						if ix < 0 || ix >= w {
							continue
						}
						xIdx := xBase + (iy*w+ix)*ic
						wIdx := (ky*c.kw + kx) * ic * c.outC
						for ci := 0; ci < ic; ci++ {
							v := xd[xIdx+ci]
							wRow := wIdx + ci*c.outC
							for oc := 0; oc < c.outC; oc++ {
								od[oIdx+oc] += v * wd[wRow+oc]
							}
						}
					}
				}
			}
		}
	}
	return out
}

func (c *Conv2D) Backward(dout *tensor.Dense) *tensor.Dense {
	x := c.lastX
	shape := x.Shape()
	n, h, w, ic := shape[0], shape[1], shape[2], shape[3]

	dx := newDense(n, h, w, ic)
	xd := dataOf(x)
	dxd := dataOf(dx)
	dod := dataOf(dout)
	wd := dataOf(c.w.Value)
	dwd := dataOf(c.w.Grad)
	dbd := dataOf(c.b.Grad)
	zeroSlice(dwd)
	zeroSlice(dbd)
	padH := c.kh / 2
	padW := c.kw / 2

	for bi := 0; bi < n; bi++ {
		xBase := bi * h * w * ic
		oBase := bi * h * w * c.outC
		for oy := 0; oy < h; oy++ {
			for ox := 0; ox < w; ox++ {
				oIdx := oBase + (oy*w+ox)*c.outC
				for oc := 0; oc < c.outC; oc++ {
					dbd[oc] += dod[oIdx+oc]
				}
				for ky := 0; ky < c.kh; ky++ {
					iy := oy + ky - padH
					if iy < 0 || iy >= h {
						continue
					}
					for kx := 0; kx < c.kw; kx++ {
						ix := ox + kx - padW
						if ix < 0 || ix >= w {
							continue
						}
						xIdx := xBase + (iy*w+ix)*ic
						wIdx := (ky*c.kw + kx) * ic * c.outC
						for ci := 0; ci < ic; ci++ {
							wRow := wIdx + ci*c.outC
							xv := xd[xIdx+ci]
							var acc float32
							for oc := 0; oc < c.outC; oc++ {
								g := dod[oIdx+oc]
								dwd[wRow+oc] += xv * g
								acc += wd[wRow+oc] * g
							}
							dxd[xIdx+ci] += acc
						}
					}
				}
			}
		}
	}
	return dx
}
