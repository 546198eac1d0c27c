package nn

import (
	"gorgonia.org/tensor"
)

// MaxPool2 is a 2x2 max pool with stride 2. Input H and W must be even.
type MaxPool2 struct {
	name string

	lastShape tensor.Shape
	argmax    []int // flat source index of each output element
}

func NewMaxPool2(name string) *MaxPool2 {
	return &MaxPool2{name: name}
}

func (p *MaxPool2) Name() string     { return p.name }
func (p *MaxPool2) Params() []*Param { return nil }

func (p *MaxPool2) Forward(x *tensor.Dense, training bool) *tensor.Dense {
	shape := x.Shape()
	n, h, w, c := shape[0], shape[1], shape[2], shape[3]
	oh, ow := h/2, w/2

	out := newDense(n, oh, ow, c)
	xd := dataOf(x)
	od := dataOf(out)
	var argmax []int
	if training {
		p.lastShape = tensor.Shape{n, h, w, c}
		argmax = make([]int, len(od))
	}

	for bi := 0; bi < n; bi++ {
		for oy := 0; oy < oh; oy++ {
			for ox := 0; ox < ow; ox++ {
				for ci := 0; ci < c; ci++ {
					oIdx := ((bi*oh+oy)*ow+ox)*c + ci
					best := float32(0)
					bestIdx := -1
					for dy := 0; dy < 2; dy++ {
						for dx := 0; dx < 2; dx++ {
							iy, ix := oy*2+dy, ox*2+dx
							idx := ((bi*h+iy)*w+ix)*c + ci
							if bestIdx < 0 || xd[idx] > best {
								best = xd[idx]
								bestIdx = idx
							}
						}
					}
					od[oIdx] = best
					if training {
						argmax[oIdx] = bestIdx
					}
				}
			}
		}
	}
	if training {
		p.argmax = argmax
	}
	return out
}

func (p *MaxPool2) Backward(dout *tensor.Dense) *tensor.Dense {
	dx := newDense(p.lastShape...)
	dxd := dataOf(dx)
	dod := dataOf(dout)
	for i, srcIdx := range p.argmax {
		dxd[srcIdx] += dod[i]
	}
	return dx
}

// GlobalAvgPool reduces [N, H, W, C] to [N, C] by averaging over the
// spatial dimensions.
type GlobalAvgPool struct {
	name      string
	lastShape tensor.Shape
}

func NewGlobalAvgPool(name string) *GlobalAvgPool {
	return &GlobalAvgPool{name: name}
}

func (p *GlobalAvgPool) Name() string     { return p.name }
func (p *GlobalAvgPool) Params() []*Param { return nil }

func (p *GlobalAvgPool) Forward(x *tensor.Dense, training bool) *tensor.Dense {
	shape := x.Shape()
	n, h, w, c := shape[0], shape[1], shape[2], shape[3]
	if training {
		p.lastShape = tensor.Shape{n, h, w, c}
	}

	out := newDense(n, c)
	xd := dataOf(x)
	od := dataOf(out)
	inv := 1 / float32(h*w)
	for bi := 0; bi < n; bi++ {
		base := bi * h * w * c
		oBase := bi * c
		for i := 0; i < h*w; i++ {
			for ci := 0; ci < c; ci++ {
				od[oBase+ci] += xd[base+i*c+ci]
			}
		}
		for ci := 0; ci < c; ci++ {
			od[oBase+ci] *= inv
		}
	}
	return out
}

func (p *GlobalAvgPool) Backward(dout *tensor.Dense) *tensor.Dense {
	n, h, w, c := p.lastShape[0], p.lastShape[1], p.lastShape[2], p.lastShape[3]
	dx := newDense(n, h, w, c)
	dxd := dataOf(dx)
	dod := dataOf(dout)
	inv := 1 / float32(h*w)
	for bi := 0; bi < n; bi++ {
		base := bi * h * w * c
		oBase := bi * c
		for i := 0; i < h*w; i++ {
			for ci := 0; ci < c; ci++ {
				dxd[base+i*c+ci] = dod[oBase+ci] * inv
			}
		}
	}
	return dx
}
