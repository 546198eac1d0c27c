package nn

import (
	"math/rand"

	"gorgonia.org/tensor"
)

// Dense is a fully connected layer over [N, In] input.
// Weights have shape [In, Out].
type Dense struct {
	name    string
	in, out int

	w *Param
	b *Param

	lastX *tensor.Dense
}

func NewDense(name string, in, out int, rng *rand.Rand) *Dense {
	d := &Dense{
		name: name,
		in:   in,
		out:  out,
		w:    newParam(name+".w", in, out),
		b:    newParam(name+".b", out),
	}
	heInit(d.w, in, rng)
	return d
}

func (d *Dense) Name() string     { return d.name }
func (d *Dense) Params() []*Param { return []*Param{d.w, d.b} }

func (d *Dense) Forward(x *tensor.Dense, training bool) *tensor.Dense {
	n := x.Shape()[0]
	if training {
		d.lastX = x
	}

	out := newDense(n, d.out)
	xd := dataOf(x)
	od := dataOf(out)
	wd := dataOf(d.w.Value)
	bd := dataOf(d.b.Value)
	for bi := 0; bi < n; bi++ {
		xBase := bi * d.in
		oBase := bi * d.out
		copy(od[oBase:oBase+d.out], bd)
		for i := 0; i < d.in; i++ {
			v := xd[xBase+i]
			if v == 0 {
				continue
			}
			wRow := i * d.out
			for j := 0; j < d.out; j++ {
				od[oBase+j] += v * wd[wRow+j]
			}
		}
	}
	return out
}

func (d *Dense) Backward(dout *tensor.Dense) *tensor.Dense {
	x := d.lastX
	n := x.Shape()[0]

	dx := newDense(n, d.in)
	xd := dataOf(x)
	dxd := dataOf(dx)
	dod := dataOf(dout)
	wd := dataOf(d.w.Value)
	dwd := dataOf(d.w.Grad)
	dbd := dataOf(d.b.Grad)
	zeroSlice(dwd)
	zeroSlice(dbd)

	for bi := 0; bi < n; bi++ {
		xBase := bi * d.in
		oBase := bi * d.out
		for j := 0; j < d.out; j++ {
			dbd[j] += dod[oBase+j]
		}
		for i := 0; i < d.in; i++ {
			wRow := i * d.out
			xv := xd[xBase+i]
			var acc float32
			for j := 0; j < d.out; j++ {
				g := dod[oBase+j]
				dwd[wRow+j] += xv * g
				acc += wd[wRow+j] * g
			}
			dxd[xBase+i] = acc
		}
	}
	return dx
}
