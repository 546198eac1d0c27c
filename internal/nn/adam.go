package nn

import (
	"github.com/chewxy/math32"
)

// Adam is the Adam optimizer. Frozen params are skipped entirely, so
// their moment state never accumulates.
type Adam struct {
	LR    float32
	Beta1 float32
	Beta2 float32
	Eps   float32

	step int
	m    map[*Param][]float32
	v    map[*Param][]float32
}

// NewAdam uses the standard beta/epsilon defaults.
func NewAdam(lr float32) *Adam {
	return &Adam{
		LR:    lr,
		Beta1: 0.9,
		Beta2: 0.999,
		Eps:   1e-7,
		m:     map[*Param][]float32{},
		v:     map[*Param][]float32{},
	}
}

// Step applies one update to every trainable param from its
// accumulated gradient.
func (a *Adam) Step(params []*Param) {
	a.step++
	c1 := 1 - math32.Pow(a.Beta1, float32(a.step))
	c2 := 1 - math32.Pow(a.Beta2, float32(a.step))
	for _, p := range params {
		if !p.Trainable {
			continue
		}
		val := dataOf(p.Value)
		grad := dataOf(p.Grad)
		m, ok := a.m[p]
		if !ok {
			m = make([]float32, len(val))
			a.m[p] = m
		}
		v, ok := a.v[p]
		if !ok {
			v = make([]float32, len(val))
			a.v[p] = v
		}
		for i := range val {
			g := grad[i]
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g
			mHat := m[i] / c1
			vHat := v[i] / c2
			val[i] -= a.LR * mHat / (math32.Sqrt(vHat) + a.Eps)
		}
	}
}
