package engine

import "math"

type adam struct {
	lr      float64
	beta1   float64
	beta2   float64
	epsilon float64
	step    int
}

func newAdam(lr float64) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, epsilon: 1e-7}
}

// update applies one bias-corrected Adam step to p for the step in progress.
func (a *adam) update(p *param, grad []float64) {
	t := float64(a.step + 1)
	c1 := 1 - math.Pow(a.beta1, t)
	c2 := 1 - math.Pow(a.beta2, t)
	for i, g := range grad {
		p.m[i] = a.beta1*p.m[i] + (1-a.beta1)*g
		p.v[i] = a.beta2*p.v[i] + (1-a.beta2)*g*g
		p.w[i] -= a.lr * (p.m[i] / c1) / (math.Sqrt(p.v[i]/c2) + a.epsilon)
	}
}

func (a *adam) tick() {
	a.step++
}
