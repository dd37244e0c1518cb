package sandbox

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// source backs random(), randomGaussian() and randomSeed() for one
// context. Only the context goroutine touches it.
type source struct {
	src     rand.Source
	uniform distuv.Uniform
}

func newSource(seed uint64) *source {
	s := &source{}
	s.seed(seed)
	return s
}

func (s *source) seed(seed uint64) {
	s.src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	s.uniform = distuv.Uniform{Min: 0, Max: 1, Src: s.src}
}

func (s *source) random() float64 {
	return s.uniform.Rand()
}

func (s *source) gaussian(mean, sd float64) float64 {
	if sd <= 0 {
		return mean
	}
	return distuv.Normal{Mu: mean, Sigma: sd, Src: s.src}.Rand()
}

func timeSeed() uint64 {
	return uint64(time.Now().UnixNano())
}
