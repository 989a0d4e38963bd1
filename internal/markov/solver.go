package markov

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

// Absorption holds the probability of eventually reaching the conversion
// state from every state of a graph
type Absorption struct {
	Removal       string
	Probabilities map[string]float64
}

// Start returns the conversion probability from the start state
func (a *Absorption) Start() float64 {
	return a.Probabilities[domain.StateStart]
}

// Solve computes absorption probabilities B = (I - Q)^-1 R of the graph.
//
// Q is the transient-to-transient block of the transition matrix and R the
// transient-to-conversion column. Instead of inverting I - Q the system
// (I - Q) B = R is solved through an LU factorization. A singular or
// ill-conditioned system, such as a transient component with no path to an
// absorbing state, yields ErrNumerical.
func Solve(g *Graph) (*Absorption, error) {
	transient := g.TransientStates()
	iq, r := g.absorbingSystem(transient)

	var lu mat.LU
	lu.Factorize(iq)

	var b mat.VecDense
	if err := lu.SolveVecTo(&b, false, r); err != nil {
		var cond mat.Condition
		if errors.Is(err, mat.ErrSingular) || errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: I - Q is singular for removal %q: %v", domain.ErrNumerical, g.removal, err)
		}
		return nil, fmt.Errorf("failed to solve absorbing chain: %w", err)
	}

	probs := make(map[string]float64, len(g.states))
	for a, state := range transient {
		v := b.AtVec(a)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite absorption probability for state %q", domain.ErrNumerical, state)
		}
		probs[state] = v
	}
	probs[domain.StateConversion] = 1.0
	probs[domain.StateNull] = 0.0

	return &Absorption{Removal: g.removal, Probabilities: probs}, nil
}

// FundamentalMatrix returns N = (I - Q)^-1 over the transient states, in the
// order given by TransientStates. Entry (i, j) is the expected number of
// visits to state j before absorption when starting from state i.
func FundamentalMatrix(g *Graph) (*mat.Dense, error) {
	iq, _ := g.absorbingSystem(g.TransientStates())

	var inv mat.Dense
	if err := inv.Inverse(iq); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNumerical, err)
	}
	return &inv, nil
}

// absorbingSystem returns I - Q and R restricted to the given transient states
func (g *Graph) absorbingSystem(transient []string) (*mat.Dense, *mat.VecDense) {
	p := g.Matrix()
	conversion := g.index[domain.StateConversion]

	n := len(transient)
	iq := mat.NewDense(n, n, nil)
	r := mat.NewVecDense(n, nil)
	for a, si := range transient {
		i := g.index[si]
		for b, sj := range transient {
			v := -p.At(i, g.index[sj])
			if a == b {
				v += 1
			}
			iq.Set(a, b, v)
		}
		r.SetVec(a, p.At(i, conversion))
	}
	return iq, r
}

// TransientStates returns every state except the absorbing ones, in matrix order
func (g *Graph) TransientStates() []string {
	out := make([]string, 0, len(g.states))
	for _, s := range g.states {
		if s != domain.StateConversion && s != domain.StateNull {
			out = append(out, s)
		}
	}
	return out
}
