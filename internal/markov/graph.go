package markov

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

// TransitionEdge is one aggregated state transition
type TransitionEdge struct {
	StateStart  string
	StateEnd    string
	Count       int
	Probability float64
}

type transition struct {
	from, to string
}

// Graph is the normalized transition graph of a journey set, optionally with
// one channel removed. A Graph is never mutated after BuildGraph returns.
type Graph struct {
	removal string
	edges   []TransitionEdge
	states  []string
	index   map[string]int
}

// BuildGraph aggregates the consecutive state pairs of every journey,
// converters and non-converters alike, into a normalized transition graph.
//
// Self-transitions are dropped. When removal is non-empty, edges leaving the
// removed channel are dropped and edges entering it are redirected to the
// null state. removal must be a non-sentinel start state of the graph.
func BuildGraph(journeys []domain.UserJourney, removal string) (*Graph, error) {
	counts := make(map[transition]int)
	for _, j := range journeys {
		for _, channel := range j.Interior() {
			if domain.IsSentinel(channel) {
				return nil, fmt.Errorf("%w: user %s: channel %q collides with a reserved state",
					domain.ErrSchema, j.UserID, channel)
			}
		}
		for i := 1; i < len(j.ChannelSeq); i++ {
			t := transition{from: j.ChannelSeq[i-1], to: j.ChannelSeq[i]}
			if t.from == t.to {
				continue
			}
			counts[t]++
		}
	}

	removal = strings.TrimSpace(removal)
	if removal != "" {
		var err error
		if counts, err = removeState(counts, removal); err != nil {
			return nil, err
		}
	}

	totals := make(map[string]int)
	for t, count := range counts {
		totals[t.from] += count
	}

	edges := make([]TransitionEdge, 0, len(counts))
	for t, count := range counts {
		edges = append(edges, TransitionEdge{
			StateStart:  t.from,
			StateEnd:    t.to,
			Count:       count,
			Probability: float64(count) / float64(totals[t.from]),
		})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].StateStart != edges[j].StateStart {
			return edges[i].StateStart < edges[j].StateStart
		}
		return edges[i].StateEnd < edges[j].StateEnd
	})

	g := &Graph{removal: removal, edges: edges}
	g.indexStates()
	return g, nil
}

// removeState applies the removal counterfactual to aggregated counts
func removeState(counts map[transition]int, removal string) (map[transition]int, error) {
	if domain.IsSentinel(removal) {
		return nil, fmt.Errorf("%w: cannot remove sentinel state %q", domain.ErrConfiguration, removal)
	}

	isStart := false
	for t := range counts {
		if t.from == removal {
			isStart = true
			break
		}
	}
	if !isStart {
		return nil, fmt.Errorf("%w: ineligible removal state %q", domain.ErrConfiguration, removal)
	}

	out := make(map[transition]int, len(counts))
	for t, count := range counts {
		if t.from == removal {
			continue
		}
		if t.to == removal {
			t.to = domain.StateNull
		}
		out[t] += count
	}
	return out, nil
}

// indexStates orders the states as start, channels (sorted), conversion, null.
// Absorbing states are always present even if no journey reached them.
func (g *Graph) indexStates() {
	channels := make(map[string]struct{})
	for _, e := range g.edges {
		for _, s := range []string{e.StateStart, e.StateEnd} {
			if !domain.IsSentinel(s) {
				channels[s] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(channels))
	for c := range channels {
		names = append(names, c)
	}
	sort.Strings(names)

	g.states = make([]string, 0, len(names)+3)
	g.states = append(g.states, domain.StateStart)
	g.states = append(g.states, names...)
	g.states = append(g.states, domain.StateConversion, domain.StateNull)

	g.index = make(map[string]int, len(g.states))
	for i, s := range g.states {
		g.index[s] = i
	}
}

// Removal returns the removed channel, empty for the baseline graph
func (g *Graph) Removal() string {
	return g.removal
}

// Edges returns the normalized edges sorted by start then end state
func (g *Graph) Edges() []TransitionEdge {
	out := make([]TransitionEdge, len(g.edges))
	copy(out, g.edges)
	return out
}

// States returns every state in matrix order
func (g *Graph) States() []string {
	out := make([]string, len(g.states))
	copy(out, g.states)
	return out
}

// Channels returns the non-sentinel states of the graph
func (g *Graph) Channels() []string {
	out := make([]string, 0, len(g.states))
	for _, s := range g.states {
		if !domain.IsSentinel(s) {
			out = append(out, s)
		}
	}
	return out
}

// Matrix assembles the square transition matrix over States(). Missing
// entries are zero. Absorbing states without outgoing edges get a self-loop
// of probability one.
func (g *Graph) Matrix() *mat.Dense {
	n := len(g.states)
	p := mat.NewDense(n, n, nil)

	hasOutgoing := make(map[string]bool)
	for _, e := range g.edges {
		p.Set(g.index[e.StateStart], g.index[e.StateEnd], e.Probability)
		hasOutgoing[e.StateStart] = true
	}

	for _, absorbing := range []string{domain.StateConversion, domain.StateNull} {
		if !hasOutgoing[absorbing] {
			i := g.index[absorbing]
			p.Set(i, i, 1.0)
		}
	}

	return p
}

// NewGraphFromEdges builds a graph from explicit edges, normalizing their
// counts. It is meant for solving hand-built chains.
func NewGraphFromEdges(edges []TransitionEdge) *Graph {
	totals := make(map[string]int)
	for _, e := range edges {
		totals[e.StateStart] += e.Count
	}

	normalized := make([]TransitionEdge, 0, len(edges))
	for _, e := range edges {
		if e.Count <= 0 {
			continue
		}
		e.Probability = float64(e.Count) / float64(totals[e.StateStart])
		normalized = append(normalized, e)
	}

	g := &Graph{edges: normalized}
	g.indexStates()
	return g
}
