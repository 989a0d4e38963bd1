package markov

import (
	"context"
	"sort"

	"github.com/BarkinBalci/channel-attribution-service/internal/attribution"
	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

// Model is the Markov removal-effect attribution model.
//
// Credit is a population statistic: the transition graph is built from every
// journey, and every converting user receives the same normalized
// removal-effect vector.
type Model struct {
	solver *Solver
}

// NewModel creates a Markov model backed by the given solver
func NewModel(solver *Solver) *Model {
	return &Model{solver: solver}
}

func (m *Model) Name() attribution.ModelName {
	return attribution.ModelMarkov
}

func (m *Model) Attribute(ctx context.Context, journeys []domain.UserJourney) (*attribution.CreditTable, error) {
	table := &attribution.CreditTable{Model: attribution.ModelMarkov, Rows: []attribution.CreditRow{}}

	hasConverter := false
	for _, j := range journeys {
		if j.Approved {
			hasConverter = true
			break
		}
	}
	if !hasConverter {
		table.Channels = []string{}
		return table, nil
	}

	effects, err := m.solver.RemovalEffects(ctx, journeys)
	if err != nil {
		return nil, err
	}

	table.Channels = make([]string, 0, len(effects))
	for channel := range effects {
		table.Channels = append(table.Channels, channel)
	}
	sort.Strings(table.Channels)

	for _, j := range journeys {
		if !j.Approved {
			continue
		}
		credits := make(map[string]float64, len(effects))
		for channel, effect := range effects {
			credits[channel] = effect
		}
		table.Rows = append(table.Rows, attribution.CreditRow{UserID: j.UserID, Credits: credits})
	}

	return table, nil
}
