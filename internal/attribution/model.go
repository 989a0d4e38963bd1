package attribution

import (
	"context"
	"sort"

	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

// ModelName identifies an attribution model. It doubles as the column prefix
// of the flattened wide table.
type ModelName string

const (
	ModelFirstTouch    ModelName = "first_touch"
	ModelLastTouch     ModelName = "last_touch"
	ModelLinear        ModelName = "linear"
	ModelPositionBased ModelName = "u_shaped"
	ModelMarkov        ModelName = "markov"
)

// ModelNames lists every model in output order
var ModelNames = []ModelName{
	ModelFirstTouch,
	ModelLastTouch,
	ModelLinear,
	ModelPositionBased,
	ModelMarkov,
}

// Model computes per-user channel credit over a set of journeys
type Model interface {
	Name() ModelName
	Attribute(ctx context.Context, journeys []domain.UserJourney) (*CreditTable, error)
}

// CreditRow holds the sparse credits of one converting user
type CreditRow struct {
	UserID  string
	Credits map[string]float64
}

// CreditTable is the output of one model: one row per approved journey.
// Channels lists every channel credited in at least one row, sorted.
type CreditTable struct {
	Model    ModelName
	Channels []string
	Rows     []CreditRow
}

// Credit returns the credit of channel for the row at index i, zero if absent
func (t *CreditTable) Credit(i int, channel string) float64 {
	return t.Rows[i].Credits[channel]
}

// ChannelCredits flattens the table into dense rows, including explicit
// zeros for every channel of the table
func (t *CreditTable) ChannelCredits() []domain.ChannelCredit {
	out := make([]domain.ChannelCredit, 0, len(t.Rows)*len(t.Channels))
	for _, row := range t.Rows {
		for _, channel := range t.Channels {
			out = append(out, domain.ChannelCredit{
				UserID:  row.UserID,
				Channel: channel,
				Credit:  row.Credits[channel],
			})
		}
	}
	return out
}

// JourneyCredits computes the credit map of a single approved journey
type JourneyCredits func(j domain.UserJourney) map[string]float64

// heuristic adapts a per-journey credit function to the Model interface
type heuristic struct {
	name    ModelName
	credits JourneyCredits
}

func (h heuristic) Name() ModelName {
	return h.name
}

func (h heuristic) Attribute(_ context.Context, journeys []domain.UserJourney) (*CreditTable, error) {
	table := &CreditTable{Model: h.name, Rows: []CreditRow{}}
	seen := make(map[string]struct{})

	for _, j := range journeys {
		if !j.Approved {
			continue
		}
		credits := h.credits(j)
		for channel := range credits {
			seen[channel] = struct{}{}
		}
		table.Rows = append(table.Rows, CreditRow{UserID: j.UserID, Credits: credits})
	}

	table.Channels = sortedKeys(seen)
	return table, nil
}

// NewFirstTouch creates the first-touch model
func NewFirstTouch() Model {
	return heuristic{name: ModelFirstTouch, credits: FirstTouchCredits}
}

// NewLastTouch creates the last-touch model
func NewLastTouch() Model {
	return heuristic{name: ModelLastTouch, credits: LastTouchCredits}
}

// NewLinear creates the linear model
func NewLinear() Model {
	return heuristic{name: ModelLinear, credits: LinearCredits}
}

// NewPositionBased creates the U-shaped position-based model
func NewPositionBased() Model {
	return heuristic{name: ModelPositionBased, credits: PositionBasedCredits}
}

// Models returns the five models in output order, using markov for the
// removal-effect model
func Models(markov Model) []Model {
	return []Model{
		NewFirstTouch(),
		NewLastTouch(),
		NewLinear(),
		NewPositionBased(),
		markov,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
