package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BarkinBalci/channel-attribution-service/internal/attribution"
	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

// Column identifies one credit column of the wide table
type Column struct {
	Model   attribution.ModelName
	Channel string
}

// Name flattens the column to its "<model>_<channel>" form
func (c Column) Name() string {
	return string(c.Model) + "_" + c.Channel
}

// WideTable has one row per converting user and one credit column per
// (model, channel) pair. Values[i][j] is the credit of Columns[j] for UserIDs[i].
type WideTable struct {
	UserIDs []string
	Columns []Column
	Values  [][]float64
}

// LongRow is one (user, model, channel) credit
type LongRow struct {
	UserID  string                `json:"user_id"`
	Model   attribution.ModelName `json:"model"`
	Channel string                `json:"channel"`
	Credit  float64               `json:"conversion_credit"`
}

// Result holds both shapes of an attribution run
type Result struct {
	Wide *WideTable
	Long []LongRow
}

// Assemble merges the credit tables of every model on user ID.
//
// The first table defines the user set (left join). Every model gets a column
// for every channel named by any table, so channels a model never credited
// appear as explicit zeros.
func Assemble(tables ...*attribution.CreditTable) (*Result, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no credit tables to assemble", domain.ErrConfiguration)
	}

	seenModels := make(map[attribution.ModelName]struct{}, len(tables))
	channelSet := make(map[string]struct{})
	for _, t := range tables {
		if t == nil {
			return nil, fmt.Errorf("%w: nil credit table", domain.ErrConfiguration)
		}
		if _, dup := seenModels[t.Model]; dup {
			return nil, fmt.Errorf("%w: duplicate credit table for model %q", domain.ErrConfiguration, t.Model)
		}
		seenModels[t.Model] = struct{}{}
		for _, ch := range t.Channels {
			channelSet[ch] = struct{}{}
		}
	}

	channels := make([]string, 0, len(channelSet))
	for ch := range channelSet {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	columns := make([]Column, 0, len(tables)*len(channels))
	for _, t := range tables {
		for _, ch := range channels {
			columns = append(columns, Column{Model: t.Model, Channel: ch})
		}
	}

	// user ID -> row index, per table
	lookups := make([]map[string]int, len(tables))
	for i, t := range tables {
		lookups[i] = make(map[string]int, len(t.Rows))
		for r, row := range t.Rows {
			lookups[i][row.UserID] = r
		}
	}

	base := tables[0]
	wide := &WideTable{
		UserIDs: make([]string, 0, len(base.Rows)),
		Columns: columns,
		Values:  make([][]float64, 0, len(base.Rows)),
	}
	long := make([]LongRow, 0, len(base.Rows)*len(columns))

	for _, row := range base.Rows {
		values := make([]float64, len(columns))
		col := 0
		for i, t := range tables {
			r, ok := lookups[i][row.UserID]
			for _, ch := range channels {
				if ok {
					values[col] = t.Rows[r].Credits[ch]
				}
				long = append(long, LongRow{
					UserID:  row.UserID,
					Model:   t.Model,
					Channel: ch,
					Credit:  values[col],
				})
				col++
			}
		}
		wide.UserIDs = append(wide.UserIDs, row.UserID)
		wide.Values = append(wide.Values, values)
	}

	return &Result{Wide: wide, Long: long}, nil
}

// ParseColumnName splits a flattened credit column name into its model and
// channel. The model is resolved by matching the known model names as
// prefixes, so channel labels may contain underscores. A channel label must
// not itself start with a model name followed by an underscore.
func ParseColumnName(name string) (attribution.ModelName, string, error) {
	for _, model := range attribution.ModelNames {
		prefix := string(model) + "_"
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			return model, strings.TrimPrefix(name, prefix), nil
		}
	}
	return "", "", fmt.Errorf("%w: column %q does not start with a known model name", domain.ErrSchema, name)
}
