package journey

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

// Required input columns
const (
	ColumnUserID  = "user_id"
	ColumnDate    = "date"
	ColumnStep    = "step"
	ColumnChannel = "channel"
)

var requiredColumns = []string{ColumnUserID, ColumnDate, ColumnStep, ColumnChannel}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseTable converts a header plus rows (e.g. the records of a CSV file)
// into touchpoint events. Every required column must be present in the header;
// extra columns are ignored. Rows keep their input order.
func ParseTable(header []string, rows [][]string) ([]domain.TouchpointEvent, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: required column %q not found", domain.ErrSchema, col)
		}
	}

	events := make([]domain.TouchpointEvent, 0, len(rows))
	for i, row := range rows {
		if len(row) < len(header) {
			return nil, fmt.Errorf("%w: row %d has %d fields, expected %d", domain.ErrSchema, i+1, len(row), len(header))
		}

		ts, err := ParseDate(row[index[ColumnDate]])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", domain.ErrSchema, i+1, err)
		}

		step, err := parseStep(row[index[ColumnStep]])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", domain.ErrSchema, i+1, err)
		}

		events = append(events, domain.TouchpointEvent{
			UserID:    strings.TrimSpace(row[index[ColumnUserID]]),
			Timestamp: ts,
			Channel:   strings.TrimSpace(row[index[ColumnChannel]]),
			Step:      step,
		})
	}

	return events, nil
}

// ParseDate parses a date or timestamp in one of the supported layouts
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

// parseStep accepts integers and integral floats such as "4.0"
func parseStep(value string) (int, error) {
	value = strings.TrimSpace(value)
	if step, err := strconv.Atoi(value); err == nil {
		return step, nil
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid step %q", value)
	}
	return int(f), nil
}
