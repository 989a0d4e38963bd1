package assembler

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// LongHeader is the header row of the long CSV form
var LongHeader = []string{"user_id", "model", "channel", "conversion_credit"}

// WriteWideCSV writes the wide table with a user_id column followed by one
// flattened column per (model, channel) pair
func WriteWideCSV(w io.Writer, wide *WideTable) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(wide.Columns)+1)
	header = append(header, "user_id")
	for _, c := range wide.Columns {
		header = append(header, c.Name())
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, userID := range wide.UserIDs {
		record := make([]string, 0, len(header))
		record = append(record, userID)
		for _, v := range wide.Values[i] {
			record = append(record, formatCredit(v))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row for user %s: %w", userID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteLongCSV writes one row per (user, model, channel) credit
func WriteLongCSV(w io.Writer, rows []LongRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(LongHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		record := []string{row.UserID, string(row.Model), row.Channel, formatCredit(row.Credit)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row for user %s: %w", row.UserID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCredit(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
