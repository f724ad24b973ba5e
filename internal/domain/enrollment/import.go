package enrollment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseSlotsCSV reads participant_number,participant_password rows. A header
// row naming those columns is optional.
func ParseSlotsCSV(r io.Reader) ([]Slot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var slots []Slot
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read slots csv: %w", err)
		}
		line++
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("slots csv line %d: expected 2 columns, got %d", line, len(rec))
		}
		number := strings.TrimSpace(rec[0])
		password := strings.TrimSpace(rec[1])
		if line == 1 && strings.EqualFold(number, "participant_number") {
			continue
		}
		slots = append(slots, Slot{ParticipantNumber: number, ParticipantPassword: password})
	}
	return slots, nil
}
