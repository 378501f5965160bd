package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// FrictionCSVFilename is the suggested download name for the friction export.
const FrictionCSVFilename = "friction-heatmap.csv"

// FrictionCSVHeader is the fixed header row of the friction export.
var FrictionCSVHeader = []string{"Topic", "Time Slot", "Count", "Avg Duration (s)", "Sentiment"}

// WriteFrictionCSV writes the header and one row per point. Fields containing
// commas, quotes or newlines are quoted.
func WriteFrictionCSV(w io.Writer, points []FrictionPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FrictionCSVHeader); err != nil {
		return fmt.Errorf("dashboard: write csv header: %w", err)
	}
	for _, p := range points {
		row := []string{
			p.Topic,
			p.TimeSlot,
			strconv.Itoa(p.Count),
			strconv.Itoa(p.AvgDuration),
			strconv.FormatFloat(p.Sentiment, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("dashboard: write csv row %s/%s: %w", p.Topic, p.TimeSlot, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
