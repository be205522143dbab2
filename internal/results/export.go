package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/playperu/mayorkiosk/internal/mayor"
)

// Export is the JSON document produced by the admin export.
type Export struct {
	TotemID    string    `json:"totemId"`
	ExportDate time.Time `json:"exportDate"`
	Statistics Stats     `json:"statistics"`
	Results    []Record  `json:"results"`
}

func WriteJSON(w io.Writer, doc Export) error {
	if doc.Results == nil {
		doc.Results = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// CSVHeader returns the export columns: one percentage column per category,
// in catalog order.
func CSVHeader(cats []mayor.Category) []string {
	h := []string{"ID", "Timestamp", "Player Name", "Player Role", "Result", "Score", "Time Used (s)", "Final Budget"}
	for _, c := range cats {
		h = append(h, c.Name+" %")
	}
	return append(h, "Phone Call Answered", "Totem ID", "Selected Challenges Count")
}

// WriteCSV writes one row per record under CSVHeader. Missing category
// percentages are written as 0.
func WriteCSV(w io.Writer, cats []mayor.Category, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader(cats)); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.ID,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.PlayerName,
			r.PlayerRole,
			string(r.Result),
			strconv.Itoa(r.Score),
			strconv.Itoa(r.TimeUsed),
			strconv.Itoa(r.FinalBudget),
		}
		for _, c := range cats {
			row = append(row, strconv.Itoa(r.Percentages[c.ID]))
		}
		answered := "No"
		if r.PhoneCallAnswered {
			answered = "Yes"
		}
		row = append(row, answered, r.TotemID, strconv.Itoa(len(r.SelectedChallenges)))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names an export download, e.g.
// director-game-totem-2-2024-05-01.csv.
func ExportFilename(totemID, ext string, now time.Time) string {
	return fmt.Sprintf("director-game-totem-%s-%s.%s", totemID, now.UTC().Format("2006-01-02"), ext)
}
