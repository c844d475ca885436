package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/LadyMermelada/basketscore/internal/stats"
	"github.com/LadyMermelada/basketscore/internal/store"
)

func ToCSV(sessions []store.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Date", "Zone", "Zone ID", "Type", "Made", "Total", "Pct", "Note"}); err != nil {
		return err
	}

	for _, s := range sessions {
		row := []string{
			strconv.FormatInt(s.ID, 10),
			s.Date,
			s.ZoneLabel,
			s.ZoneID,
			string(s.ZoneType),
			strconv.Itoa(s.Made),
			strconv.Itoa(s.Total),
			fmt.Sprintf("%d%%", stats.Percentage(s.Made, s.Total)),
			s.Note,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
