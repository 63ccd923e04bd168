package waitlist

import (
	"encoding/csv"
	"io"
	"time"

	"nova-arcade/internal/domain"
)

// Stats summarizes the waitlist.
type Stats struct {
	Total       int `json:"total"`
	Today       int `json:"today"`
	ThisWeek    int `json:"thisWeek"`
	WithWallets int `json:"withWallets"`
}

// ComputeStats counts entries relative to now. "Today" starts at local
// midnight; "this week" starts seven days before that.
func ComputeStats(entries []*domain.WaitlistEntry, now time.Time) Stats {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).UnixMilli()
	week := today - (7 * 24 * time.Hour).Milliseconds()

	var s Stats
	for _, e := range entries {
		s.Total++
		if e.Timestamp >= today {
			s.Today++
		}
		if e.Timestamp >= week {
			s.ThisWeek++
		}
		if e.WalletAddress != "" && e.WalletAddress != domain.NotConnectedWallet {
			s.WithWallets++
		}
	}
	return s
}

// CSVHeader is the header row of WriteCSV.
var CSVHeader = []string{"Email", "Wallet Address", "Timestamp", "Source"}

// WriteCSV writes entries with RFC 3339 UTC timestamps. Nothing is
// written for an empty list.
func WriteCSV(w io.Writer, entries []*domain.WaitlistEntry) error {
	if len(entries) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range entries {
		ts := time.UnixMilli(e.Timestamp).UTC().Format("2006-01-02T15:04:05.000Z07:00")
		if err := cw.Write([]string{e.Email, e.WalletAddress, ts, e.Source}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
