package mail

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/vigliag/vijournalbot/internal/model"
)

//go:embed templates/weekly.tmpl
var templates embed.FS

// DayEntries holds the updates written on one calendar date.
type DayEntries struct {
	Date    time.Time
	Updates []model.Update
}

// GroupByDay buckets updates by their calendar date in loc, converting each
// timestamp to loc for display. Input must already be sorted by timestamp;
// the output keeps that order.
func GroupByDay(updates []model.Update, loc *time.Location) []DayEntries {
	var days []DayEntries
	for _, u := range updates {
		u.Timestamp = u.Timestamp.In(loc)
		y, m, d := u.Timestamp.Date()
		date := time.Date(y, m, d, 0, 0, 0, 0, loc)
		if n := len(days); n > 0 && days[n-1].Date.Equal(date) {
			days[n-1].Updates = append(days[n-1].Updates, u)
			continue
		}
		days = append(days, DayEntries{Date: date, Updates: []model.Update{u}})
	}
	return days
}

// Digest renders the weekly recap mail body.
type Digest struct {
	tmpl *template.Template
}

func NewDigest() (*Digest, error) {
	tmpl, err := template.ParseFS(templates, "templates/weekly.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse digest template: %w", err)
	}
	return &Digest{tmpl: tmpl}, nil
}

func (d *Digest) Render(user model.User, days []DayEntries, start, end time.Time) (string, error) {
	var sb strings.Builder
	err := d.tmpl.Execute(&sb, struct {
		User  model.User
		Days  []DayEntries
		Start time.Time
		End   time.Time
	}{user, days, start, end})
	if err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return strings.TrimSpace(sb.String()) + "\n", nil
}
