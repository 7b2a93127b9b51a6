package media

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/folio/internal/models"
)

// Day is one cell of a check-in calendar.
type Day struct {
	Date      time.Time
	CheckedIn bool
	Today     bool
}

// Calendar is one month of daily check-ins, weeks starting on Sunday.
type Calendar struct {
	Month time.Time
	// Weeks holds seven entries per row; days outside the month are zero.
	Weeks [][7]Day
}

// NewCalendar lays out the month containing now from the ledger's daily_checkin entries.
func NewCalendar(ledger models.CoinLedger, now time.Time) Calendar {
	now = now.Local()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	days := ledger.CheckinDays()
	today := now.Format(time.DateOnly)

	cal := Calendar{Month: first}
	var week [7]Day
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		week[d.Weekday()] = Day{Date: d, CheckedIn: days[key], Today: key == today}
		if d.Weekday() == time.Saturday {
			cal.Weeks = append(cal.Weeks, week)
			week = [7]Day{}
		}
	}
	if week != ([7]Day{}) {
		cal.Weeks = append(cal.Weeks, week)
	}
	return cal
}

// CheckedInDays counts the month's check-ins.
func (c Calendar) CheckedInDays() int {
	n := 0
	for _, w := range c.Weeks {
		for _, d := range w {
			if d.CheckedIn {
				n++
			}
		}
	}
	return n
}

// String renders the month as a text grid. Checked-in days are marked with *, today without a check-in with ?.
func (c Calendar) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", c.Month.Format("January 2006"))
	b.WriteString(" Su  Mo  Tu  We  Th  Fr  Sa\n")
	for _, w := range c.Weeks {
		for i, d := range w {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(cell(d))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func cell(d Day) string {
	if d.Date.IsZero() {
		return "   "
	}
	mark := " "
	switch {
	case d.CheckedIn:
		mark = "*"
	case d.Today:
		mark = "?"
	}
	return fmt.Sprintf("%2d%s", d.Date.Day(), mark)
}

// Streak counts consecutive check-in days ending today, or yesterday if today is still open.
func Streak(ledger models.CoinLedger, now time.Time) int {
	days := ledger.CheckinDays()
	d := now.Local()
	if !days[d.Format(time.DateOnly)] {
		d = d.AddDate(0, 0, -1)
	}
	n := 0
	for days[d.Format(time.DateOnly)] {
		n++
		d = d.AddDate(0, 0, -1)
	}
	return n
}
