package scheduler

import (
	"fmt"
	"time"
)

// Calendar decides whether the A-share market trades on a given day.
type Calendar struct {
	loc      *time.Location
	holidays map[string]bool
}

// NewCalendar builds a calendar from YYYY-MM-DD holiday dates.
func NewCalendar(loc *time.Location, holidays []string) (*Calendar, error) {
	if loc == nil {
		loc = time.Local
	}
	c := &Calendar{loc: loc, holidays: make(map[string]bool, len(holidays))}
	for _, h := range holidays {
		d, err := time.Parse("2006-01-02", h)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h, err)
		}
		c.holidays[d.Format("2006-01-02")] = true
	}
	return c, nil
}

// IsTradingDay reports a weekday that is not a configured holiday.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	t = t.In(c.loc)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !c.holidays[t.Format("2006-01-02")]
}

// IsTradingHours reports 9:30-11:30 or 13:00-15:00 on a trading day.
func (c *Calendar) IsTradingHours(t time.Time) bool {
	if !c.IsTradingDay(t) {
		return false
	}
	t = t.In(c.loc)
	mins := t.Hour()*60 + t.Minute()
	return (mins >= 9*60+30 && mins <= 11*60+30) || (mins >= 13*60 && mins <= 15*60)
}
