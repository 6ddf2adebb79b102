package ics

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "eventlist/internal/log"
	"eventlist/internal/model"
)

const productID = "-//eventlist//EN"

// DateTimeLayout is how imported occurrences are written into Event
// start/end strings (the format of an HTML datetime-local input).
const DateTimeLayout = "2006-01-02T15:04"

const dateLayout = "2006-01-02"

// ExportResult is a serialised calendar plus the events that could not be
// placed in time.
type ExportResult struct {
	Body    string
	Skipped []model.ID
}

// Export renders events as an iCalendar document. Start/end strings are
// interpreted with ParseEventTime; bare clock times fall on day (in loc).
// Events whose times cannot be parsed are reported in Skipped.
func Export(events []model.Event, loc *time.Location, day, now time.Time) ExportResult {
	if loc == nil {
		loc = time.UTC
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	var res ExportResult
	for _, ev := range events {
		start, allDay, err := ParseEventTime(ev.Start, loc, day)
		if err != nil {
			appLog.Debug("ics export: skipping event with unparseable start", "id", ev.ID, "start", ev.Start)
			res.Skipped = append(res.Skipped, ev.ID)
			continue
		}
		end, _, err := ParseEventTime(ev.End, loc, day)
		if err != nil {
			appLog.Debug("ics export: skipping event with unparseable end", "id", ev.ID, "end", ev.End)
			res.Skipped = append(res.Skipped, ev.ID)
			continue
		}
		if end.Before(start) {
			// "23:00" to "01:00" wraps past midnight.
			end = end.AddDate(0, 0, 1)
		}

		vev := cal.AddEvent(uidFor(ev.ID))
		vev.SetDtStampTime(now.UTC())
		vev.SetSummary(ev.Name)
		if allDay {
			vev.SetAllDayStartAt(start)
			vev.SetAllDayEndAt(end)
		} else {
			vev.SetStartAt(start)
			vev.SetEndAt(end)
		}
	}

	res.Body = cal.Serialize()
	return res
}

func uidFor(id model.ID) string {
	return id.String() + "@eventlist"
}

var errUnparseableTime = errors.New("unrecognised time format")

// ParseEventTime interprets a free-form start/end string. It accepts
// RFC 3339, "2006-01-02T15:04[:05]", "2006-01-02 15:04", a bare date
// (reported as all-day) and a bare clock time "15:04", which is placed on
// day in loc.
func ParseEventTime(s string, loc *time.Location, day time.Time) (t time.Time, allDay bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, errUnparseableTime
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", DateTimeLayout, "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, false, nil
		}
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, true, nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if clock, err := time.ParseInLocation(layout, s, loc); err == nil {
			d := day.In(loc)
			return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, loc), false, nil
		}
	}
	return time.Time{}, false, errUnparseableTime
}
