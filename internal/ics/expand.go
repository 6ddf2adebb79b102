package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "eventlist/internal/log"
	"eventlist/internal/model"
)

const defaultMaxPerEvent = 500

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// Location is the zone occurrences are written in. Nil means UTC.
	Location *time.Location

	// RangeStart / RangeEnd bound the occurrences kept (inclusive).
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxPerEvent caps occurrences per series. Zero means 500.
	MaxPerEvent int
}

// Occurrence is one concrete instance ready to become a Draft.
type Occurrence struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
	AllDay  bool
}

// Draft formats the occurrence the way the event form would: dates for
// all-day events, DateTimeLayout otherwise.
func (o Occurrence) Draft() model.Draft {
	layout := DateTimeLayout
	if o.AllDay {
		layout = dateLayout
	}
	return model.Draft{
		Name:  o.Summary,
		Start: o.Start.Format(layout),
		End:   o.End.Format(layout),
	}
}

// Expand turns parsed events into occurrences inside the configured range,
// applying RRULE, EXDATE and RECURRENCE-ID overrides. Results are ordered
// by start time. The second return lists UIDs that hit MaxPerEvent.
func Expand(events []ParsedEvent, cfg ExpandConfig) ([]Occurrence, []string, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, nil, errors.New("ics: range end is before range start")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxPerEvent <= 0 {
		cfg.MaxPerEvent = defaultMaxPerEvent
	}

	overrides := make(map[string][]ParsedEvent)
	var bases []ParsedEvent
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	var out []Occurrence
	var truncated []string
	for _, ev := range bases {
		var occ []Occurrence
		hitCap := false
		if ev.RawRRule == "" {
			occ = expandSingle(ev, overrides[ev.UID], cfg)
		} else {
			occ, hitCap = expandSeries(ev, overrides[ev.UID], cfg)
		}
		if hitCap {
			truncated = append(truncated, ev.UID)
			appLog.Warn("ics: occurrences truncated", "uid", ev.UID, "cap", cfg.MaxPerEvent)
		}
		out = append(out, occ...)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, truncated, nil
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []Occurrence {
	if !overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	if o, ok := overrideFor(overrides, ev.Start); ok {
		return []Occurrence{occurrence(o, o.Start, o.End, cfg.Location)}
	}
	return []Occurrence{occurrence(ev, ev.Start, ev.End, cfg.Location)}
}

func expandSeries(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	starts := set.Between(cfg.RangeStart.In(loc), cfg.RangeEnd.In(loc), true)

	hitCap := false
	if len(starts) > cfg.MaxPerEvent {
		starts = starts[:cfg.MaxPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		if o, ok := overrideFor(overrides, s); ok {
			out = append(out, occurrence(o, o.Start, o.End, cfg.Location))
			continue
		}
		out = append(out, occurrence(ev, s, s.Add(dur), cfg.Location))
	}
	return out, hitCap
}

func overrideFor(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

func occurrence(ev ParsedEvent, start, end time.Time, loc *time.Location) Occurrence {
	if ev.AllDay {
		start = floorDay(start, loc)
		end = floorDay(end, loc)
	} else {
		start = start.In(loc)
		end = end.In(loc)
	}
	return Occurrence{
		UID:     ev.UID,
		Summary: ev.Summary,
		Start:   start,
		End:     end,
		AllDay:  ev.AllDay,
	}
}

// floorDay keeps the calendar date of t but pins it to midnight in loc.
func floorDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
