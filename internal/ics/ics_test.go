package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"eventlist/internal/model"
)

func TestParseEventTime(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)

	cases := []struct {
		in      string
		want    time.Time
		allDay  bool
		wantErr bool
	}{
		{in: "09:00", want: time.Date(2026, 3, 10, 9, 0, 0, 0, loc)},
		{in: "13:30:15", want: time.Date(2026, 3, 10, 13, 30, 15, 0, loc)},
		{in: "2026-04-01T08:15", want: time.Date(2026, 4, 1, 8, 15, 0, 0, loc)},
		{in: "2026-04-01 08:15", want: time.Date(2026, 4, 1, 8, 15, 0, 0, loc)},
		{in: "2026-04-01T08:15:00Z", want: time.Date(2026, 4, 1, 8, 15, 0, 0, loc)},
		{in: "2026-04-01", want: time.Date(2026, 4, 1, 0, 0, 0, 0, loc), allDay: true},
		{in: "", wantErr: true},
		{in: "tomorrow", wantErr: true},
	}
	for _, tc := range cases {
		got, allDay, err := ParseEventTime(tc.in, loc, day)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseEventTime(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseEventTime(%q): %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) || allDay != tc.allDay {
			t.Errorf("ParseEventTime(%q) = %v, %v; want %v, %v", tc.in, got, allDay, tc.want, tc.allDay)
		}
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	events := []model.Event{
		{ID: "1", Name: "Standup", Start: "09:00", End: "09:15"},
		{ID: "2", Name: "Broken", Start: "whenever", End: "later"},
		{ID: "3", Name: "Offsite", Start: "2026-03-12", End: "2026-03-13"},
	}

	res := Export(events, time.UTC, day, day)

	if len(res.Skipped) != 1 || res.Skipped[0] != "2" {
		t.Fatalf("Skipped = %v, want [2]", res.Skipped)
	}
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"SUMMARY:Standup",
		"UID:1@eventlist",
		"DTSTART:20260310T090000Z",
		"SUMMARY:Offsite",
		"DTSTART;VALUE=DATE:20260312",
	} {
		if !strings.Contains(res.Body, want) {
			t.Errorf("export missing %q\n%s", want, res.Body)
		}
	}
	if strings.Contains(res.Body, "Broken") {
		t.Error("unparseable event must not be exported")
	}
}

func TestExport_WrapsPastMidnight(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	res := Export([]model.Event{{ID: "n", Name: "Night shift", Start: "23:00", End: "01:00"}}, time.UTC, day, day)

	if !strings.Contains(res.Body, "DTEND:20260311T010000Z") {
		t.Fatalf("end should roll to the next day:\n%s", res.Body)
	}
}

const recurringCalendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:standup
SUMMARY:Standup
DTSTART:20260302T090000Z
DTEND:20260302T091500Z
RRULE:FREQ=DAILY;COUNT=5
EXDATE:20260304T090000Z
END:VEVENT
BEGIN:VEVENT
UID:standup
RECURRENCE-ID:20260305T090000Z
SUMMARY:Standup (moved)
DTSTART:20260305T100000Z
DTEND:20260305T101500Z
END:VEVENT
BEGIN:VEVENT
UID:holiday
SUMMARY:Holiday
DTSTART;VALUE=DATE:20260303
DTEND;VALUE=DATE:20260304
END:VEVENT
BEGIN:VEVENT
SUMMARY:No uid
DTSTART:20260303T120000Z
END:VEVENT
END:VCALENDAR
`

func TestParse(t *testing.T) {
	t.Parallel()

	events, err := Parse([]byte(strings.ReplaceAll(recurringCalendar, "\n", "\r\n")))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("parsed %d events, want 3 (no-uid event skipped)", len(events))
	}

	base := events[0]
	if base.RawRRule != "FREQ=DAILY;COUNT=5" || len(base.ExDates) != 1 || base.IsOverride() {
		t.Fatalf("base = %+v", base)
	}
	if !events[1].IsOverride() {
		t.Fatal("second event should be an override")
	}
	if !events[2].AllDay {
		t.Fatal("holiday should be all-day")
	}
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte("  \n")); err == nil {
		t.Fatal("expected error for empty calendar")
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	events, err := Parse([]byte(strings.ReplaceAll(recurringCalendar, "\n", "\r\n")))
	if err != nil {
		t.Fatal(err)
	}

	occ, truncated, err := Expand(events, ExpandConfig{
		Location:   time.UTC,
		RangeStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(truncated) != 0 {
		t.Fatalf("unexpected truncation: %v", truncated)
	}

	var got []string
	for _, o := range occ {
		d := o.Draft()
		got = append(got, d.Name+" "+d.Start+" "+d.End)
	}
	want := []string{
		"Standup 2026-03-02T09:00 2026-03-02T09:15",
		"Standup 2026-03-03T09:00 2026-03-03T09:15",
		"Holiday 2026-03-03 2026-03-04",
		"Standup (moved) 2026-03-05T10:00 2026-03-05T10:15",
		"Standup 2026-03-06T09:00 2026-03-06T09:15",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("occurrences:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestExpand_Cap(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	events := []ParsedEvent{{
		UID:      "daily",
		Summary:  "Daily",
		Start:    start,
		End:      start.Add(time.Hour),
		RawRRule: "FREQ=DAILY",
	}}

	occ, truncated, err := Expand(events, ExpandConfig{
		RangeStart:  start,
		RangeEnd:    start.AddDate(0, 1, 0),
		MaxPerEvent: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(occ) != 3 || len(truncated) != 1 || truncated[0] != "daily" {
		t.Fatalf("occ=%d truncated=%v", len(occ), truncated)
	}
}

func TestExpand_BadRange(t *testing.T) {
	t.Parallel()

	now := time.Now()
	if _, _, err := Expand(nil, ExpandConfig{RangeStart: now, RangeEnd: now.Add(-time.Hour)}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRead(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cal.ics" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	}))
	t.Cleanup(srv.Close)

	body, err := Read(context.Background(), srv.URL+"/cal.ics")
	if err != nil || !strings.HasPrefix(string(body), "BEGIN:VCALENDAR") {
		t.Fatalf("remote read = %q, %v", body, err)
	}
	if _, err := Read(context.Background(), srv.URL+"/missing.ics"); err == nil {
		t.Fatal("expected error for 404")
	}

	path := filepath.Join(t.TempDir(), "local.ics")
	if err := os.WriteFile(path, []byte("BEGIN:VCALENDAR"), 0o600); err != nil {
		t.Fatal(err)
	}
	body, err = Read(context.Background(), path)
	if err != nil || string(body) != "BEGIN:VCALENDAR" {
		t.Fatalf("local read = %q, %v", body, err)
	}
}

func TestRedactURL(t *testing.T) {
	t.Parallel()

	got := redactURL("https://calendar.example.com/private-abc123/basic.ics")
	if got != "https://calendar.example.com/...(redacted)" {
		t.Fatalf("redactURL = %q", got)
	}
}
