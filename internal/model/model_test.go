package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestEventUnmarshal_IDForms(t *testing.T) {
	t.Parallel()

	body := `[
		{"id":1,"name":"Standup","start":"09:00","end":"09:15"},
		{"id":"a1b2","name":"Lunch","start":"12:00","end":"13:00"},
		{"id":null,"name":"Nameless","start":"","end":""}
	]`
	var events []Event
	if err := json.Unmarshal([]byte(body), &events); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []ID{"1", "a1b2", ""}
	for i, ev := range events {
		if ev.ID != want[i] {
			t.Errorf("event %d id = %q, want %q", i, ev.ID, want[i])
		}
	}
	if events[0].Name != "Standup" || events[0].Start != "09:00" || events[0].End != "09:15" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
}

func TestEventUnmarshal_RejectsObjectID(t *testing.T) {
	t.Parallel()

	var ev Event
	if err := json.Unmarshal([]byte(`{"id":{"x":1}}`), &ev); err == nil {
		t.Fatal("expected error for object id")
	}
}

func TestIDMarshal(t *testing.T) {
	t.Parallel()

	cases := map[ID]string{
		"42":   `42`,
		"a1b2": `"a1b2"`,
		"":     `""`,
		"-":    `"-"`,
	}
	for id, want := range cases {
		got, err := json.Marshal(id)
		if err != nil {
			t.Fatalf("marshal %q: %v", id, err)
		}
		if string(got) != want {
			t.Errorf("marshal %q = %s, want %s", id, got, want)
		}
	}
}

func TestDraftValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		draft   Draft
		wantErr bool
		field   string
	}{
		{name: "complete", draft: Draft{Name: "Lunch", Start: "12:00", End: "13:00"}},
		{name: "missing name", draft: Draft{Start: "12:00", End: "13:00"}, wantErr: true, field: "name"},
		{name: "missing start", draft: Draft{Name: "Lunch", End: "13:00"}, wantErr: true, field: "start"},
		{name: "missing end", draft: Draft{Name: "Lunch", Start: "12:00"}, wantErr: true, field: "end"},
		{name: "all empty", draft: Draft{}, wantErr: true, field: "name, start, end"},
		// Whitespace counts as filled in, like a truthy string.
		{name: "whitespace", draft: Draft{Name: " ", Start: " ", End: " "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Validate()
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrIncompleteDraft) {
				t.Fatalf("expected ErrIncompleteDraft, got %v", err)
			}
			if !strings.HasSuffix(err.Error(), tc.field) {
				t.Fatalf("error %q should name %q", err, tc.field)
			}
		})
	}
}

func TestEventList_ReplaceCopies(t *testing.T) {
	t.Parallel()

	l := NewEventList()
	if !l.FetchedAt().IsZero() {
		t.Fatal("fresh list should have zero fetch time")
	}

	src := []Event{{ID: "1", Name: "Standup"}}
	l.Replace(src)
	src[0].Name = "mutated"

	got := l.Events()
	if got[0].Name != "Standup" {
		t.Fatalf("Replace must copy its input, got %q", got[0].Name)
	}
	got[0].Name = "mutated again"
	if l.Events()[0].Name != "Standup" {
		t.Fatal("Events must return a copy")
	}
	if l.Len() != 1 || l.FetchedAt().IsZero() {
		t.Fatalf("unexpected state: len=%d fetchedAt=%v", l.Len(), l.FetchedAt())
	}

	l.Replace(nil)
	if l.Len() != 0 {
		t.Fatalf("expected empty list after Replace(nil), got %d", l.Len())
	}
}
