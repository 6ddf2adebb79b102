package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrIncompleteDraft is returned by Draft.Validate when a required field is
// empty.
var ErrIncompleteDraft = errors.New("draft is missing required fields")

// ID is the opaque, server-assigned identifier of an Event. The events
// service may send it as a JSON string or a JSON number; the textual form is
// kept either way and numeric ids are written back as numbers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("event id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id != "" && json.Valid([]byte(id)) && isNumeric(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

func isNumeric(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != 'e' && r != 'E' && r != '+' && r != '-' {
			return false
		}
	}
	return true
}

// Event is a named interval as stored by the events service. Start and End
// are free-form strings; the client never interprets them for display.
type Event struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Draft is a client-built Event without an id, submitted for creation.
type Draft struct {
	Name  string `json:"name" validate:"required"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports ErrIncompleteDraft (wrapped with the offending fields)
// when any of name, start or end is empty.
func (d Draft) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
		return fmt.Errorf("%w: %s", ErrIncompleteDraft, strings.Join(fields, ", "))
	}
	return err
}

// EventList is the client-side model: the sequence returned by the last
// successful fetch. It is replaced wholesale, never edited in place.
type EventList struct {
	mu        sync.RWMutex
	events    []Event
	fetchedAt time.Time
}

func NewEventList() *EventList {
	return &EventList{}
}

// Replace swaps in a freshly fetched sequence.
func (l *EventList) Replace(events []Event) {
	cp := make([]Event, len(events))
	copy(cp, events)

	l.mu.Lock()
	l.events = cp
	l.fetchedAt = time.Now()
	l.mu.Unlock()
}

// Events returns a copy of the current sequence.
func (l *EventList) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := make([]Event, len(l.events))
	copy(cp, l.events)
	return cp
}

func (l *EventList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// FetchedAt is the zero time until the first Replace.
func (l *EventList) FetchedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fetchedAt
}
