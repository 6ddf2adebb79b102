package controller

import (
	"errors"

	"eventlist/internal/model"
	"eventlist/internal/view"
)

// Interaction names a user action the controller listens for.
type Interaction string

const (
	Submit Interaction = "submit"
	Click  Interaction = "click"
	Toggle Interaction = "toggle"
)

const (
	DisplayHidden  = "none"
	DisplayVisible = "flex"

	// MsgIncomplete is shown when a submit is missing a field.
	MsgIncomplete = "Please fill all fields"
)

// UIState is the part of the page an interaction can read or change.
type UIState struct {
	FormDisplay string
	Inputs      model.Draft
}

// Input is everything a decision may look at.
type Input struct {
	State  UIState
	Target view.Target
}

// CallKind is a store operation.
type CallKind int

const (
	CallCreate CallKind = iota + 1
	CallDelete
	CallFetch
)

func (k CallKind) String() string {
	switch k {
	case CallCreate:
		return "create"
	case CallDelete:
		return "delete"
	case CallFetch:
		return "fetch"
	default:
		return "unknown"
	}
}

// Call is one store operation in a Plan.
type Call struct {
	Kind  CallKind
	Draft model.Draft
	ID    model.ID
}

// Plan is the outcome of a decision: store calls to run in order, then the
// UI changes to apply once they all succeed.
type Plan struct {
	Calls []Call
	// Notice, when set, is shown to the user and nothing else happens.
	Notice      string
	ClearInputs bool
	// Next is the UI state to apply after the calls.
	Next UIState
}

// Decider maps an input to a plan. Deciders are pure.
type Decider func(Input) Plan

// Dispatch is the interaction table.
type Dispatch map[Interaction]Decider

// DefaultDispatch returns the submit/click/toggle table.
func DefaultDispatch() Dispatch {
	return Dispatch{
		Submit: decideSubmit,
		Click:  decideClick,
		Toggle: decideToggle,
	}
}

// Decide looks up the decider for interaction. Unknown interactions yield
// an empty plan that leaves the state as is.
func (d Dispatch) Decide(interaction Interaction, in Input) Plan {
	fn, ok := d[interaction]
	if !ok {
		return Plan{Next: in.State}
	}
	return fn(in)
}

func decideSubmit(in Input) Plan {
	draft := in.State.Inputs
	if err := draft.Validate(); err != nil {
		if errors.Is(err, model.ErrIncompleteDraft) {
			return Plan{Notice: MsgIncomplete, Next: in.State}
		}
		return Plan{Notice: err.Error(), Next: in.State}
	}
	return Plan{
		Calls: []Call{
			{Kind: CallCreate, Draft: draft},
			{Kind: CallFetch},
		},
		ClearInputs: true,
		Next:        UIState{FormDisplay: DisplayHidden},
	}
}

func decideClick(in Input) Plan {
	t := in.Target
	if !t.HasClass(view.DeleteClass) || !t.HasID || t.DataID == "" {
		return Plan{Next: in.State}
	}
	return Plan{
		Calls: []Call{
			{Kind: CallDelete, ID: model.ID(t.DataID)},
			{Kind: CallFetch},
		},
		Next: in.State,
	}
}

func decideToggle(in Input) Plan {
	next := in.State
	if in.State.FormDisplay == DisplayHidden {
		next.FormDisplay = DisplayVisible
	} else {
		next.FormDisplay = DisplayHidden
	}
	return Plan{Next: next}
}
