// Package controller wires user interactions to the events store and
// keeps the view in sync with the server after every mutation.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	appLog "eventlist/internal/log"
	"eventlist/internal/model"
	"eventlist/internal/view"
)

// ErrNotInitialized is returned by Handle before Init has bound the
// interaction table.
var ErrNotInitialized = errors.New("controller: not initialized")

// Store is the remote event store.
type Store interface {
	FetchEvents(ctx context.Context) ([]model.Event, error)
	AddEvent(ctx context.Context, draft model.Draft) (json.RawMessage, error)
	DeleteEvent(ctx context.Context, id model.ID) error
}

// View is what the controller needs from the page.
type View interface {
	Render(events []model.Event)
	ClearInputs()
	Inputs() model.Draft
	SetInputs(d model.Draft)
	FormDisplay() string
	SetFormDisplay(display string)
}

// Notifier surfaces a message to the user until the next interaction
// succeeds.
type Notifier interface {
	Notify(msg string)
	DismissNotice()
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}
func (nopNotifier) DismissNotice() {}

// Controller owns the view and the model.
type Controller struct {
	view     View
	model    *model.EventList
	store    Store
	notifier Notifier
	dispatch Dispatch
}

// New builds a Controller. A nil notifier discards notifications.
func New(v View, m *model.EventList, s Store, n Notifier) *Controller {
	if m == nil {
		m = model.NewEventList()
	}
	if n == nil {
		n = nopNotifier{}
	}
	return &Controller{view: v, model: m, store: s, notifier: n}
}

// Init binds the interaction table and performs the first fetch and render.
// It is called once at startup.
func (c *Controller) Init(ctx context.Context) error {
	c.dispatch = DefaultDispatch()
	appLog.Debug("controller interactions bound", "count", len(c.dispatch))

	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("initial fetch: %w", err)
	}
	return nil
}

// Refresh fetches the full list, replaces the model and re-renders.
func (c *Controller) Refresh(ctx context.Context) error {
	events, err := c.store.FetchEvents(ctx)
	if err != nil {
		return err
	}
	c.model.Replace(events)
	c.view.Render(c.model.Events())
	return nil
}

// Events returns the list shown by the last successful render.
func (c *Controller) Events() []model.Event {
	return c.model.Events()
}

// Handle runs one interaction: read the page state, decide, then execute
// the plan. Store calls run in plan order; the first failure aborts the
// rest, leaving the page as it was before the interaction.
func (c *Controller) Handle(ctx context.Context, interaction Interaction, target view.Target) error {
	if c.dispatch == nil {
		return ErrNotInitialized
	}
	in := Input{
		State: UIState{
			FormDisplay: c.view.FormDisplay(),
			Inputs:      c.view.Inputs(),
		},
		Target: target,
	}
	_, err := c.run(ctx, interaction, in)
	return err
}

// HandleSubmit runs the submit interaction on draft, the values that came
// with the request, rather than on whatever the shared page inputs hold.
// A rejected or failed draft is written back into the inputs for
// correction.
func (c *Controller) HandleSubmit(ctx context.Context, draft model.Draft) error {
	if c.dispatch == nil {
		return ErrNotInitialized
	}
	in := Input{
		State: UIState{
			FormDisplay: c.view.FormDisplay(),
			Inputs:      draft,
		},
	}
	done, err := c.run(ctx, Submit, in)
	if !done {
		c.view.SetInputs(draft)
	}
	return err
}

// run decides and executes one plan. done reports whether every step ran.
func (c *Controller) run(ctx context.Context, interaction Interaction, in Input) (done bool, err error) {
	plan := c.dispatch.Decide(interaction, in)

	if plan.Notice != "" {
		c.notifier.Notify(plan.Notice)
		return false, nil
	}

	for _, call := range plan.Calls {
		if err := c.execute(ctx, call); err != nil {
			appLog.Error("interaction failed", err, "interaction", string(interaction), "call", call.Kind.String())
			c.notifier.Notify("Request failed: " + err.Error())
			return false, fmt.Errorf("%s: %s: %w", interaction, call.Kind, err)
		}
	}

	if plan.ClearInputs {
		c.view.ClearInputs()
	}
	if plan.Next.FormDisplay != in.State.FormDisplay {
		c.view.SetFormDisplay(plan.Next.FormDisplay)
	}
	c.notifier.DismissNotice()
	return true, nil
}

func (c *Controller) execute(ctx context.Context, call Call) error {
	switch call.Kind {
	case CallCreate:
		_, err := c.store.AddEvent(ctx, call.Draft)
		if err == nil {
			appLog.Info("event created", "name", call.Draft.Name)
		}
		return err
	case CallDelete:
		err := c.store.DeleteEvent(ctx, call.ID)
		if err == nil {
			appLog.Info("event deleted", "id", call.ID)
		}
		return err
	case CallFetch:
		return c.Refresh(ctx)
	default:
		return fmt.Errorf("unknown call kind %d", call.Kind)
	}
}
