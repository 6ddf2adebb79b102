// Package view owns the page document and the handles into it. It draws
// the event table and reads/writes form state; it holds no business state.
package view

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"eventlist/internal/config"
	"eventlist/internal/dom"
	"eventlist/internal/model"
)

const (
	// DeleteClass marks the per-row delete button.
	DeleteClass = "btn-delete"
	// DataID carries the event id on the delete button.
	DataID = "data-id"

	deleteGlyph = "🗑"
)

// ErrMissingElement is returned by New when a selector matches nothing.
var ErrMissingElement = errors.New("view: element not found")

// Target describes the element a delegated click landed on.
type Target struct {
	Tag     string
	Classes []string
	DataID  string
	HasID   bool
}

// HasClass reports whether the target carries class.
func (t Target) HasClass(class string) bool {
	for _, c := range t.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// View binds to fixed elements of a document. All methods take the
// document lock, so a View is safe for concurrent use.
type View struct {
	mu sync.Mutex

	doc *html.Node

	form       *html.Node
	nameInput  *html.Node
	startInput *html.Node
	endInput   *html.Node
	table      *html.Node
	toggle     *html.Node
	notice     *html.Node
}

// New binds the elements named by sel inside doc.
func New(doc *html.Node, sel config.Selectors) (*View, error) {
	if doc == nil {
		return nil, errors.New("view: nil document")
	}
	v := &View{doc: doc}

	bindings := []struct {
		name     string
		selector string
		dst      **html.Node
	}{
		{"form", sel.Form, &v.form},
		{"name input", sel.NameInput, &v.nameInput},
		{"start input", sel.StartInput, &v.startInput},
		{"end input", sel.EndInput, &v.endInput},
		{"table body", sel.TableBody, &v.table},
		{"toggle button", sel.ToggleButton, &v.toggle},
		{"notice", sel.Notice, &v.notice},
	}
	for _, b := range bindings {
		n, err := dom.Query(doc, b.selector)
		if err != nil {
			return nil, fmt.Errorf("view: %s: %w", b.name, err)
		}
		if n == nil {
			return nil, fmt.Errorf("%w: %s (%q)", ErrMissingElement, b.name, b.selector)
		}
		*b.dst = n
	}
	return v, nil
}

// Render replaces every table row with one row per event, in order.
func (v *View) Render(events []model.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	dom.ClearChildren(v.table)
	for _, ev := range events {
		v.table.AppendChild(eventRow(ev))
	}
	dom.SetAttr(v.table, "data-ready", "true")
}

func eventRow(ev model.Event) *html.Node {
	row := dom.Element(atom.Tr)
	for _, text := range []string{ev.Name, ev.Start, ev.End} {
		td := dom.Element(atom.Td)
		td.AppendChild(dom.Text(text))
		row.AppendChild(td)
	}

	actions := dom.Element(atom.Td, "class", "actions")
	id := ev.ID.String()
	btn := dom.Element(atom.Button,
		"type", "submit",
		"class", DeleteClass,
		DataID, id,
		"name", "id",
		"value", id,
		"title", "Delete",
	)
	btn.AppendChild(dom.Text(deleteGlyph))
	actions.AppendChild(btn)
	row.AppendChild(actions)
	return row
}

// ClearInputs empties the three form inputs.
func (v *View) ClearInputs() {
	v.mu.Lock()
	defer v.mu.Unlock()
	dom.SetValue(v.nameInput, "")
	dom.SetValue(v.startInput, "")
	dom.SetValue(v.endInput, "")
}

// Inputs reads the current input values as a draft.
func (v *View) Inputs() model.Draft {
	v.mu.Lock()
	defer v.mu.Unlock()
	return model.Draft{
		Name:  dom.Value(v.nameInput),
		Start: dom.Value(v.startInput),
		End:   dom.Value(v.endInput),
	}
}

// SetInputs writes d into the inputs, as if the user had typed it.
func (v *View) SetInputs(d model.Draft) {
	v.mu.Lock()
	defer v.mu.Unlock()
	dom.SetValue(v.nameInput, d.Name)
	dom.SetValue(v.startInput, d.Start)
	dom.SetValue(v.endInput, d.End)
}

// FormDisplay is the form's inline display style; "" when unset.
func (v *View) FormDisplay() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return dom.Style(v.form, "display")
}

func (v *View) SetFormDisplay(display string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	dom.SetStyle(v.form, "display", display)
}

// ClickTarget resolves a click inside the table body by the clicked
// element's data-id. When nothing in the body carries that id the click is
// attributed to the body itself.
func (v *View) ClickTarget(dataID string) Target {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := v.table
	if dataID != "" {
		if hit := dom.FindByAttr(v.table, DataID, dataID); hit != nil {
			n = hit
		}
	}
	t := Target{Tag: n.Data, Classes: dom.Classes(n)}
	t.DataID, t.HasID = dom.Attr(n, DataID)
	return t
}

// Notify shows msg in the notice area until DismissNotice.
func (v *View) Notify(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	textNode, _ := dom.Query(v.notice, ".notice-text")
	if textNode == nil {
		textNode = v.notice
	}
	dom.SetText(textNode, msg)
	dom.RemoveAttr(v.notice, "hidden")
}

// Notice returns the visible notification, or "" when hidden.
func (v *View) Notice() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, hidden := dom.Attr(v.notice, "hidden"); hidden {
		return ""
	}
	textNode, _ := dom.Query(v.notice, ".notice-text")
	if textNode == nil {
		textNode = v.notice
	}
	return dom.TextContent(textNode)
}

func (v *View) DismissNotice() {
	v.mu.Lock()
	defer v.mu.Unlock()
	dom.SetAttr(v.notice, "hidden", "")
}

// Rows returns the cell texts of each table row.
func (v *View) Rows() [][]string {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out [][]string
	for _, tr := range dom.Children(v.table) {
		var cells []string
		for _, td := range dom.Children(tr) {
			cells = append(cells, dom.TextContent(td))
		}
		out = append(out, cells)
	}
	return out
}

// WriteHTML serialises the whole document.
func (v *View) WriteHTML(w io.Writer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return dom.Render(w, v.doc)
}
