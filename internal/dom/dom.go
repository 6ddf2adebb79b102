// Package dom is a small document layer over golang.org/x/net/html node
// trees: parse, query by CSS selector (cascadia), mutate and serialise.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrBadSelector = errors.New("dom: invalid selector")

// Parse reads a full HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return doc, nil
}

// ParseString is Parse for in-memory markup.
func ParseString(s string) (*html.Node, error) {
	return Parse(strings.NewReader(s))
}

// Query returns the first element under root (root included) that matches
// selector, in document order, or nil.
func Query(root *html.Node, selector string) (*html.Node, error) {
	match, err := matcher(selector)
	if err != nil {
		return nil, err
	}
	return find(root, match), nil
}

// QueryAll returns every element under root matching selector.
func QueryAll(root *html.Node, selector string) ([]*html.Node, error) {
	match, err := matcher(selector)
	if err != nil {
		return nil, err
	}
	var out []*html.Node
	walk(root, func(n *html.Node) bool {
		if match(n) {
			out = append(out, n)
		}
		return true
	})
	return out, nil
}

// FindByAttr returns the first element under root whose attribute key
// equals val.
func FindByAttr(root *html.Node, key, val string) *html.Node {
	return find(root, func(n *html.Node) bool {
		v, ok := Attr(n, key)
		return ok && v == val
	})
}

func matcher(selector string) (func(*html.Node) bool, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadSelector)
	}
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadSelector, selector, err)
	}
	return sel.Match, nil
}

func find(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// walk visits element nodes depth-first; visit returns false to stop.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if n == nil {
		return true
	}
	if n.Type == html.ElementNode && !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

// Attr returns the value of attribute key.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets (or adds) attribute key.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute key if present.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// Classes splits the class attribute.
func Classes(n *html.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

func HasClass(n *html.Node, class string) bool {
	for _, c := range Classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

// Value is the form value of an input element.
func Value(n *html.Node) string {
	v, _ := Attr(n, "value")
	return v
}

func SetValue(n *html.Node, v string) {
	SetAttr(n, "value", v)
}

// Style returns the inline style property prop ("" when unset).
func Style(n *html.Node, prop string) string {
	for _, decl := range parseStyle(n) {
		if decl[0] == prop {
			return decl[1]
		}
	}
	return ""
}

// SetStyle sets inline style property prop, keeping other declarations.
// An empty value removes the property.
func SetStyle(n *html.Node, prop, val string) {
	decls := parseStyle(n)
	out := decls[:0]
	replaced := false
	for _, d := range decls {
		if d[0] == prop {
			if val == "" || replaced {
				continue
			}
			d[1] = val
			replaced = true
		}
		out = append(out, d)
	}
	if !replaced && val != "" {
		out = append(out, [2]string{prop, val})
	}
	if len(out) == 0 {
		RemoveAttr(n, "style")
		return
	}
	parts := make([]string, 0, len(out))
	for _, d := range out {
		parts = append(parts, d[0]+": "+d[1])
	}
	SetAttr(n, "style", strings.Join(parts, "; "))
}

func parseStyle(n *html.Node) [][2]string {
	raw, _ := Attr(n, "style")
	var out [][2]string
	for _, decl := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" {
			continue
		}
		out = append(out, [2]string{k, v})
	}
	return out
}

// ClearChildren removes every child of n (innerHTML = "").
func ClearChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, text string) {
	ClearChildren(n)
	n.AppendChild(Text(text))
}

// TextContent concatenates all descendant text.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return b.String()
}

// Element builds a detached element. attrs are key/value pairs.
func Element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Text builds a detached text node. Rendering escapes it.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Children returns the element children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Render serialises n (a document or any subtree).
func Render(w io.Writer, n *html.Node) error {
	return html.Render(w, n)
}

// RenderString is Render into a string.
func RenderString(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
