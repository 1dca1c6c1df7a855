// Package browser is the HTTP side of talking to the bank: fetching pages,
// posting forms and keeping cookies between runs.
package browser

import (
	"context"
	"net/url"
	"slices"
)

// Page is an HTML document and the URL it was served from after redirects.
type Page struct {
	URL  string
	Body string
}

// Transport fetches pages and submits forms.
type Transport interface {
	Get(ctx context.Context, rawURL string) (*Page, error)
	PostForm(ctx context.Context, action string, fields url.Values) (*Page, error)
}

// Form is an HTML form with the values a browser would submit by default.
type Form struct {
	Action  string
	Method  string
	Fields  url.Values
	Buttons map[string]string // submit buttons by name
}

// Set returns a copy of f with field name set to value.
func (f Form) Set(name, value string) Form {
	f.Fields = cloneValues(f.Fields)
	f.Fields.Set(name, value)
	return f
}

// Click returns a copy of f that submits through the named button.
func (f Form) Click(button string) Form {
	value, ok := f.Buttons[button]
	if !ok {
		value = button
	}
	return f.Set(button, value)
}

// Has reports whether the form carries a field or button called name.
func (f Form) Has(name string) bool {
	if _, ok := f.Fields[name]; ok {
		return true
	}
	_, ok := f.Buttons[name]
	return ok
}

// ButtonNames returns the submit button names in sorted order.
func (f Form) ButtonNames() []string {
	var names []string
	for name := range f.Buttons {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = slices.Clone(vs)
	}
	return out
}
