package page

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/coba-dev/coba/internal/browser"
)

// FindForm returns the first form matching selector.
func FindForm(html, selector string) (browser.Form, error) {
	doc, err := load(html, "form")
	if err != nil {
		return browser.Form{}, err
	}
	sel := doc.Find(selector).Filter("form").First()
	if sel.Length() == 0 {
		return browser.Form{}, newParseError("form", doc.Find("body"), "no form matching %q", selector)
	}
	return readForm(sel), nil
}

// FindFormWith returns the first form that has a field or button called name.
func FindFormWith(html, name string) (browser.Form, error) {
	doc, err := load(html, "form")
	if err != nil {
		return browser.Form{}, err
	}
	var (
		form  browser.Form
		found bool
	)
	doc.Find("form").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		f := readForm(sel)
		if f.Has(name) {
			form, found = f, true
		}
		return !found
	})
	if !found {
		return browser.Form{}, newParseError("form", doc.Find("body"), "no form with %q", name)
	}
	return form, nil
}

func readForm(sel *goquery.Selection) browser.Form {
	action, _ := sel.Attr("action")
	method, ok := sel.Attr("method")
	if !ok {
		method = "get"
	}
	form := browser.Form{
		Action:  action,
		Method:  strings.ToLower(method),
		Fields:  url.Values{},
		Buttons: make(map[string]string),
	}

	sel.Find("input, select, textarea, button").Each(func(_ int, in *goquery.Selection) {
		name, _ := in.Attr("name")
		if name == "" {
			return
		}
		value, _ := in.Attr("value")
		switch goquery.NodeName(in) {
		case "select":
			opt := in.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = in.Find("option").First()
			}
			if opt.Length() == 0 {
				return
			}
			v, ok := opt.Attr("value")
			if !ok {
				v = clean(opt.Text())
			}
			form.Fields.Add(name, v)
		case "textarea":
			form.Fields.Add(name, in.Text())
		case "button":
			if typ, _ := in.Attr("type"); typ == "" || strings.EqualFold(typ, "submit") {
				form.Buttons[name] = value
			}
		default:
			typ, _ := in.Attr("type")
			switch strings.ToLower(typ) {
			case "submit", "image":
				form.Buttons[name] = value
			case "radio", "checkbox":
				if _, checked := in.Attr("checked"); checked {
					if value == "" {
						value = "on"
					}
					form.Fields.Add(name, value)
				}
			case "button", "reset", "file":
			default:
				form.Fields.Add(name, value)
			}
		}
	})
	return form
}

// FindLink returns the href of the first link whose text or href contains
// substr, ignoring case.
func FindLink(html, substr string) (string, bool) {
	needle := strings.ToLower(substr)
	return FindLinkFunc(html, func(text, href string) bool {
		return strings.Contains(strings.ToLower(text), needle) ||
			strings.Contains(strings.ToLower(href), needle)
	})
}

// FindLinkFunc returns the href of the first link accepted by match.
func FindLinkFunc(html string, match func(text, href string) bool) (string, bool) {
	doc, err := load(html, "links")
	if err != nil {
		return "", false
	}
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if match(clean(a.Text()), href) {
			found = href
			return false
		}
		return true
	})
	return found, found != ""
}
