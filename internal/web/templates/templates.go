// Package templates renders the datatable pages and HTMX partials.
package templates

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datatable/internal/core"
)

// TableGroup is one group of the index page.
type TableGroup struct {
	Name   string
	Tables []core.TableInfo
}

// ErrorSlotID is the element error alerts are swapped into.
const ErrorSlotID = "errors"

// htmxConfig lets HTMX swap 4xx/5xx partials so error alerts and
// validation messages reach the page.
const htmxConfig = `{"responseHandling":[{"code":"204","swap":false},{"code":"[2345]..","swap":true}]}`

// htmxScript is the pinned HTMX build loaded by every page.
const htmxScript = "https://unpkg.com/htmx.org@2.0.4"

const styles = `
body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937}
table{border-collapse:collapse;width:100%}
th,td{border-bottom:1px solid #e5e7eb;padding:.4rem .6rem;text-align:left}
thead tr.filters th{background:#f9fafb}
a.sort{color:inherit;text-decoration:none}
.field-error,.alert{color:#b91c1c}
.alert{border:1px solid #fecaca;background:#fef2f2;padding:.6rem;margin:.6rem 0}
.notice{color:#047857}
.pager{margin-top:.8rem;display:flex;gap:.8rem;align-items:center}
.loading{opacity:.5}
`

// Page wraps content in the HTML document.
func Page(title string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(w)
		h.raw("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">")
		h.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
		h.raw("<meta name=\"htmx-config\"")
		h.attr("content", htmxConfig)
		h.raw("><title>")
		h.text(title)
		h.raw("</title><script")
		h.attr("src", htmxScript)
		h.raw("></script><style>")
		h.raw(styles)
		h.raw("</style></head><body><nav><a href=\"/\">Tables</a></nav>")
		h.raw("<div aria-live=\"polite\"")
		h.attr("id", ErrorSlotID)
		h.raw("></div><main>")
		h.component(ctx, content)
		h.raw("</main></body></html>")
		return h.err
	})
}

// Index lists the registered tables by group.
func Index(groups []TableGroup) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(w)
		h.raw("<h1>Tables</h1>")
		if len(groups) == 0 {
			h.raw("<p>No tables are configured.</p>")
			return h.err
		}
		for _, g := range groups {
			name := g.Name
			if name == "" {
				name = "Other"
			}
			h.raw("<section><h2>")
			h.text(name)
			h.raw("</h2><ul>")
			for _, t := range g.Tables {
				h.raw("<li><a")
				h.attr("href", TableURL(t.Key))
				h.raw(">")
				h.text(t.Label)
				h.raw("</a></li>")
			}
			h.raw("</ul></section>")
		}
		return h.err
	})
}

// ErrorAlert renders a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(w)
		h.raw("<div class=\"alert\" role=\"alert\"><strong>")
		h.text(message)
		h.raw("</strong>")
		if action != "" {
			h.raw(" ")
			h.text(action)
		}
		if code != "" {
			h.raw(" <small>(")
			h.text(code)
			h.raw(")</small>")
		}
		h.raw("</div>")
		return h.err
	})
}

// TableURL is the page URL of a table.
func TableURL(key string) string {
	return "/table/" + url.PathEscape(key)
}

// html writes markup and remembers the first write error.
type html struct {
	w   io.Writer
	err error
}

func newHTML(w io.Writer) *html {
	return &html{w: w}
}

func (h *html) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) attr(name, value string) {
	h.raw(" " + name + "=\"" + templ.EscapeString(value) + "\"")
}

func (h *html) intAttr(name string, v int) {
	h.raw(" " + name + "=\"" + strconv.Itoa(v) + "\"")
}

func (h *html) flag(name string, on bool) {
	if on {
		h.raw(" " + name)
	}
}

func (h *html) component(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// ClearErrors empties the error slot out of band, so a successful swap
// removes a stale alert.
func ClearErrors() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(w)
		h.raw("<div hx-swap-oob=\"innerHTML\"")
		h.attr("id", ErrorSlotID)
		h.raw("></div>")
		return h.err
	})
}
