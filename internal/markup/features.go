package markup

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Features renders a readable summary of doc: the page title, each form's
// inputs, the buttons, the selects and the h1-h3 headers.
func Features(doc *goquery.Document) string {
	var lines []string

	if title := doc.Find("title").First(); title.Length() > 0 {
		lines = append(lines, "Page Title: "+title.Text())
	}

	doc.Find("form").Each(func(i int, form *goquery.Selection) {
		lines = append(lines, fmt.Sprintf("\nForm %d:", i+1))
		form.Find("input").Each(func(_ int, in *goquery.Selection) {
			typ, ok := in.Attr("type")
			if !ok {
				typ = "text"
			}
			id, _ := in.Attr("id")
			name, _ := in.Attr("name")
			lines = append(lines, fmt.Sprintf("  - Input: type=%s, id=%s, name=%s", typ, id, name))
		})
	})

	lines = append(lines, "\nButtons:")
	doc.Find("button").Each(func(_ int, btn *goquery.Selection) {
		id, _ := btn.Attr("id")
		lines = append(lines, fmt.Sprintf("  - Button: id=%s, text='%s'", id, strings.TrimSpace(btn.Text())))
	})

	if selects := doc.Find("select"); selects.Length() > 0 {
		lines = append(lines, "\nSelect Elements:")
		selects.Each(func(_ int, sel *goquery.Selection) {
			id, _ := sel.Attr("id")
			name, _ := sel.Attr("name")
			lines = append(lines, fmt.Sprintf("  - Select: id=%s, name=%s", id, name))
		})
	}

	if headers := doc.Find("h1, h2, h3"); headers.Length() > 0 {
		lines = append(lines, "\nPage Headers:")
		headers.Each(func(_ int, h *goquery.Selection) {
			lines = append(lines, fmt.Sprintf("  - %s: %s", goquery.NodeName(h), strings.TrimSpace(h.Text())))
		})
	}

	return strings.Join(lines, "\n")
}
