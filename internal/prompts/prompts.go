// Package prompts holds the built-in generation prompt templates.
//
// Templates use fmt verbs with explicit argument indexes. The prompt store
// writes them to disk on first use so users can edit them.
package prompts

import (
	"embed"
	"regexp"
	"slices"
	"sort"
	"strings"
)

//go:embed templates/*.txt
var templates embed.FS

// Default returns the built-in template for name.
func Default(name string) (string, bool) {
	data, err := templates.ReadFile("templates/" + name + ".txt")
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Names returns the names of all built-in templates in sorted order.
func Names() []string {
	entries, err := templates.ReadDir("templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".txt"))
	}
	sort.Strings(names)
	return names
}

var placeholder = regexp.MustCompile(`%\[\d+\][a-zA-Z]`)

// Missing returns the placeholders used by the built-in template name
// that tmpl does not contain, in order of first use. Unknown names
// require nothing.
func Missing(name, tmpl string) []string {
	def, ok := Default(name)
	if !ok {
		return nil
	}
	var missing []string
	for _, verb := range placeholder.FindAllString(def, -1) {
		if !strings.Contains(tmpl, verb) && !slices.Contains(missing, verb) {
			missing = append(missing, verb)
		}
	}
	return missing
}
