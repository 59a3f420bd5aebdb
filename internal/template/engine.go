// Package template renders path-keyed text templates with {{NAME}} placeholders.
package template

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/Strob0t/StackForge/internal/port/templatestore"
)

// placeholderPattern matches a token without whitespace, so framework
// expressions such as "{{ message }}" are never reported.
var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_.-]+)\}\}`)

// Escaped braces let a template emit literal "{{" and "}}" for frameworks
// whose own interpolation syntax would otherwise look like a placeholder.
var escapes = []struct {
	escaped string
	marker  string
	literal string
}{
	{escaped: "{{ '{{' }}", marker: "\x00SF_OPEN\x00", literal: "{{"},
	{escaped: "{{ '}}' }}", marker: "\x00SF_CLOSE\x00", literal: "}}"},
}

// Engine renders templates loaded from a Store.
type Engine struct {
	store templatestore.Store
}

// NewEngine creates an Engine backed by store.
func NewEngine(store templatestore.Store) *Engine {
	return &Engine{store: store}
}

// Raw returns the template text without substitution.
// A missing template yields templatestore.ErrNotFound.
func (e *Engine) Raw(ctx context.Context, key string) (string, error) {
	return e.store.Load(ctx, key)
}

// Render loads a template and substitutes vars into it.
func (e *Engine) Render(ctx context.Context, key string, vars map[string]string) (string, error) {
	text, err := e.store.Load(ctx, key)
	if err != nil {
		return "", err
	}
	return Substitute(text, vars), nil
}

// Substitute replaces every {{key}} for each key of vars. Unknown
// placeholders are left verbatim and a present key with an empty value yields
// the empty string. Substitution is a single pass, so values that themselves
// contain placeholders are not expanded again.
func Substitute(text string, vars map[string]string) string {
	if len(vars) == 0 {
		return text
	}
	for _, esc := range escapes {
		text = strings.ReplaceAll(text, esc.escaped, esc.marker)
	}
	text = replacerFor(vars).Replace(text)
	for _, esc := range escapes {
		text = strings.ReplaceAll(text, esc.marker, esc.literal)
	}
	return text
}

// replacerFor builds one replacer over all keys, in sorted order so the
// result does not depend on map iteration.
func replacerFor(vars map[string]string) *strings.Replacer {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", vars[k])
	}
	return strings.NewReplacer(pairs...)
}

// Placeholders returns the distinct placeholder names in text, in order of
// first appearance. Escaped braces are not reported.
func Placeholders(text string) []string {
	for _, esc := range escapes {
		text = strings.ReplaceAll(text, esc.escaped, esc.marker)
	}
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
