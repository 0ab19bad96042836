// Package template renders commit messages for sync commits.
//
// Messages are Go text/template documents with the sprig function library
// available, rendered against a MessageContext describing the run. Operators
// can override the built-in template through commit.messageTemplate in the
// configuration.
package template

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"driftsync/internal/reconciler"
)

// DefaultMessage is used when no template is configured.
const DefaultMessage = `chore(sync): reconcile {{ .TotalChanges }} resource{{ if ne .TotalChanges 1 }}s{{ end }} from {{ .Source | lower }}

{{ if .RunID }}Run {{ .RunID }} on{{ else }}On{{ end }} branch {{ .Branch }}{{ if .Namespaces }} for {{ .Namespaces | join ", " }}{{ end }}.
{{- range $action, $count := .Counts }}
{{ $action }}: {{ $count }}
{{- end }}`

// MessageContext is the data a commit message template renders against.
type MessageContext struct {
	RunID        string
	Branch       string
	Namespaces   []string
	Source       string
	Counts       map[reconciler.Action]int
	TotalChanges int
}

// Renderer produces commit messages from a parsed template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the given template text, falling back to
// DefaultMessage when it is empty. Parse errors surface at construction so
// a broken template fails the run before any mutation.
func NewRenderer(text string) (*Renderer, error) {
	if text == "" {
		text = DefaultMessage
	}
	tmpl, err := template.New("commit-message").Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing commit message template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render produces the commit message for one run.
func (r *Renderer) Render(ctx MessageContext) (string, error) {
	var buf strings.Builder
	if err := r.tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("rendering commit message: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}

// ContextFor derives the message context from a finished plan. Unchanged
// and skipped entries do not count as changes.
func ContextFor(runID string, cfg reconciler.RunConfig, counts map[reconciler.Action]int) MessageContext {
	total := 0
	visible := make(map[reconciler.Action]int, len(counts))
	for action, count := range counts {
		if count == 0 {
			continue
		}
		visible[action] = count
		if action != reconciler.ActionUnchanged && action != reconciler.ActionSkippedProtected {
			total += count
		}
	}
	return MessageContext{
		RunID:        runID,
		Branch:       cfg.Branch,
		Namespaces:   cfg.Namespaces,
		Source:       string(cfg.Policy.SourceOfTruth),
		Counts:       visible,
		TotalChanges: total,
	}
}
