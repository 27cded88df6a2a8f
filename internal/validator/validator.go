// Package validator lints dialogue documents beyond what Import strictly requires.
package validator

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/arbor/pkg/condition"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
)

// Severity ranks an Issue. Only errors make a document unusable.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding. RecordID is -1 for document-level findings.
type Issue struct {
	Severity Severity
	RecordID int
	Message  string
}

func (i Issue) String() string {
	if i.RecordID < 0 {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: record %d: %s", i.Severity, i.RecordID, i.Message)
}

// Report collects the findings of Lint, ordered by record.
type Report struct {
	Issues []Issue
}

func (r Report) filter(s Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

// Errors returns the error-level issues.
func (r Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-level issues.
func (r Report) Warnings() []Issue { return r.filter(SeverityWarning) }

// Err summarizes the error-level issues, or returns nil when there are none.
func (r Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.String()
	}
	return fmt.Errorf("found %d errors:\n- %s", len(errs), strings.Join(lines, "\n- "))
}

type linter struct {
	actions []string
}

// Option configures Lint.
type Option func(*linter)

// WithActions enables the unknown-action check against the given registered names.
func WithActions(names []string) Option {
	return func(l *linter) {
		l.actions = names
	}
}

// Lint checks that doc imports cleanly and reports authoring problems: unparsable
// conditions, placeholder or empty text, content that will be pruned, and actions
// nobody handles.
func Lint(doc *schema.Document, opts ...Option) Report {
	l := &linter{}
	for _, opt := range opts {
		opt(l)
	}

	var r Report
	if _, err := schema.Import(doc); err != nil {
		verrs := schema.ValidationErrors(err)
		if len(verrs) == 0 {
			verrs = []error{err}
		}
		for _, e := range verrs {
			id := -1
			var ve *schema.ValidationError
			if errors.As(e, &ve) {
				id = ve.ID
			}
			r.Issues = append(r.Issues, Issue{SeverityError, id, e.Error()})
		}
	}
	if doc == nil {
		return r
	}

	for _, id := range doc.IDs() {
		rec := doc.Records[id]
		if rec == nil || rec.IsLink {
			continue
		}
		if rec.Data == nil {
			r.Issues = append(r.Issues, Issue{SeverityWarning, id, "node has no content and will be pruned"})
			continue
		}
		l.lintData(&r, id, rec.Data)
	}

	slices.SortStableFunc(r.Issues, func(a, b Issue) int {
		return a.RecordID - b.RecordID
	})
	return r
}

func (l *linter) lintData(r *Report, id int, d *schema.RecordData) {
	switch strings.TrimSpace(d.Text) {
	case "":
		r.Issues = append(r.Issues, Issue{SeverityWarning, id, "text is empty"})
	case domain.DefaultText:
		r.Issues = append(r.Issues, Issue{SeverityWarning, id, "text is still the placeholder"})
	}
	if d.Condition != nil {
		if err := condition.Check(d.Condition.Expression); err != nil {
			r.Issues = append(r.Issues, Issue{SeverityError, id, fmt.Sprintf("condition %q: %v", d.Condition.Expression, err)})
		}
	}
	if d.Action != nil {
		switch {
		case d.Action.Name == "":
			r.Issues = append(r.Issues, Issue{SeverityError, id, "action has no name"})
		case l.actions != nil && !slices.Contains(l.actions, d.Action.Name):
			r.Issues = append(r.Issues, Issue{SeverityWarning, id, fmt.Sprintf("action %q is not registered", d.Action.Name)})
		}
	}
}
