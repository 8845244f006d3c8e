package templates

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"handshake/backend/internal/apperror"
)

// DateLayout formats the agreement date in contract text (e.g. "March 1, 2026").
const DateLayout = "January 2, 2006"

// Get returns the template for id, or nil if unknown.
func Get(id string) *Template {
	return byID[id]
}

// List returns every template in catalog order.
func List() []*Template {
	out := make([]*Template, len(catalog))
	copy(out, catalog)
	return out
}

// Rendered is the output of Render.
type Rendered struct {
	TemplateID      string
	TemplateVersion int
	Title           string
	// Fields holds the trimmed values of the template's declared fields; undeclared keys are dropped.
	Fields       map[string]string
	ContractText string
}

// Render validates fields against template id and renders its contract text dated date.
// Missing or blank required fields and unparseable numbers are validation errors naming the field label.
func Render(id string, fields map[string]string, date time.Time) (*Rendered, error) {
	t := Get(id)
	if t == nil {
		return nil, apperror.Validation(fmt.Sprintf("Unknown template: %s", id))
	}
	clean := make(map[string]string, len(t.Fields))
	for _, f := range t.Fields {
		v := strings.TrimSpace(fields[f.Key])
		if v == "" {
			if f.Required {
				return nil, apperror.Validation(fmt.Sprintf("Field %q is required", f.Label))
			}
			continue
		}
		if f.Type == FieldNumber {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil || n < 0 {
				return nil, apperror.Validation(fmt.Sprintf("Field %q must be a non-negative number", f.Label))
			}
		}
		if f.Type == FieldDate {
			if _, err := time.Parse(time.DateOnly, v); err != nil {
				return nil, apperror.Validation(fmt.Sprintf("Field %q must be a date (YYYY-MM-DD)", f.Label))
			}
		}
		clean[f.Key] = v
	}
	var b strings.Builder
	data := struct {
		Date string
		F    map[string]string
	}{Date: date.Format(DateLayout), F: clean}
	if err := t.body.Execute(&b, data); err != nil {
		return nil, fmt.Errorf("templates: render %s: %w", id, err)
	}
	return &Rendered{
		TemplateID:      t.ID,
		TemplateVersion: Version,
		Title:           t.Title,
		Fields:          clean,
		ContractText:    b.String(),
	}, nil
}

func money(v string) string {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	return strconv.FormatFloat(n, 'f', 2, 64)
}
