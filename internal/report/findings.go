// Package report accumulates the validation findings of rejected and
// conflicting rows and renders them for the reviewer. The engine never
// aborts a row on the first bad field: every finding for a row is
// collected so the spreadsheet can be fixed in one pass.
package report

import (
	"fmt"
	"strings"
)

// Kind classifies a finding.
type Kind string

const (
	// KindEmpty marks a required field left blank.
	KindEmpty Kind = "empty"
	// KindFormat marks a value that failed to parse.
	KindFormat Kind = "format"
	// KindRange marks a value outside its allowed bounds.
	KindRange Kind = "range"
	// KindReference marks an identifier that did not resolve to a unique
	// persisted record.
	KindReference Kind = "reference"
	// KindConsistency marks a cross-field disagreement, e.g. a summary
	// column contradicting its discrete counts.
	KindConsistency Kind = "consistency"
	// KindConflict marks a row whose key already exists with different
	// content.
	KindConflict Kind = "conflict"
)

// Finding is one structured validation failure on one field.
type Finding struct {
	Field   string `json:"field"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Findings is the ordered set of failures accumulated for one row.
type Findings []Finding

// Add appends a finding.
func (f *Findings) Add(field string, kind Kind, message string) {
	*f = append(*f, Finding{Field: field, Kind: kind, Message: message})
}

// Addf appends a finding with a formatted message.
func (f *Findings) Addf(field string, kind Kind, format string, args ...interface{}) {
	f.Add(field, kind, fmt.Sprintf(format, args...))
}

// HasAny reports whether the row accumulated at least one finding.
func (f Findings) HasAny() bool {
	return len(f) > 0
}

// Fields returns the distinct fields with findings, in first-seen order.
func (f Findings) Fields() []string {
	seen := make(map[string]bool, len(f))
	var fields []string
	for _, finding := range f {
		if !seen[finding.Field] {
			seen[finding.Field] = true
			fields = append(fields, finding.Field)
		}
	}
	return fields
}

// Message consolidates every finding into one human-readable string for
// the report column.
func (f Findings) Message() string {
	parts := make([]string, 0, len(f))
	for _, finding := range f {
		parts = append(parts, fmt.Sprintf("%s: %s", finding.Field, finding.Message))
	}
	return strings.Join(parts, "; ")
}
