// Package domain defines the catalog entities, the persistence contract
// exposed by relational store drivers, and the rule evaluation primitives
// used by crisprcatalog.
package domain

import "time"

// EntityType identifies the type of record stored in the catalog.
type EntityType string

const (
	// EntityPathogen identifies a pathogen record.
	EntityPathogen EntityType = "pathogen"
	// EntityTargetSite identifies a target site owned by a pathogen.
	EntityTargetSite EntityType = "target_site"
)

// Strand symbols accepted for target sites.
const (
	StrandForward = "+"
	StrandReverse = "-"
)

// CasSystem describes the CRISPR nuclease variant used against a pathogen.
type CasSystem struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// TargetSite is a genomic interval with its guide sequence and PAM motif.
type TargetSite struct {
	Sequence  string  `json:"sequence"`
	PAM       string  `json:"pam"`
	StartPos  int     `json:"start_pos"`
	EndPos    int     `json:"end_pos"`
	Strand    string  `json:"strand"`
	GCContent float64 `json:"gc_content"`
}

// Pathogen is a named strain paired with a Cas system and its target sites.
// ID and the timestamps are assigned by the store and are empty until the
// pathogen has been persisted.
type Pathogen struct {
	ID        string       `json:"id,omitempty"`
	Name      string       `json:"name"`
	Strain    string       `json:"strain"`
	CasSystem CasSystem    `json:"cas_system"`
	Targets   []TargetSite `json:"targets"`
	CreatedAt *time.Time   `json:"created_at,omitempty"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
}

// Persisted reports whether the pathogen carries store-assigned identity.
func (p Pathogen) Persisted() bool {
	return p.ID != "" && p.CreatedAt != nil && p.UpdatedAt != nil
}

// Draft returns a copy of p stripped of every store-assigned field.
func (p Pathogen) Draft() Pathogen {
	cp := p
	cp.ID = ""
	cp.CreatedAt = nil
	cp.UpdatedAt = nil
	cp.Targets = append([]TargetSite(nil), p.Targets...)
	return cp
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine whether a create may proceed.
const (
	// SeverityBlock rejects the create before anything is persisted.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported to the caller but allows the create.
	SeverityWarn Severity = "warn"
)

// Violation is a single rule finding.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	Field    string     `json:"field,omitempty"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Filter returns the violations carrying the given severity.
func (r Result) Filter(severity Severity) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == severity {
			out = append(out, v)
		}
	}
	return out
}
