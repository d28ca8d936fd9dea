package pathogens

import (
	"errors"
	"fmt"

	"crisprcatalog/pkg/domain"
)

// errMissingFields mirrors the create contract: name, strain, cas_system and
// targets must all be present.
var errMissingFields = errors.New("Missing required fields") //nolint:staticcheck // returned verbatim to API clients

type casSystemRequest struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type targetRequest struct {
	Sequence  string   `json:"sequence"`
	PAM       string   `json:"pam"`
	StartPos  *int     `json:"start_pos"`
	EndPos    *int     `json:"end_pos"`
	Strand    string   `json:"strand"`
	GCContent *float64 `json:"gc_content"`
}

// createRequest ignores id and timestamps; unknown fields are dropped.
type createRequest struct {
	Name      string            `json:"name"`
	Strain    string            `json:"strain"`
	CasSystem *casSystemRequest `json:"cas_system"`
	Targets   []targetRequest   `json:"targets"`
}

func (r createRequest) toDomain() (domain.Pathogen, error) {
	if r.Name == "" || r.Strain == "" || r.CasSystem == nil || r.Targets == nil {
		return domain.Pathogen{}, errMissingFields
	}
	p := domain.Pathogen{
		Name:      r.Name,
		Strain:    r.Strain,
		CasSystem: domain.CasSystem{Type: r.CasSystem.Type, Description: r.CasSystem.Description},
		Targets:   make([]domain.TargetSite, 0, len(r.Targets)),
	}
	for i, t := range r.Targets {
		if t.StartPos == nil || t.EndPos == nil || t.GCContent == nil {
			return domain.Pathogen{}, fmt.Errorf("%w: targets[%d] requires start_pos, end_pos and gc_content", errMissingFields, i)
		}
		p.Targets = append(p.Targets, domain.TargetSite{
			Sequence:  t.Sequence,
			PAM:       t.PAM,
			StartPos:  *t.StartPos,
			EndPos:    *t.EndPos,
			Strand:    t.Strand,
			GCContent: *t.GCContent,
		})
	}
	return p, nil
}
