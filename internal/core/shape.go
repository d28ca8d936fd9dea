package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"crisprcatalog/pkg/domain"

	"golang.org/x/sync/errgroup"
)

// load selects pathogen rows and attaches their target sites. Any failure
// aborts the whole read; callers never see a partially shaped list.
func (s *Service) load(ctx context.Context, filter domain.PathogenFilter) ([]domain.Pathogen, error) {
	rows, err := s.store.SelectPathogens(ctx, filter)
	if err != nil {
		return nil, wrapStoreError("select pathogens", err)
	}
	out := make([]domain.Pathogen, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchLimit)
	for i, row := range rows {
		g.Go(func() error {
			targets, err := s.store.SelectTargets(gctx, row.ID)
			if err != nil {
				return wrapStoreError("select target sites", err)
			}
			shaped, err := toPathogen(row, targets)
			if err != nil {
				return err
			}
			out[i] = shaped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func toPathogen(row domain.PathogenRow, targets []domain.TargetRow) (domain.Pathogen, error) {
	created := row.CreatedAt
	updated := row.UpdatedAt
	p := domain.Pathogen{
		ID:        row.ID,
		Name:      row.Name,
		Strain:    row.Strain,
		CasSystem: domain.CasSystem{Type: row.CasType, Description: row.CasDescription},
		Targets:   make([]domain.TargetSite, 0, len(targets)),
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
	for _, t := range targets {
		site, err := toTarget(t)
		if err != nil {
			return domain.Pathogen{}, err
		}
		p.Targets = append(p.Targets, site)
	}
	return p, nil
}

func toTarget(row domain.TargetRow) (domain.TargetSite, error) {
	gc, err := strconv.ParseFloat(strings.TrimSpace(row.GCContent), 64)
	if err != nil {
		return domain.TargetSite{}, domain.StoreError{
			Op:  "decode target site",
			Err: fmt.Errorf("target site %s: invalid gc_content %q", row.ID, row.GCContent),
		}
	}
	return domain.TargetSite{
		Sequence:  row.Sequence,
		PAM:       row.PAM,
		StartPos:  row.StartPos,
		EndPos:    row.EndPos,
		Strand:    row.Strand,
		GCContent: gc,
	}, nil
}

func fromPathogen(p domain.Pathogen) domain.PathogenRow {
	return domain.PathogenRow{
		Name:           p.Name,
		Strain:         p.Strain,
		CasType:        p.CasSystem.Type,
		CasDescription: p.CasSystem.Description,
	}
}

func fromTargets(sites []domain.TargetSite) []domain.TargetRow {
	rows := make([]domain.TargetRow, 0, len(sites))
	for _, t := range sites {
		rows = append(rows, domain.TargetRow{
			Sequence:  t.Sequence,
			PAM:       t.PAM,
			StartPos:  t.StartPos,
			EndPos:    t.EndPos,
			Strand:    t.Strand,
			GCContent: strconv.FormatFloat(t.GCContent, 'f', -1, 64),
		})
	}
	return rows
}
