package domain

import (
	"context"
	"time"
)

// PathogenRow is the flat stored shape of a pathogen.
type PathogenRow struct {
	ID             string
	Name           string
	Strain         string
	CasType        string
	CasDescription string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TargetRow is the flat stored shape of a target site. GCContent holds the
// store's textual representation of the percentage.
type TargetRow struct {
	ID         string
	PathogenID string
	Position   int
	Sequence   string
	PAM        string
	StartPos   int
	EndPos     int
	Strand     string
	GCContent  string
}

// PathogenFilter narrows SelectPathogens. NameContains is matched as a
// literal, case-insensitive substring; empty matches every row.
type PathogenFilter struct {
	NameContains string
}

// Store is the relational store consumed by the catalog service.
type Store interface {
	// SelectPathogens returns matching rows ordered by name ascending.
	SelectPathogens(ctx context.Context, filter PathogenFilter) ([]PathogenRow, error)
	// SelectTargets returns the targets of one pathogen ordered by start
	// position ascending, ties broken by insertion position.
	SelectTargets(ctx context.Context, pathogenID string) ([]TargetRow, error)
	// RunInTransaction applies fn atomically: either every insert made
	// through tx becomes visible or none does.
	RunInTransaction(ctx context.Context, fn func(tx StoreTx) error) error
	Close() error
}

// StoreTx exposes the inserts available inside a transaction.
type StoreTx interface {
	// InsertPathogen stores row, assigning ID and timestamps, and returns the stored row.
	InsertPathogen(ctx context.Context, row PathogenRow) (PathogenRow, error)
	// InsertTargets stores rows under pathogenID and returns them in insertion order.
	InsertTargets(ctx context.Context, pathogenID string, rows []TargetRow) ([]TargetRow, error)
}
