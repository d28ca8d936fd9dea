// Package memory provides an in-memory implementation of the catalog's
// relational store, used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"crisprcatalog/pkg/domain"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.Store = (*Store)(nil)

type memoryState struct {
	pathogens map[string]domain.PathogenRow
	targets   map[string][]domain.TargetRow
}

func newMemoryState() memoryState {
	return memoryState{
		pathogens: make(map[string]domain.PathogenRow),
		targets:   make(map[string][]domain.TargetRow),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.pathogens {
		cloned.pathogens[k] = v
	}
	for k, v := range s.targets {
		cloned.targets[k] = append([]domain.TargetRow(nil), v...)
	}
	return cloned
}

// Store keeps pathogen and target rows in process memory. Transactions run
// against a cloned state that replaces the live state only on success.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	nowFn  func() time.Time
	newID  func() string
	closed bool
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// WithIDGenerator overrides identifier assignment.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewStore constructs an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Counts reports the number of stored pathogen and target rows.
func (s *Store) Counts() (pathogens, targets int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rows := range s.state.targets {
		targets += len(rows)
	}
	return len(s.state.pathogens), targets
}

// SelectPathogens returns rows whose name contains filter.NameContains,
// compared under Unicode case folding, ordered by name then id.
func (s *Store) SelectPathogens(ctx context.Context, filter domain.PathogenFilter) ([]domain.PathogenRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}

	var needle string
	if filter.NameContains != "" {
		needle = cases.Fold().String(filter.NameContains)
	}
	out := make([]domain.PathogenRow, 0, len(s.state.pathogens))
	for _, row := range s.state.pathogens {
		if needle != "" && !strings.Contains(cases.Fold().String(row.Name), needle) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SelectTargets returns the targets of pathogenID ordered by start position,
// ties broken by insertion position.
func (s *Store) SelectTargets(ctx context.Context, pathogenID string) ([]domain.TargetRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	out := append([]domain.TargetRow(nil), s.state.targets[pathogenID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartPos != out[j].StartPos {
			return out[i].StartPos < out[j].StartPos
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.StoreTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// Close marks the store unusable. Stored rows are discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.state = newMemoryState()
	return nil
}

var errClosed = fmt.Errorf("memory store closed")

type transaction struct {
	store *Store
	state memoryState
	now   time.Time
}

func (tx *transaction) InsertPathogen(ctx context.Context, row domain.PathogenRow) (domain.PathogenRow, error) {
	if err := ctx.Err(); err != nil {
		return domain.PathogenRow{}, err
	}
	row.ID = tx.store.newID()
	if _, exists := tx.state.pathogens[row.ID]; exists {
		return domain.PathogenRow{}, fmt.Errorf("duplicate key value violates unique constraint \"pathogens_pkey\"")
	}
	row.CreatedAt = tx.now
	row.UpdatedAt = tx.now
	tx.state.pathogens[row.ID] = row
	return row, nil
}

func (tx *transaction) InsertTargets(ctx context.Context, pathogenID string, rows []domain.TargetRow) ([]domain.TargetRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := tx.state.pathogens[pathogenID]; !ok {
		return nil, domain.NotFoundError{Entity: domain.EntityPathogen, ID: pathogenID}
	}
	existing := tx.state.targets[pathogenID]
	out := make([]domain.TargetRow, 0, len(rows))
	for i, row := range rows {
		row.ID = tx.store.newID()
		row.PathogenID = pathogenID
		row.Position = len(existing) + i
		out = append(out, row)
	}
	tx.state.targets[pathogenID] = append(existing, out...)
	return append([]domain.TargetRow(nil), out...), nil
}
