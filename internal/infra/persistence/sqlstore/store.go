// Package sqlstore implements the catalog's relational store on top of
// database/sql. Driver packages supply the connection and a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"crisprcatalog/internal/infra/persistence/sqlbundle"
	"crisprcatalog/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.Store = (*Store)(nil)

// Store persists pathogens and target sites in two related tables.
type Store struct {
	db      *sql.DB
	dialect Dialect
	nowFn   func() time.Time
	newID   func() string
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the timestamp source used for created_at/updated_at.
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

// New wraps db without touching the schema.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
		nowFn:   func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open wraps db and applies the dialect's DDL.
func Open(ctx context.Context, db *sql.DB, dialect Dialect, opts ...Option) (*Store, error) {
	s := New(db, dialect, opts...)
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate applies the schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if s.dialect.DDL == nil {
		return nil
	}
	return ApplyDDL(ctx, s.db, s.dialect.DDL())
}

// Execer is the subset of *sql.DB used to apply DDL.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ApplyDDL executes every statement of ddl in order.
func ApplyDDL(ctx context.Context, db Execer, ddl string) error {
	for _, stmt := range sqlbundle.SplitStatements(ddl) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

const pathogenColumns = "id, name, strain, cas_type, cas_description, created_at, updated_at"

const targetColumns = "id, pathogen_id, position, sequence, pam, start_pos, end_pos, strand, gc_content"

func (s *Store) selectPathogensQuery(filter domain.PathogenFilter) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT " + pathogenColumns + " FROM pathogens")
	var args []any
	if filter.NameContains != "" {
		fmt.Fprintf(&b, " WHERE name %s %s ESCAPE '%s'", s.dialect.CaseInsensitiveLike, s.dialect.Placeholder(1), sqlbundle.LikeEscape)
		args = append(args, sqlbundle.ContainsPattern(filter.NameContains))
	}
	b.WriteString(" ORDER BY name ASC, id ASC")
	return b.String(), args
}

// SelectPathogens returns rows matching filter ordered by name.
func (s *Store) SelectPathogens(ctx context.Context, filter domain.PathogenFilter) ([]domain.PathogenRow, error) {
	query, args := s.selectPathogensQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select pathogens: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.PathogenRow
	for rows.Next() {
		var (
			row              domain.PathogenRow
			id               textValue
			created, updated timeValue
		)
		if err := rows.Scan(&id, &row.Name, &row.Strain, &row.CasType, &row.CasDescription, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan pathogen: %w", err)
		}
		row.ID = id.s
		row.CreatedAt = created.t
		row.UpdatedAt = updated.t
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pathogens: %w", err)
	}
	return out, nil
}

func (s *Store) selectTargetsQuery() string {
	return "SELECT " + targetColumns + " FROM target_sites WHERE pathogen_id = " + s.dialect.Placeholder(1) +
		" ORDER BY start_pos ASC, position ASC"
}

// SelectTargets returns the targets of pathogenID ordered by start position.
func (s *Store) SelectTargets(ctx context.Context, pathogenID string) ([]domain.TargetRow, error) {
	rows, err := s.db.QueryContext(ctx, s.selectTargetsQuery(), pathogenID)
	if err != nil {
		return nil, fmt.Errorf("select target sites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.TargetRow
	for rows.Next() {
		row, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate target sites: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTarget(sc scanner) (domain.TargetRow, error) {
	var (
		row            domain.TargetRow
		id, parent, gc textValue
	)
	if err := sc.Scan(&id, &parent, &row.Position, &row.Sequence, &row.PAM, &row.StartPos, &row.EndPos, &row.Strand, &gc); err != nil {
		return domain.TargetRow{}, fmt.Errorf("scan target site: %w", err)
	}
	row.ID = id.s
	row.PathogenID = parent.s
	row.GCContent = gc.s
	return row, nil
}

// RunInTransaction wraps fn in a database transaction that is committed only
// when fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.StoreTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&transaction{store: s, tx: sqlTx, now: s.nowFn()}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

type transaction struct {
	store *Store
	tx    *sql.Tx
	now   time.Time
}

func (t *transaction) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = t.store.dialect.Placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}

func (t *transaction) InsertPathogen(ctx context.Context, row domain.PathogenRow) (domain.PathogenRow, error) {
	row.ID = t.store.newID()
	row.CreatedAt = t.now
	row.UpdatedAt = t.now
	query := "INSERT INTO pathogens (" + pathogenColumns + ") VALUES (" + t.placeholders(7) + ")"
	encode := t.store.dialect.EncodeTime
	if _, err := t.tx.ExecContext(ctx, query,
		row.ID, row.Name, row.Strain, row.CasType, row.CasDescription, encode(row.CreatedAt), encode(row.UpdatedAt),
	); err != nil {
		return domain.PathogenRow{}, fmt.Errorf("insert pathogen: %w", err)
	}
	return row, nil
}

func (t *transaction) InsertTargets(ctx context.Context, pathogenID string, rows []domain.TargetRow) ([]domain.TargetRow, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	query := "INSERT INTO target_sites (" + targetColumns + ") VALUES (" + t.placeholders(9) + ") RETURNING " + targetColumns
	stmt, err := t.tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare target insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	out := make([]domain.TargetRow, 0, len(rows))
	for i, row := range rows {
		stored, err := scanTarget(stmt.QueryRowContext(ctx,
			t.store.newID(), pathogenID, i, row.Sequence, row.PAM, row.StartPos, row.EndPos, row.Strand, row.GCContent,
		))
		if err != nil {
			return nil, fmt.Errorf("insert target site %d: %w", i, err)
		}
		out = append(out, stored)
	}
	return out, nil
}
