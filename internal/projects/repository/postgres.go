package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ocean-authoring/ocean-backend/internal/projects/domain"
)

// PostgresRepository keeps one row per project with the sections as a JSONB
// array, so a row read is a snapshot of the whole sequence.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var schemaStatements = []string{
	`create table if not exists document_projects (
		id text primary key,
		owner text not null,
		topic text not null,
		type text not null check (type in ('report', 'deck')),
		sections jsonb not null default '[]'::jsonb,
		created_at timestamptz not null,
		last_modified_at timestamptz not null
	)`,
	`create index if not exists idx_document_projects_owner_created
		on document_projects (owner, created_at desc)`,
}

// Migrate creates the tables the repository needs. It is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

const projectColumns = `id, owner, topic, type, sections, created_at, last_modified_at`

// Create inserts a new project.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Project) error {
	sections, err := json.Marshal(p.Sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}
	const q = `
insert into document_projects (id, owner, topic, type, sections, created_at, last_modified_at)
values ($1, $2, $3, $4, $5::jsonb, $6, $7);
`
	if _, err := r.db.Exec(ctx, q, p.ID, p.Owner, p.Topic, string(p.Type), string(sections), p.CreatedAt, p.LastModifiedAt); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Get returns the project if it exists and belongs to owner.
func (r *PostgresRepository) Get(ctx context.Context, owner, id string) (*domain.Project, error) {
	q := `select ` + projectColumns + ` from document_projects where id = $1 and owner = $2;`
	return scanProject(r.db.QueryRow(ctx, q, id, owner))
}

// List returns the owner's projects, newest first.
func (r *PostgresRepository) List(ctx context.Context, owner string) ([]domain.Project, error) {
	q := `select ` + projectColumns + ` from document_projects where owner = $1 order by created_at desc;`
	rows, err := r.db.Query(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ReplaceSections swaps the whole section sequence.
func (r *PostgresRepository) ReplaceSections(ctx context.Context, owner, id string, sections []domain.Section, now time.Time) (*domain.Project, error) {
	data, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sections: %w", err)
	}
	q := `
update document_projects
set sections = $3::jsonb, last_modified_at = $4
where id = $1 and owner = $2
returning ` + projectColumns + `;`
	return scanProject(r.db.QueryRow(ctx, q, id, owner, string(data), now))
}

// UpdateSection locks the row, applies fn to one section and writes back only
// that array element.
func (r *PostgresRepository) UpdateSection(ctx context.Context, owner, id string, index int, fn func(*domain.Section) error, now time.Time) (*domain.Project, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `select ` + projectColumns + ` from document_projects where id = $1 and owner = $2 for update;`
	p, err := scanProject(tx.QueryRow(ctx, q, id, owner))
	if err != nil {
		return nil, err
	}
	s, err := p.Section(index)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	p.Touch(now)

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal section: %w", err)
	}
	const upd = `
update document_projects
set sections = jsonb_set(sections, $3::text[], $4::jsonb), last_modified_at = $5
where id = $1 and owner = $2;
`
	if _, err := tx.Exec(ctx, upd, id, owner, []string{strconv.Itoa(index)}, string(data), now); err != nil {
		return nil, fmt.Errorf("failed to update section: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

// Delete removes the project.
func (r *PostgresRepository) Delete(ctx context.Context, owner, id string) error {
	ct, err := r.db.Exec(ctx, `delete from document_projects where id = $1 and owner = $2;`, id, owner)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Ping checks the database connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		p        domain.Project
		typ      string
		sections []byte
	)
	err := row.Scan(&p.ID, &p.Owner, &p.Topic, &typ, &sections, &p.CreatedAt, &p.LastModifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Type = domain.ProjectType(typ)
	if err := json.Unmarshal(sections, &p.Sections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sections: %w", err)
	}
	if p.Sections == nil {
		p.Sections = []domain.Section{}
	}
	return &p, nil
}
