package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/workradius/internal/core/domain"
)

// JobRepo implements ports.JobRepository on a JSONB document table.
type JobRepo struct {
	db *DB
}

// NewJobRepo creates a new JobRepo.
func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

// Create inserts a posting; posted_at is assigned by the database.
func (r *JobRepo) Create(ctx context.Context, job *domain.JobPosting) error {
	doc, err := encodeJobDocument(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO jobs (id, doc)
		VALUES ($1, $2::jsonb)
		RETURNING posted_at
	`, job.ID, doc).Scan(&job.PostedAt)
}

// GetByID returns a posting by id.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*domain.JobPosting, error) {
	var (
		doc      map[string]any
		postedAt time.Time
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT doc, posted_at FROM jobs WHERE id = $1
	`, id).Scan(&doc, &postedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	job := decodeJobDocument(id, postedAt, doc)
	return &job, nil
}

// FetchRecent returns up to limit postings, newest first. Failures are
// reported as domain.ErrCandidateFetch.
func (r *JobRepo) FetchRecent(ctx context.Context, limit int) ([]domain.JobPosting, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, doc, posted_at
		FROM jobs
		ORDER BY posted_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCandidateFetch, err)
	}
	defer rows.Close()

	jobs := make([]domain.JobPosting, 0, limit)
	for rows.Next() {
		var (
			id       string
			doc      map[string]any
			postedAt time.Time
		)
		if err := rows.Scan(&id, &doc, &postedAt); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCandidateFetch, err)
		}
		jobs = append(jobs, decodeJobDocument(id, postedAt, doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCandidateFetch, err)
	}
	return jobs, nil
}

// SetCoordinate writes the coordinate into the posting document.
func (r *JobRepo) SetCoordinate(ctx context.Context, id string, coord domain.Coordinate) error {
	value, err := encodeCoordinate(coord)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE jobs SET doc = jsonb_set(doc, '{coordinate}', $2::jsonb, true)
		WHERE id = $1
	`, id, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a posting.
func (r *JobRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateBatch inserts many postings using pgx.Batch. Used by the seed command.
func (r *JobRepo) CreateBatch(ctx context.Context, jobs []domain.JobPosting) error {
	batch := &pgx.Batch{}
	for i := range jobs {
		doc, err := encodeJobDocument(&jobs[i])
		if err != nil {
			return fmt.Errorf("encode job %s: %w", jobs[i].ID, err)
		}
		batch.Queue(`
			INSERT INTO jobs (id, doc) VALUES ($1, $2::jsonb)
			ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
		`, jobs[i].ID, doc)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range jobs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}
