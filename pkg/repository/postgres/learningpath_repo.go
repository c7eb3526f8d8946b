package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artem13815/curricula/pkg/curriculum"
)

// LearningPathRepository persists the learning-path aggregate. One active
// path per user: a new generation replaces the previous one.
type LearningPathRepository struct {
	pool *pgxpool.Pool
}

func NewLearningPathRepository(pool *pgxpool.Pool) (*LearningPathRepository, error) {
	r := &LearningPathRepository{pool: pool}
	if err := r.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *LearningPathRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS learning_paths (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL UNIQUE,
	job_text_hash TEXT NOT NULL,
	role_label TEXT NOT NULL,
	state TEXT NOT NULL,
	stages JSONB NOT NULL,
	coverage JSONB NOT NULL,
	coverage_percentage INT NOT NULL,
	sequenced_by_model BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`)
	return err
}

func (r *LearningPathRepository) Upsert(ctx context.Context, p curriculum.LearningPath) (curriculum.LearningPath, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	stagesJSON, err := json.Marshal(p.Stages)
	if err != nil {
		return curriculum.LearningPath{}, err
	}
	coverageJSON, err := json.Marshal(p.Coverage)
	if err != nil {
		return curriculum.LearningPath{}, err
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO learning_paths (id, user_id, job_text_hash, role_label, state, stages, coverage, coverage_percentage, sequenced_by_model, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (user_id) DO UPDATE SET
	id = EXCLUDED.id,
	job_text_hash = EXCLUDED.job_text_hash,
	role_label = EXCLUDED.role_label,
	state = EXCLUDED.state,
	stages = EXCLUDED.stages,
	coverage = EXCLUDED.coverage,
	coverage_percentage = EXCLUDED.coverage_percentage,
	sequenced_by_model = EXCLUDED.sequenced_by_model,
	created_at = EXCLUDED.created_at
`, p.ID, p.UserID, p.JobTextHash, p.RoleLabel, p.State, stagesJSON, coverageJSON, p.CoveragePercentage, p.SequencedByModel, p.CreatedAt)
	if err != nil {
		return curriculum.LearningPath{}, err
	}
	return p, nil
}

func (r *LearningPathRepository) GetByUser(ctx context.Context, userID uuid.UUID) (curriculum.LearningPath, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, job_text_hash, role_label, state, stages, coverage, coverage_percentage, sequenced_by_model, created_at
FROM learning_paths WHERE user_id = $1
`, userID)
	var p curriculum.LearningPath
	var stagesBytes, coverageBytes []byte
	var created time.Time
	if err := row.Scan(&p.ID, &p.UserID, &p.JobTextHash, &p.RoleLabel, &p.State, &stagesBytes, &coverageBytes, &p.CoveragePercentage, &p.SequencedByModel, &created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return curriculum.LearningPath{}, curriculum.ErrNotFound
		}
		return curriculum.LearningPath{}, err
	}
	_ = json.Unmarshal(stagesBytes, &p.Stages)
	_ = json.Unmarshal(coverageBytes, &p.Coverage)
	p.CreatedAt = created.UTC()
	return p, nil
}
