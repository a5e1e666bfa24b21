package job

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eadvocate/eadvocate/internal/platform/apperr"
	"github.com/eadvocate/eadvocate/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const jobCols = `id, proposal_id, request_for_care_id, client_id, professional_id, patient_id,
	title, pay_range, start_date, end_date, status, created_at, updated_at`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.ProposalID, &j.RequestForCareID, &j.ClientID, &j.ProfessionalID,
		&j.PatientID, &j.Title, &j.PayRange, &j.StartDate, &j.EndDate, &j.Status,
		&j.CreatedAt, &j.UpdatedAt)
	return &j, err
}

func (r *repoPG) GetOrCreate(ctx context.Context, j *Job) (bool, error) {
	q := db.Conn(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		INSERT INTO job (id, proposal_id, request_for_care_id, client_id, professional_id,
			patient_id, title, pay_range, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (proposal_id) DO NOTHING`,
		uuid.New(), j.ProposalID, j.RequestForCareID, j.ClientID, j.ProfessionalID,
		j.PatientID, j.Title, j.PayRange, j.StartDate, j.EndDate, StatusPending)
	if err != nil {
		return false, err
	}

	stored, err := scanJob(q.QueryRow(ctx, `SELECT `+jobCols+` FROM job WHERE proposal_id = $1`, j.ProposalID))
	if err != nil {
		return false, err
	}
	*j = *stored
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	j, err := scanJob(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+jobCols+` FROM job WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("job")
	}
	return j, err
}

func (r *repoPG) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Job, int, error) {
	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM job WHERE client_id = $1 OR professional_id = $1`,
		userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+jobCols+` FROM job
		WHERE client_id = $1 OR professional_id = $1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, j)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Job, error) {
	j, err := scanJob(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE job SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2
		RETURNING `+jobCols, id, from, to))
	if db.IsNoRows(err) {
		return nil, apperr.PreconditionFailed("job status changed concurrently")
	}
	return j, err
}
