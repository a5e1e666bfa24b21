package rfc

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eadvocate/eadvocate/internal/platform/apperr"
	"github.com/eadvocate/eadvocate/internal/platform/db"
)

type rfcRepoPG struct{ pool *pgxpool.Pool }

func NewRFCRepoPG(pool *pgxpool.Pool) RFCRepository {
	return &rfcRepoPG{pool: pool}
}

const rfcCols = `id, client_id, patient_id, name, description, need, services, skills,
	locations, languages, street_address_1, street_address_2, city, province, postal_code,
	gender, frequency, time_of_day, start_date, end_date, min_pay, max_pay,
	deadline_to_respond, evaluation_criteria, criminal_check_required, status,
	created_at, updated_at`

func scanRFC(row pgx.Row) (*RequestForCare, error) {
	var r RequestForCare
	err := row.Scan(&r.ID, &r.ClientID, &r.PatientID, &r.Name, &r.Description, &r.Need,
		&r.Services, &r.Skills, &r.Locations, &r.Languages, &r.StreetAddress1,
		&r.StreetAddress2, &r.City, &r.Province, &r.PostalCode, &r.Gender, &r.Frequency,
		&r.TimeOfDay, &r.StartDate, &r.EndDate, &r.MinPay, &r.MaxPay, &r.DeadlineToRespond,
		&r.EvaluationCriteria, &r.CriminalCheckRequired, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (r *rfcRepoPG) Create(ctx context.Context, rfc *RequestForCare) error {
	if rfc.ID == uuid.Nil {
		rfc.ID = uuid.New()
	}
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO request_for_care (id, client_id, patient_id, name, description, need,
			services, skills, locations, languages, street_address_1, street_address_2,
			city, province, postal_code, gender, frequency, time_of_day, start_date,
			end_date, min_pay, max_pay, deadline_to_respond, evaluation_criteria,
			criminal_check_required, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		RETURNING created_at, updated_at`,
		rfc.ID, rfc.ClientID, rfc.PatientID, rfc.Name, rfc.Description, rfc.Need,
		rfc.Services, rfc.Skills, rfc.Locations, rfc.Languages, rfc.StreetAddress1,
		rfc.StreetAddress2, rfc.City, rfc.Province, rfc.PostalCode, rfc.Gender,
		rfc.Frequency, rfc.TimeOfDay, rfc.StartDate, rfc.EndDate, rfc.MinPay, rfc.MaxPay,
		rfc.DeadlineToRespond, rfc.EvaluationCriteria, rfc.CriminalCheckRequired, rfc.Status,
	).Scan(&rfc.CreatedAt, &rfc.UpdatedAt)
}

func (r *rfcRepoPG) Update(ctx context.Context, rfc *RequestForCare) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE request_for_care SET
			patient_id = $2, name = $3, description = $4, need = $5, services = $6,
			skills = $7, locations = $8, languages = $9, street_address_1 = $10,
			street_address_2 = $11, city = $12, province = $13, postal_code = $14,
			gender = $15, frequency = $16, time_of_day = $17, start_date = $18,
			end_date = $19, min_pay = $20, max_pay = $21, deadline_to_respond = $22,
			evaluation_criteria = $23, criminal_check_required = $24, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		rfc.ID, rfc.PatientID, rfc.Name, rfc.Description, rfc.Need, rfc.Services,
		rfc.Skills, rfc.Locations, rfc.Languages, rfc.StreetAddress1, rfc.StreetAddress2,
		rfc.City, rfc.Province, rfc.PostalCode, rfc.Gender, rfc.Frequency, rfc.TimeOfDay,
		rfc.StartDate, rfc.EndDate, rfc.MinPay, rfc.MaxPay, rfc.DeadlineToRespond,
		rfc.EvaluationCriteria, rfc.CriminalCheckRequired,
	).Scan(&rfc.UpdatedAt)
	if db.IsNoRows(err) {
		return apperr.NotFound("request for care")
	}
	return err
}

func (r *rfcRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*RequestForCare, error) {
	rfc, err := scanRFC(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+rfcCols+` FROM request_for_care WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("request for care")
	}
	return rfc, err
}

func (r *rfcRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*RequestForCare, error) {
	rfc, err := scanRFC(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+rfcCols+` FROM request_for_care WHERE id = $1 FOR UPDATE`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("request for care")
	}
	return rfc, err
}

func (r *rfcRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE request_for_care SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("request for care")
	}
	return nil
}

func (r *rfcRepoPG) AppendStatus(ctx context.Context, id uuid.UUID, status Status) (*StatusEntry, error) {
	q := db.Conn(ctx, r.pool)
	if _, err := q.Exec(ctx, `
		INSERT INTO request_for_care_status (id, request_for_care_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (request_for_care_id, status) DO NOTHING`,
		uuid.New(), id, status); err != nil {
		return nil, err
	}

	var e StatusEntry
	err := q.QueryRow(ctx, `
		SELECT id, request_for_care_id, status, created_at FROM request_for_care_status
		WHERE request_for_care_id = $1 AND status = $2`, id, status,
	).Scan(&e.ID, &e.RequestForCareID, &e.Status, &e.CreatedAt)
	return &e, err
}

func (r *rfcRepoPG) Statuses(ctx context.Context, id uuid.UUID) ([]*StatusEntry, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, request_for_care_id, status, created_at FROM request_for_care_status
		WHERE request_for_care_id = $1 ORDER BY created_at, seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*StatusEntry
	for rows.Next() {
		var e StatusEntry
		if err := rows.Scan(&e.ID, &e.RequestForCareID, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *rfcRepoPG) ListForClient(ctx context.Context, clientID uuid.UUID, draftOnly bool, limit, offset int) ([]*RequestForCare, int, error) {
	where := `client_id = $1`
	args := []any{clientID}
	if draftOnly {
		where += ` AND status = $2`
		args = append(args, StatusDraft)
	}
	return r.list(ctx, where, args, limit, offset)
}

func (r *rfcRepoPG) ListForProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*RequestForCare, int, error) {
	where := `status = 'public' OR (status = 'private' AND EXISTS (
		SELECT 1 FROM request_for_care_proposal p
		WHERE p.request_for_care_id = request_for_care.id AND p.user_id = $1))`
	return r.list(ctx, where, []any{professionalID}, limit, offset)
}

func (r *rfcRepoPG) list(ctx context.Context, where string, args []any, limit, offset int) ([]*RequestForCare, int, error) {
	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM request_for_care WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	args = append(args, limit, offset)
	rows, err := q.Query(ctx, `SELECT `+rfcCols+` FROM request_for_care WHERE `+where+
		` ORDER BY created_at DESC, id LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*RequestForCare
	for rows.Next() {
		rfc, err := scanRFC(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rfc)
	}
	return items, total, rows.Err()
}

type proposalRepoPG struct{ pool *pgxpool.Pool }

func NewProposalRepoPG(pool *pgxpool.Pool) ProposalRepository {
	return &proposalRepoPG{pool: pool}
}

const proposalCols = `id, request_for_care_id, user_id, services, skills, location, frequency,
	duration, language, criminal_check_required, pay_range, evaluation_criteria, description,
	extra, active, viewed, submitted, rating, status, created_at, updated_at`

func scanProposal(row pgx.Row) (*Proposal, error) {
	var p Proposal
	err := row.Scan(&p.ID, &p.RequestForCareID, &p.UserID, &p.Services, &p.Skills,
		&p.Location, &p.Frequency, &p.Duration, &p.Language, &p.CriminalCheckRequired,
		&p.PayRange, &p.EvaluationCriteria, &p.Description, &p.Extra, &p.Active, &p.Viewed,
		&p.Submitted, &p.Rating, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *proposalRepoPG) GetOrCreate(ctx context.Context, rfcID, userID uuid.UUID, active bool) (*Proposal, bool, error) {
	q := db.Conn(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		INSERT INTO request_for_care_proposal (id, request_for_care_id, user_id, active, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (request_for_care_id, user_id) DO NOTHING`,
		uuid.New(), rfcID, userID, active, ProposalUnknown)
	if err != nil {
		return nil, false, err
	}
	p, err := r.Find(ctx, rfcID, userID)
	if err != nil {
		return nil, false, err
	}
	return p, tag.RowsAffected() == 1, nil
}

func (r *proposalRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Proposal, error) {
	p, err := scanProposal(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+proposalCols+` FROM request_for_care_proposal WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("proposal")
	}
	return p, err
}

func (r *proposalRepoPG) Find(ctx context.Context, rfcID, userID uuid.UUID) (*Proposal, error) {
	p, err := scanProposal(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+proposalCols+`
		FROM request_for_care_proposal WHERE request_for_care_id = $1 AND user_id = $2`,
		rfcID, userID))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("proposal")
	}
	return p, err
}

func (r *proposalRepoPG) Update(ctx context.Context, p *Proposal) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE request_for_care_proposal SET
			services = $2, skills = $3, location = $4, frequency = $5, duration = $6,
			language = $7, criminal_check_required = $8, pay_range = $9,
			evaluation_criteria = $10, description = $11, extra = $12, active = $13,
			viewed = $14, submitted = $15, rating = $16, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Services, p.Skills, p.Location, p.Frequency, p.Duration, p.Language,
		p.CriminalCheckRequired, p.PayRange, p.EvaluationCriteria, p.Description, p.Extra,
		p.Active, p.Viewed, p.Submitted, p.Rating,
	).Scan(&p.UpdatedAt)
	if db.IsNoRows(err) {
		return apperr.NotFound("proposal")
	}
	return err
}

func (r *proposalRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status ProposalStatus) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE request_for_care_proposal SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("proposal")
	}
	return nil
}

func (r *proposalRepoPG) AppendStatus(ctx context.Context, id uuid.UUID, status ProposalStatus) (*ProposalStatusEntry, error) {
	e := ProposalStatusEntry{ID: uuid.New(), ProposalID: id, Status: status}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO request_for_care_proposal_status (id, proposal_id, status)
		VALUES ($1, $2, $3) RETURNING created_at`, e.ID, id, status,
	).Scan(&e.CreatedAt)
	return &e, err
}

func (r *proposalRepoPG) Statuses(ctx context.Context, id uuid.UUID) ([]*ProposalStatusEntry, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, proposal_id, status, created_at FROM request_for_care_proposal_status
		WHERE proposal_id = $1 ORDER BY created_at, seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ProposalStatusEntry
	for rows.Next() {
		var e ProposalStatusEntry
		if err := rows.Scan(&e.ID, &e.ProposalID, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *proposalRepoPG) ListForReview(ctx context.Context, rfcID uuid.UUID, f ReviewFilter) ([]*Proposal, error) {
	query := `SELECT ` + proposalCols + ` FROM request_for_care_proposal
		WHERE request_for_care_id = $1 AND status <> 'rejected'`
	if f.ShortList {
		query += ` AND status = 'accepted'`
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, rfcID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProposals(rows)
}

func (r *proposalRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Proposal, int, error) {
	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM request_for_care_proposal WHERE user_id = $1`,
		userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+proposalCols+` FROM request_for_care_proposal
		WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectProposals(rows)
	return items, total, err
}

func collectProposals(rows pgx.Rows) ([]*Proposal, error) {
	var out []*Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
