package professional

import (
	"context"
	"fmt"
	"strings"

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

const profCols = `user_id, display_name, headline, skills, languages, hourly_rate,
	criminal_check_on_file, created_at, updated_at`

func scanProfessional(row pgx.Row) (*Professional, error) {
	var p Professional
	err := row.Scan(&p.UserID, &p.DisplayName, &p.Headline, &p.Skills, &p.Languages,
		&p.HourlyRate, &p.CriminalCheckOnFile, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Upsert(ctx context.Context, p *Professional) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO professional (user_id, display_name, headline, skills, languages,
			hourly_rate, criminal_check_on_file)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			headline = EXCLUDED.headline,
			skills = EXCLUDED.skills,
			languages = EXCLUDED.languages,
			hourly_rate = EXCLUDED.hourly_rate,
			criminal_check_on_file = EXCLUDED.criminal_check_on_file,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		p.UserID, p.DisplayName, p.Headline, p.Skills, p.Languages,
		p.HourlyRate, p.CriminalCheckOnFile,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, userID uuid.UUID) (*Professional, error) {
	p, err := scanProfessional(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+profCols+` FROM professional WHERE user_id = $1`, userID))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("professional")
	}
	return p, err
}

func (r *repoPG) GetMany(ctx context.Context, userIDs []uuid.UUID) ([]*Professional, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+profCols+` FROM professional WHERE user_id = ANY($1)`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repoPG) Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*Professional, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where = append(where, fmt.Sprintf("display_name ILIKE $%d", len(args)))
	}
	if f.Skill != "" {
		args = append(args, f.Skill)
		where = append(where, fmt.Sprintf("$%d = ANY(skills)", len(args)))
	}
	if f.Language != "" {
		args = append(args, f.Language)
		where = append(where, fmt.Sprintf("$%d = ANY(languages)", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM professional`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM professional%s
		ORDER BY display_name, user_id LIMIT $%d OFFSET $%d`, profCols, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collect(rows)
	return items, total, err
}

func collect(rows pgx.Rows) ([]*Professional, error) {
	var items []*Professional
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
