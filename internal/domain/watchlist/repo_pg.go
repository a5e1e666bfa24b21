package watchlist

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eadvocate/eadvocate/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Add(ctx context.Context, e *Entry) error {
	q := db.Conn(ctx, r.pool)
	if _, err := q.Exec(ctx, `
		INSERT INTO watch_list_entry (client_id, professional_id)
		VALUES ($1, $2)
		ON CONFLICT (client_id, professional_id) DO NOTHING`,
		e.ClientID, e.ProfessionalID); err != nil {
		return err
	}
	return q.QueryRow(ctx, `SELECT created_at FROM watch_list_entry
		WHERE client_id = $1 AND professional_id = $2`,
		e.ClientID, e.ProfessionalID).Scan(&e.CreatedAt)
}

func (r *repoPG) Remove(ctx context.Context, clientID, professionalID uuid.UUID) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM watch_list_entry
		WHERE client_id = $1 AND professional_id = $2`, clientID, professionalID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) List(ctx context.Context, clientID uuid.UUID) ([]*Entry, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT client_id, professional_id, created_at FROM watch_list_entry
		WHERE client_id = $1 ORDER BY created_at, professional_id`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ClientID, &e.ProfessionalID, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}
