package repository

import (
	"context"
	"database/sql"
	"fmt"

	"rfq/internal/models"
)

func (repo *Repository) AddStatusChange(ctx context.Context, change models.StatusChange, tx *sql.Tx) error {
	query := `
	INSERT INTO rfq_status_history
		(rfq_id, from_status, to_status, actor_id, created_at)
	VALUES
		($1, $2, $3, $4, $5)
	`

	_, err := repo.conn(tx).ExecContext(ctx, query, change.RFQId, nullString(string(change.From)), change.To, nullString(change.ActorId), change.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.Repository.AddStatusChange: %w", err)
	}
	return nil
}

func (repo *Repository) GetStatusHistory(ctx context.Context, rfqId string) ([]models.StatusChange, error) {
	query := `
	SELECT
		rfq_id,
		from_status,
		to_status,
		actor_id,
		created_at
	FROM rfq_status_history
	WHERE rfq_id = $1
	ORDER BY id
	`

	rows, err := repo.db.QueryContext(ctx, query, rfqId)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.GetStatusHistory: %w", err)
	}
	defer rows.Close()

	var result []models.StatusChange
	for rows.Next() {
		var change models.StatusChange
		var from, actor sql.NullString
		err = rows.Scan(&change.RFQId, &from, &change.To, &actor, &change.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.GetStatusHistory: rows scan failed: %w", err)
		}
		change.From = models.RFQStatus(from.String)
		change.ActorId = actor.String
		result = append(result, change)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("repository.Repository.GetStatusHistory: %w", rows.Err())
	}

	return result, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
