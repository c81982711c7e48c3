package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rfq/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const rfqColumns = `
		id,
		rfq_number,
		user_id,
		subject,
		message,
		target_price,
		status,
		quote_supplier_id,
		quote_price,
		quote_terms,
		quoted_at,
		expires_at,
		created_at,
		updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRFQ(row scanner) (models.RFQ, error) {
	var rfq models.RFQ
	var supplierId, terms sql.NullString
	var price decimal.NullDecimal
	var quotedAt, expiresAt sql.NullTime

	err := row.Scan(&rfq.Id, &rfq.Number, &rfq.UserId, &rfq.Subject, &rfq.Message, &rfq.TargetPrice, &rfq.Status,
		&supplierId, &price, &terms, &quotedAt, &expiresAt, &rfq.CreatedAt, &rfq.UpdatedAt)
	if err != nil {
		return rfq, err
	}

	if supplierId.Valid {
		rfq.Quote = &models.Quote{
			SupplierId: supplierId.String,
			Price:      price.Decimal,
			Terms:      terms.String,
			QuotedAt:   quotedAt.Time,
		}
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		rfq.ExpiresAt = &t
	}
	return rfq, nil
}

func (repo *Repository) AddRFQ(ctx context.Context, rfq models.RFQ) (models.RFQ, error) {
	result := rfq

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("repository.Repository.AddRFQ: failed to start transaction: %w", err)
	}

	// sequence values are never handed out twice, even when the transaction rolls back
	var seq int64
	err = tx.QueryRowContext(ctx, "SELECT nextval('rfq_number_seq')").Scan(&seq)
	if err != nil {
		return result, fmt.Errorf("repository.Repository.AddRFQ: could not draw rfq number: %w", wrapRollbackErr(tx, err))
	}
	result.Number = FormatRFQNumber(rfq.CreatedAt, seq)

	query := `
	INSERT INTO rfqs
		(rfq_number, user_id, subject, message, target_price, status, expires_at, created_at, updated_at)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, $8)
	RETURNING
		id
	`
	row := tx.QueryRowContext(ctx, query, result.Number, rfq.UserId, rfq.Subject, rfq.Message, rfq.TargetPrice, rfq.Status, nullTime(rfq.ExpiresAt), rfq.CreatedAt)
	err = row.Scan(&result.Id)
	if err != nil {
		return result, fmt.Errorf("repository.Repository.AddRFQ: %w", wrapRollbackErr(tx, err))
	}
	result.UpdatedAt = rfq.CreatedAt

	queryItem := `
	INSERT INTO rfq_items
		(rfq_id, position, product_id, product_name, product_image, quantity, notes)
	VALUES
		($1, $2, $3, $4, $5, $6, $7)
	RETURNING
		id
	`
	result.Items = make([]models.RFQItem, len(rfq.Items))
	for i, item := range rfq.Items {
		row = tx.QueryRowContext(ctx, queryItem, result.Id, i, item.ProductId, item.ProductName, item.ProductImage, item.Quantity, item.Notes)
		err = row.Scan(&item.Id)
		if err != nil {
			return result, fmt.Errorf("repository.Repository.AddRFQ: item %d: %w", i, wrapRollbackErr(tx, err))
		}
		result.Items[i] = item
	}

	err = repo.AddStatusChange(ctx, models.StatusChange{
		RFQId:     result.Id,
		To:        result.Status,
		ActorId:   result.UserId,
		CreatedAt: result.CreatedAt,
	}, tx)
	if err != nil {
		return result, fmt.Errorf("repository.Repository.AddRFQ: %w", wrapRollbackErr(tx, err))
	}

	err = tx.Commit()
	if err != nil {
		return result, fmt.Errorf("repository.Repository.AddRFQ: failed to commit transaction: %w", err)
	}

	return result, nil
}

func (repo *Repository) prepRFQsQuery(limit, offset int, UUID, userId string, statuses []models.RFQStatus) (query string, queryParams []interface{}) {
	query = `
	SELECT` + rfqColumns + `
	FROM rfqs
	$conditions$
	ORDER BY created_at DESC, id
	LIMIT $1
	OFFSET $2
	`

	queryParams = make([]interface{}, 0, 5)
	conditions := make([]string, 0, 3)

	if limit <= 0 {
		queryParams = append(queryParams, nil)
	} else {
		queryParams = append(queryParams, limit)
	}
	queryParams = append(queryParams, offset)

	if len(UUID) > 0 {
		conditions = append(conditions, "id = $$")
		queryParams = append(queryParams, UUID)
	}

	if len(userId) > 0 {
		conditions = append(conditions, "user_id = $$")
		queryParams = append(queryParams, userId)
	}

	if len(statuses) > 0 {
		conditions = append(conditions, "status = any($$::rfq_status[])")
		queryParams = append(queryParams, pq.Array(statusStrings(statuses)))
	}

	condStr := ""
	if len(conditions) > 0 {
		for i := 0; i < len(conditions); i++ {
			conditions[i] = strings.Replace(conditions[i], "$$", "$"+strconv.Itoa(i+3), -1)
		}
		condStr = "WHERE " + strings.Join(conditions, " AND ")
	}
	query = strings.Replace(query, "$conditions$", condStr, -1)

	return query, queryParams
}

func (repo *Repository) GetRFQs(ctx context.Context, limit, offset int, userId string, statuses []models.RFQStatus) ([]models.RFQ, error) {
	query, queryParams := repo.prepRFQsQuery(limit, offset, "", userId, statuses)

	rows, err := repo.db.QueryContext(ctx, query, queryParams...)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.GetRFQs: %w", err)
	}
	defer rows.Close()

	var result []models.RFQ
	for rows.Next() {
		rfq, err := scanRFQ(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.GetRFQs: row scan failed: %w", err)
		}
		result = append(result, rfq)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("repository.Repository.GetRFQs: %w", rows.Err())
	}

	err = repo.attachItems(ctx, repo.db, result)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.GetRFQs: %w", err)
	}

	return result, nil
}

// GetRFQByUUID returns sql.ErrNoRows (wrapped) when no RFQ has the id.
func (repo *Repository) GetRFQByUUID(ctx context.Context, UUID string, tx *sql.Tx) (models.RFQ, error) {
	q := repo.conn(tx)
	query, queryParams := repo.prepRFQsQuery(1, 0, UUID, "", nil)

	rfq, err := scanRFQ(q.QueryRowContext(ctx, query, queryParams...))
	if errors.Is(err, sql.ErrNoRows) {
		return rfq, fmt.Errorf("repository.Repository.GetRFQByUUID: no rfq found by UUID %s, %w", UUID, err)
	} else if err != nil {
		return rfq, fmt.Errorf("repository.Repository.GetRFQByUUID: %w", err)
	}

	rfqs := []models.RFQ{rfq}
	err = repo.attachItems(ctx, q, rfqs)
	if err != nil {
		return rfq, fmt.Errorf("repository.Repository.GetRFQByUUID: %w", err)
	}

	return rfqs[0], nil
}

func (repo *Repository) attachItems(ctx context.Context, q querier, rfqs []models.RFQ) error {
	if len(rfqs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(rfqs))
	index := make(map[string]int, len(rfqs))
	for i, rfq := range rfqs {
		ids = append(ids, rfq.Id)
		index[rfq.Id] = i
	}

	query := `
	SELECT
		rfq_id, id, product_id, product_name, product_image, quantity, notes
	FROM rfq_items
	WHERE rfq_id = any($1::uuid[])
	ORDER BY rfq_id, position
	`
	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("repository.Repository.attachItems: %w", err)
	}
	defer rows.Close()

	var rfqId string
	var item models.RFQItem
	for rows.Next() {
		err = rows.Scan(&rfqId, &item.Id, &item.ProductId, &item.ProductName, &item.ProductImage, &item.Quantity, &item.Notes)
		if err != nil {
			return fmt.Errorf("repository.Repository.attachItems: rows scan failed: %w", err)
		}
		if i, ok := index[rfqId]; ok {
			rfqs[i].Items = append(rfqs[i].Items, item)
		}
	}

	if rows.Err() != nil {
		return fmt.Errorf("repository.Repository.attachItems: %w", rows.Err())
	}
	return nil
}

// TransitionRFQ applies t only if the stored status still equals t.From.
// A lost race is reported as models.ErrConflict; the caller re-reads to
// find out what happened instead.
func (repo *Repository) TransitionRFQ(ctx context.Context, t models.Transition) (models.RFQ, error) {
	query := `
	UPDATE rfqs
	SET
		status = $1,
		updated_at = GREATEST($2::timestamptz, updated_at + interval '1 microsecond'),
		quote_supplier_id = COALESCE($3, quote_supplier_id),
		quote_price = COALESCE($4, quote_price),
		quote_terms = COALESCE($5, quote_terms),
		quoted_at = COALESCE($6, quoted_at)
	WHERE id = $7 AND status = $8
	RETURNING updated_at
	`

	var supplierId, terms, price, quotedAt interface{}
	if t.Quote != nil {
		supplierId = t.Quote.SupplierId
		price = t.Quote.Price
		terms = t.Quote.Terms
		quotedAt = t.Quote.QuotedAt
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("repository.Repository.TransitionRFQ: failed to start transaction: %w", err)
	}

	var updatedAt time.Time
	row := tx.QueryRowContext(ctx, query, t.To, t.At, supplierId, price, terms, quotedAt, t.RFQId, t.From)
	err = row.Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RFQ{}, fmt.Errorf("repository.Repository.TransitionRFQ: %w", wrapRollbackErr(tx, models.ErrConflict))
	} else if err != nil {
		return models.RFQ{}, fmt.Errorf("repository.Repository.TransitionRFQ: %w", wrapRollbackErr(tx, err))
	}

	err = repo.AddStatusChange(ctx, models.StatusChange{
		RFQId:     t.RFQId,
		From:      t.From,
		To:        t.To,
		ActorId:   t.ActorId,
		CreatedAt: updatedAt,
	}, tx)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("repository.Repository.TransitionRFQ: %w", wrapRollbackErr(tx, err))
	}

	rfq, err := repo.GetRFQByUUID(ctx, t.RFQId, tx)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("repository.Repository.TransitionRFQ: %w", wrapRollbackErr(tx, err))
	}

	err = tx.Commit()
	if err != nil {
		return models.RFQ{}, fmt.Errorf("repository.Repository.TransitionRFQ: failed to commit transaction: %w", err)
	}

	return rfq, nil
}

// ExpirableRFQs lists open RFQs whose deadline is at or before now, oldest
// deadline first. Only Id, Status and ExpiresAt are filled.
func (repo *Repository) ExpirableRFQs(ctx context.Context, now time.Time, limit int) ([]models.RFQ, error) {
	query := `
	SELECT
		id, status, expires_at
	FROM rfqs
	WHERE status = any($1::rfq_status[]) AND expires_at <= $2
	ORDER BY expires_at, id
	LIMIT $3
	`

	rows, err := repo.db.QueryContext(ctx, query, pq.Array(statusStrings(models.OpenRFQStatuses)), now, limit)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.ExpirableRFQs: %w", err)
	}
	defer rows.Close()

	var result []models.RFQ
	for rows.Next() {
		var rfq models.RFQ
		var expiresAt time.Time
		err = rows.Scan(&rfq.Id, &rfq.Status, &expiresAt)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.ExpirableRFQs: rows scan failed: %w", err)
		}
		rfq.ExpiresAt = &expiresAt
		result = append(result, rfq)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("repository.Repository.ExpirableRFQs: %w", rows.Err())
	}

	return result, nil
}

// FormatRFQNumber renders the human readable reference of an RFQ.
func FormatRFQNumber(createdAt time.Time, seq int64) string {
	return fmt.Sprintf("RFQ-%d-%08d", createdAt.UTC().Year(), seq)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
