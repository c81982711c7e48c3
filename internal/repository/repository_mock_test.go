package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"rfq/internal/config"
	"rfq/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	mockRFQId   = "6f0c1d56-3b1e-4c43-9f41-0d1e6a3e7a10"
	mockUserId  = "0b5c7f1e-8a57-4a66-b7d0-6c4b2f7f9b21"
	mockOtherId = "9d2e3c4b-1a0f-4e5d-8c7b-6a5f4e3d2c1b"
	mockItemId  = "c8e1f0a2-5b4c-4d3e-9f8a-7b6c5d4e3f20"
	mockProduct = "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
)

var rfqColumnNames = []string{"id", "rfq_number", "user_id", "subject", "message", "target_price", "status",
	"quote_supplier_id", "quote_price", "quote_terms", "quoted_at", "expires_at", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db, &config.PostgresConfig{AutoMigrateUp: "false", AutoMigrateDown: "false"})
	require.NoError(t, err)
	return repo, mock
}

func TestAddRFQ(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT nextval('rfq_number_seq')")).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(42)))
	mock.ExpectQuery("INSERT INTO rfqs").
		WithArgs("RFQ-2026-00000042", mockUserId, "Bulk order", "", sqlmock.AnyArg(), models.RFQPending, sqlmock.AnyArg(), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(mockRFQId))
	mock.ExpectQuery("INSERT INTO rfq_items").
		WithArgs(mockRFQId, 0, mockProduct, "Chair", "chair.png", 5, "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(mockItemId))
	mock.ExpectExec("INSERT INTO rfq_status_history").
		WithArgs(mockRFQId, sqlmock.AnyArg(), models.RFQPending, sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rfq, err := repo.AddRFQ(ctx, models.RFQ{
		UserId:    mockUserId,
		Subject:   "Bulk order",
		Status:    models.RFQPending,
		CreatedAt: now,
		UpdatedAt: now,
		Items: []models.RFQItem{
			{ProductId: mockProduct, ProductName: "Chair", ProductImage: "chair.png", Quantity: 5},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, mockRFQId, rfq.Id)
	assert.Equal(t, "RFQ-2026-00000042", rfq.Number)
	assert.Equal(t, now, rfq.UpdatedAt)
	require.Len(t, rfq.Items, 1)
	assert.Equal(t, mockItemId, rfq.Items[0].Id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddRFQRollsBackOnItemFailure(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT nextval('rfq_number_seq')")).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(7)))
	mock.ExpectQuery("INSERT INTO rfqs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(mockRFQId))
	mock.ExpectQuery("INSERT INTO rfq_items").
		WillReturnError(errors.New("check constraint violated"))
	mock.ExpectRollback()

	_, err := repo.AddRFQ(ctx, models.RFQ{
		UserId:    mockUserId,
		Subject:   "Broken",
		Status:    models.RFQPending,
		CreatedAt: now,
		Items:     []models.RFQItem{{ProductId: mockProduct, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check constraint violated")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionRFQ(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	at := created.Add(time.Hour)
	price := decimal.RequireFromString("99.50")

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE rfqs").
		WithArgs(models.RFQQuoted, at, mockOtherId, price, "net 30", at, mockRFQId, models.RFQPending).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(at))
	mock.ExpectExec("INSERT INTO rfq_status_history").
		WithArgs(mockRFQId, sqlmock.AnyArg(), models.RFQQuoted, sqlmock.AnyArg(), at).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery("FROM rfqs").
		WillReturnRows(sqlmock.NewRows(rfqColumnNames).
			AddRow(mockRFQId, "RFQ-2026-00000001", mockUserId, "Bulk order", "", nil, "quoted",
				mockOtherId, "99.50", "net 30", at, nil, created, at))
	mock.ExpectQuery("FROM rfq_items").
		WillReturnRows(sqlmock.NewRows([]string{"rfq_id", "id", "product_id", "product_name", "product_image", "quantity", "notes"}).
			AddRow(mockRFQId, mockItemId, mockProduct, "Chair", "chair.png", 5, ""))
	mock.ExpectCommit()

	rfq, err := repo.TransitionRFQ(ctx, models.Transition{
		RFQId:   mockRFQId,
		From:    models.RFQPending,
		To:      models.RFQQuoted,
		ActorId: mockOtherId,
		At:      at,
		Quote:   &models.Quote{SupplierId: mockOtherId, Price: price, Terms: "net 30", QuotedAt: at},
	})
	require.NoError(t, err)

	assert.Equal(t, models.RFQQuoted, rfq.Status)
	require.NotNil(t, rfq.Quote)
	assert.True(t, price.Equal(rfq.Quote.Price))
	assert.Equal(t, "net 30", rfq.Quote.Terms)
	assert.False(t, rfq.TargetPrice.Valid)
	assert.Nil(t, rfq.ExpiresAt)
	require.Len(t, rfq.Items, 1)
	assert.Equal(t, "Chair", rfq.Items[0].ProductName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionRFQLostRace(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE rfqs").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))
	mock.ExpectRollback()

	_, err := repo.TransitionRFQ(ctx, models.Transition{
		RFQId: mockRFQId,
		From:  models.RFQQuoted,
		To:    models.RFQAccepted,
		At:    time.Now(),
	})
	assert.True(t, errors.Is(err, models.ErrConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpirableRFQs(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	deadline := now.Add(-time.Minute)

	mock.ExpectQuery("FROM rfqs").
		WithArgs(sqlmock.AnyArg(), now, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "expires_at"}).
			AddRow(mockRFQId, "pending", deadline).
			AddRow(mockOtherId, "quoted", deadline))

	rfqs, err := repo.ExpirableRFQs(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, rfqs, 2)
	assert.Equal(t, models.RFQPending, rfqs[0].Status)
	assert.Equal(t, models.RFQQuoted, rfqs[1].Status)
	assert.Equal(t, deadline, *rfqs[1].ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRFQByUUIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM rfqs").WillReturnRows(sqlmock.NewRows(rfqColumnNames))

	_, err := repo.GetRFQByUUID(context.Background(), mockRFQId, nil)
	assert.ErrorContains(t, err, "no rfq found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatusHistory(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now().UTC()

	mock.ExpectQuery("FROM rfq_status_history").
		WithArgs(mockRFQId).
		WillReturnRows(sqlmock.NewRows([]string{"rfq_id", "from_status", "to_status", "actor_id", "created_at"}).
			AddRow(mockRFQId, nil, "pending", mockUserId, at).
			AddRow(mockRFQId, "pending", "expired", nil, at.Add(time.Second)))

	history, err := repo.GetStatusHistory(context.Background(), mockRFQId)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Empty(t, history[0].From)
	assert.Equal(t, mockUserId, history[0].ActorId)
	assert.Equal(t, models.RFQExpired, history[1].To)
	assert.Empty(t, history[1].ActorId)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserByUsernameMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM users").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "role", "created_at", "updated_at"}))

	_, ok, err := repo.UserByUsername(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrepRFQsQuery(t *testing.T) {
	repo := &Repository{}

	query, params := repo.prepRFQsQuery(0, 5, "", mockUserId, []models.RFQStatus{models.RFQPending})
	assert.Contains(t, query, "WHERE user_id = $3 AND status = any($4::rfq_status[])")
	require.Len(t, params, 4)
	assert.Nil(t, params[0])
	assert.Equal(t, 5, params[1])
	assert.Equal(t, mockUserId, params[2])

	query, params = repo.prepRFQsQuery(1, 0, mockRFQId, "", nil)
	assert.Contains(t, query, "WHERE id = $3")
	assert.NotContains(t, query, "$conditions$")
	assert.Len(t, params, 3)
}

func TestFormatRFQNumber(t *testing.T) {
	at := time.Date(2027, 12, 31, 23, 0, 0, 0, time.FixedZone("X", -3*3600))
	assert.Equal(t, "RFQ-2028-00000123", FormatRFQNumber(at, 123))
}
