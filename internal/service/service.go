package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rfq/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Repository is the persistence, catalog and identity surface the lifecycle needs.
type Repository interface {
	AddRFQ(ctx context.Context, rfq models.RFQ) (models.RFQ, error)
	GetRFQByUUID(ctx context.Context, UUID string, tx *sql.Tx) (models.RFQ, error)
	GetRFQs(ctx context.Context, limit, offset int, userId string, statuses []models.RFQStatus) ([]models.RFQ, error)
	TransitionRFQ(ctx context.Context, t models.Transition) (models.RFQ, error)
	ExpirableRFQs(ctx context.Context, now time.Time, limit int) ([]models.RFQ, error)
	GetStatusHistory(ctx context.Context, rfqId string) ([]models.StatusChange, error)

	ProductByUUID(ctx context.Context, UUID string) (models.Product, bool, error)
	UserByUUID(ctx context.Context, UUID string) (models.User, bool, error)
}

const DefaultSweepBatchSize = 100

type Service struct {
	repo       Repository
	notifier   Notifier
	now        func() time.Time
	validate   *validator.Validate
	sweepBatch int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithSweepBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sweepBatch = n
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		notifier:   LogNotifier{},
		now:        time.Now,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		sweepBatch: DefaultSweepBatchSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	// postgres keeps microseconds, so returned rows match what is stored
	clock := s.now
	s.now = func() time.Time { return clock().Truncate(time.Microsecond) }

	return s
}

//// Lifecycle

func (s *Service) Create(ctx context.Context, buyerId string, data models.CreateRFQData) (models.RFQ, error) {
	buyer, err := s.actor(ctx, buyerId)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("service.Service.Create: %w", err)
	}

	err = s.validateCreate(data)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("service.Service.Create: %w", err)
	}

	// snapshot catalog data once, it is never refreshed afterwards
	items := make([]models.RFQItem, 0, len(data.Items))
	for _, item := range data.Items {
		product, ok, err := s.repo.ProductByUUID(ctx, item.ProductId)
		if err != nil {
			return models.RFQ{}, fmt.Errorf("service.Service.Create: %w", err)
		}
		if !ok {
			return models.RFQ{}, fmt.Errorf("service.Service.Create: %w", models.NewRFQError(models.ErrNotFound, "", fmt.Errorf("product %s", item.ProductId)))
		}
		items = append(items, models.RFQItem{
			ProductId:    product.Id,
			ProductName:  product.Name,
			ProductImage: product.Image,
			Quantity:     item.Quantity,
			Notes:        item.Notes,
		})
	}

	now := s.now()
	rfq, err := s.repo.AddRFQ(ctx, models.RFQ{
		UserId:      buyer.Id,
		Subject:     data.Subject,
		Message:     data.Message,
		TargetPrice: data.TargetPrice,
		Status:      models.RFQPending,
		Items:       items,
		ExpiresAt:   data.ExpiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return models.RFQ{}, fmt.Errorf("service.Service.Create: %w", err)
	}

	s.transitioned(ctx, rfq, models.StatusChange{RFQId: rfq.Id, To: rfq.Status, ActorId: buyer.Id, CreatedAt: rfq.CreatedAt})
	return rfq, nil
}

func (s *Service) SubmitQuote(ctx context.Context, supplierId, rfqId string, data models.QuoteData) (models.RFQ, error) {
	supplier, err := s.actor(ctx, supplierId)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("service.Service.SubmitQuote: %w", err)
	}

	// only suppliers and admins answer quote requests
	if !supplier.Role.CanQuote() {
		return models.RFQ{}, fmt.Errorf("service.Service.SubmitQuote: %w", models.NewRFQError(models.ErrForbidden, rfqId, nil))
	}

	err = s.validateQuote(data)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("service.Service.SubmitQuote: %w", models.NewRFQError(models.ErrValidation, rfqId, err))
	}

	rfq, err := s.loadRFQ(ctx, rfqId)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("service.Service.SubmitQuote: %w", err)
	}

	quote := &models.Quote{
		SupplierId: supplier.Id,
		Price:      data.Price,
		Terms:      data.Terms,
	}
	rfq, err = s.apply(ctx, rfq, models.ActionQuote, supplier.Id, quote)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("service.Service.SubmitQuote: %w", err)
	}
	return rfq, nil
}

func (s *Service) Respond(ctx context.Context, buyerId, rfqId string, decision models.Decision) (models.RFQ, error) {
	if !models.ValidDecision(decision) {
		return models.RFQ{}, fmt.Errorf("service.Service.Respond: %w", models.NewRFQError(models.ErrValidation, rfqId, fmt.Errorf("unknown decision %q", decision)))
	}

	buyer, err := s.actor(ctx, buyerId)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("service.Service.Respond: %w", err)
	}

	rfq, err := s.loadRFQ(ctx, rfqId)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("service.Service.Respond: %w", err)
	}

	if rfq.UserId != buyer.Id {
		return models.RFQ{}, fmt.Errorf("service.Service.Respond: %w", models.NewRFQError(models.ErrForbidden, rfq.Id, nil))
	}

	rfq, err = s.apply(ctx, rfq, models.DecisionAction(decision), buyer.Id, nil)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("service.Service.Respond: %w", err)
	}
	return rfq, nil
}

// SweepExpired expires every open RFQ whose deadline is at or before now and
// returns how many it transitioned. Rows another sweep got to first are skipped.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	started := time.Now()
	defer func() { sweepDuration.Observe(time.Since(started).Seconds()) }()
	now = now.Truncate(time.Microsecond)

	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, fmt.Errorf("service.Service.SweepExpired: %w", err)
		}

		rfqs, err := s.repo.ExpirableRFQs(ctx, now, s.sweepBatch)
		if err != nil {
			return count, fmt.Errorf("service.Service.SweepExpired: %w", err)
		}

		batchCount := 0
		for _, rfq := range rfqs {
			_, err = s.commit(ctx, rfq, models.ActionExpire, "", now, nil)
			if errors.Is(err, models.ErrConflict) || errors.Is(err, models.ErrInvalidTransition) {
				continue
			}
			if err != nil {
				return count, fmt.Errorf("service.Service.SweepExpired: %w", err)
			}
			batchCount++
		}
		count += batchCount
		sweepExpired.Add(float64(batchCount))

		// a full batch that moved nothing is left for the next run
		if len(rfqs) < s.sweepBatch || batchCount == 0 {
			break
		}
	}

	if count > 0 {
		log := s.logger(ctx)
		log.WithField("count", count).Info("Expired rfqs")
	}
	return count, nil
}

// Sweep runs SweepExpired on behalf of an admin using the service clock.
func (s *Service) Sweep(ctx context.Context, actorId string) (int, error) {
	actor, err := s.actor(ctx, actorId)
	if err != nil {
		return 0, fmt.Errorf("service.Service.Sweep: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		return 0, fmt.Errorf("service.Service.Sweep: %w", models.ErrForbidden)
	}

	count, err := s.SweepExpired(ctx, s.now())
	if err != nil {
		return count, fmt.Errorf("service.Service.Sweep: %w", err)
	}
	return count, nil
}

//// Reads

func (s *Service) GetRFQ(ctx context.Context, actorId, rfqId string) (models.RFQ, error) {
	actor, err := s.actor(ctx, actorId)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("service.Service.GetRFQ: %w", err)
	}

	rfq, err := s.loadRFQ(ctx, rfqId)
	if err != nil {
		return models.RFQ{}, fmt.Errorf("service.Service.GetRFQ: %w", err)
	}

	if !canView(actor, rfq) {
		return models.RFQ{}, fmt.Errorf("service.Service.GetRFQ: %w", models.NewRFQError(models.ErrForbidden, rfq.Id, nil))
	}
	return rfq, nil
}

func (s *Service) GetRFQStatus(ctx context.Context, actorId, rfqId string) (models.RFQStatus, error) {
	rfq, err := s.GetRFQ(ctx, actorId, rfqId)
	if err != nil {
		return "", fmt.Errorf("service.Service.GetRFQStatus: %w", err)
	}
	return rfq.Status, nil
}

func (s *Service) ListMyRFQs(ctx context.Context, buyerId string, limit, offset int, statuses []models.RFQStatus) ([]models.RFQ, error) {
	buyer, err := s.actor(ctx, buyerId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.ListMyRFQs: %w", err)
	}

	rfqs, err := s.repo.GetRFQs(ctx, limit, offset, buyer.Id, statuses)
	if err != nil {
		return nil, fmt.Errorf("service.Service.ListMyRFQs: %w", err)
	}
	return rfqs, nil
}

// ListRFQs is the supplier/admin queue over all buyers.
func (s *Service) ListRFQs(ctx context.Context, actorId string, limit, offset int, statuses []models.RFQStatus) ([]models.RFQ, error) {
	actor, err := s.actor(ctx, actorId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.ListRFQs: %w", err)
	}
	if !actor.Role.CanQuote() {
		return nil, fmt.Errorf("service.Service.ListRFQs: %w", models.ErrForbidden)
	}

	rfqs, err := s.repo.GetRFQs(ctx, limit, offset, "", statuses)
	if err != nil {
		return nil, fmt.Errorf("service.Service.ListRFQs: %w", err)
	}
	return rfqs, nil
}

func (s *Service) History(ctx context.Context, actorId, rfqId string) ([]models.StatusChange, error) {
	rfq, err := s.GetRFQ(ctx, actorId, rfqId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.History: %w", err)
	}

	history, err := s.repo.GetStatusHistory(ctx, rfq.Id)
	if err != nil {
		return nil, fmt.Errorf("service.Service.History: %w", err)
	}
	return history, nil
}

//// Service

// apply runs one buyer or supplier action against the RFQ as last read.
func (s *Service) apply(ctx context.Context, rfq models.RFQ, action models.Action, actorId string, quote *models.Quote) (models.RFQ, error) {
	_, err := models.NextStatus(rfq.Status, action)
	if err != nil {
		return models.RFQ{}, models.NewRFQError(models.ErrInvalidTransition, rfq.Id, err)
	}

	now := s.now()
	if action != models.ActionReject && rfq.Expired(now) {
		_, expErr := s.commit(ctx, rfq, models.ActionExpire, "", now, nil)
		if expErr != nil {
			// another writer got there first, report what the fresh state says
			return models.RFQ{}, expErr
		}
		return models.RFQ{}, models.NewRFQError(models.ErrInvalidTransition, rfq.Id, &models.TransitionError{
			From:   rfq.Status,
			To:     models.ActionTarget(action),
			Reason: "rfq expired",
		})
	}

	if quote != nil {
		quote.QuotedAt = now
	}
	return s.commit(ctx, rfq, action, actorId, now, quote)
}

// commit writes the transition conditioned on rfq.Status. When the
// conditional update loses, the fresh state decides between Conflict and
// InvalidTransition.
func (s *Service) commit(ctx context.Context, rfq models.RFQ, action models.Action, actorId string, now time.Time, quote *models.Quote) (models.RFQ, error) {
	to, err := models.NextStatus(rfq.Status, action)
	if err != nil {
		return models.RFQ{}, models.NewRFQError(models.ErrInvalidTransition, rfq.Id, err)
	}

	updated, err := s.repo.TransitionRFQ(ctx, models.Transition{
		RFQId:   rfq.Id,
		From:    rfq.Status,
		To:      to,
		ActorId: actorId,
		At:      now,
		Quote:   quote,
	})
	if errors.Is(err, models.ErrConflict) {
		transitionConflicts.WithLabelValues(string(action)).Inc()
		return models.RFQ{}, s.lostRace(ctx, rfq, action)
	} else if err != nil {
		return models.RFQ{}, err
	}

	s.transitioned(ctx, updated, models.StatusChange{
		RFQId:     updated.Id,
		From:      rfq.Status,
		To:        to,
		ActorId:   actorId,
		CreatedAt: updated.UpdatedAt,
	})
	return updated, nil
}

func (s *Service) lostRace(ctx context.Context, rfq models.RFQ, action models.Action) error {
	fresh, err := s.repo.GetRFQByUUID(ctx, rfq.Id, nil)
	if err != nil {
		return models.NewRFQError(models.ErrConflict, rfq.Id, err)
	}

	_, err = models.NextStatus(fresh.Status, action)
	if err != nil {
		return models.NewRFQError(models.ErrInvalidTransition, rfq.Id, err)
	}
	return models.NewRFQError(models.ErrConflict, rfq.Id, nil)
}

func (s *Service) transitioned(ctx context.Context, rfq models.RFQ, change models.StatusChange) {
	from := string(change.From)
	if from == "" {
		from = "none"
	}
	transitionsTotal.WithLabelValues(from, string(change.To)).Inc()

	s.notifier.RFQTransitioned(ctx, rfq, change)
}

func (s *Service) loadRFQ(ctx context.Context, rfqId string) (models.RFQ, error) {
	if _, err := uuid.Parse(rfqId); err != nil {
		return models.RFQ{}, models.NewRFQError(models.ErrNotFound, rfqId, nil)
	}

	rfq, err := s.repo.GetRFQByUUID(ctx, rfqId, nil)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RFQ{}, models.NewRFQError(models.ErrNotFound, rfqId, nil)
	} else if err != nil {
		return models.RFQ{}, err
	}
	return rfq, nil
}

func (s *Service) actor(ctx context.Context, userId string) (models.User, error) {
	if _, err := uuid.Parse(userId); err != nil {
		return models.User{}, fmt.Errorf("%w: %q", models.ErrInvalidUser, userId)
	}

	user, ok, err := s.repo.UserByUUID(ctx, userId)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, fmt.Errorf("%w: %s", models.ErrInvalidUser, userId)
	}
	return user, nil
}

func canView(actor models.User, rfq models.RFQ) bool {
	return rfq.UserId == actor.Id || actor.Role.CanQuote()
}
