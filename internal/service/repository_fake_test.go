package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"rfq/internal/models"

	"github.com/google/uuid"
)

// fakeRepository keeps rows in memory and honours the same conditional
// update contract as the postgres repository.
type fakeRepository struct {
	mu       sync.Mutex
	seq      int64
	rfqs     map[string]models.RFQ
	history  map[string][]models.StatusChange
	users    map[string]models.User
	products map[string]models.Product
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		rfqs:     make(map[string]models.RFQ),
		history:  make(map[string][]models.StatusChange),
		users:    make(map[string]models.User),
		products: make(map[string]models.Product),
	}
}

func (f *fakeRepository) addUser(role models.Role) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := models.User{Id: uuid.NewString(), Username: string(role) + "-" + uuid.NewString()[:8], Role: role}
	f.users[u.Id] = u
	return u
}

func (f *fakeRepository) addProduct(name, image string) models.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := models.Product{Id: uuid.NewString(), Name: name, Image: image}
	f.products[p.Id] = p
	return p
}

func (f *fakeRepository) renameProduct(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	p.Name = name
	f.products[id] = p
}

func (f *fakeRepository) status(id string) models.RFQStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rfqs[id].Status
}

func (f *fakeRepository) AddRFQ(ctx context.Context, rfq models.RFQ) (models.RFQ, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	rfq.Id = uuid.NewString()
	rfq.Number = fmt.Sprintf("RFQ-%d-%08d", rfq.CreatedAt.UTC().Year(), f.seq)
	rfq.UpdatedAt = rfq.CreatedAt
	items := make([]models.RFQItem, len(rfq.Items))
	for i, item := range rfq.Items {
		item.Id = uuid.NewString()
		items[i] = item
	}
	rfq.Items = items

	f.rfqs[rfq.Id] = rfq
	f.history[rfq.Id] = append(f.history[rfq.Id], models.StatusChange{RFQId: rfq.Id, To: rfq.Status, ActorId: rfq.UserId, CreatedAt: rfq.CreatedAt})
	return rfq, nil
}

func (f *fakeRepository) GetRFQByUUID(ctx context.Context, UUID string, tx *sql.Tx) (models.RFQ, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rfq, ok := f.rfqs[UUID]
	if !ok {
		return models.RFQ{}, fmt.Errorf("fake: no rfq %s, %w", UUID, sql.ErrNoRows)
	}
	return rfq, nil
}

func (f *fakeRepository) GetRFQs(ctx context.Context, limit, offset int, userId string, statuses []models.RFQStatus) ([]models.RFQ, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []models.RFQ
	for _, rfq := range f.rfqs {
		if userId != "" && rfq.UserId != userId {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, rfq.Status) {
			continue
		}
		result = append(result, rfq)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeRepository) TransitionRFQ(ctx context.Context, t models.Transition) (models.RFQ, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rfq, ok := f.rfqs[t.RFQId]
	if !ok || rfq.Status != t.From {
		return models.RFQ{}, fmt.Errorf("fake: %w", models.ErrConflict)
	}

	updatedAt := t.At
	if floor := rfq.UpdatedAt.Add(time.Microsecond); updatedAt.Before(floor) {
		updatedAt = floor
	}
	rfq.Status = t.To
	rfq.UpdatedAt = updatedAt
	if t.Quote != nil {
		q := *t.Quote
		rfq.Quote = &q
	}
	f.rfqs[rfq.Id] = rfq
	f.history[rfq.Id] = append(f.history[rfq.Id], models.StatusChange{RFQId: rfq.Id, From: t.From, To: t.To, ActorId: t.ActorId, CreatedAt: updatedAt})
	return rfq, nil
}

func (f *fakeRepository) ExpirableRFQs(ctx context.Context, now time.Time, limit int) ([]models.RFQ, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []models.RFQ
	for _, rfq := range f.rfqs {
		if rfq.Status.Terminal() || rfq.ExpiresAt == nil || rfq.ExpiresAt.After(now) {
			continue
		}
		result = append(result, models.RFQ{Id: rfq.Id, Status: rfq.Status, ExpiresAt: rfq.ExpiresAt})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ExpiresAt.Before(*result[j].ExpiresAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeRepository) GetStatusHistory(ctx context.Context, rfqId string) ([]models.StatusChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.StatusChange(nil), f.history[rfqId]...), nil
}

func (f *fakeRepository) ProductByUUID(ctx context.Context, UUID string) (models.Product, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[UUID]
	return p, ok, nil
}

func (f *fakeRepository) UserByUUID(ctx context.Context, UUID string) (models.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[UUID]
	return u, ok, nil
}

func containsStatus(statuses []models.RFQStatus, s models.RFQStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingNotifier struct {
	mu      sync.Mutex
	changes []models.StatusChange
}

func (n *countingNotifier) RFQTransitioned(ctx context.Context, rfq models.RFQ, change models.StatusChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
}

func (n *countingNotifier) count(to models.RFQStatus) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, ch := range n.changes {
		if ch.To == to {
			c++
		}
	}
	return c
}
