package service

import (
	"context"

	"rfq/internal/logging"
	"rfq/internal/models"

	log "github.com/sirupsen/logrus"
)

// Notifier is told about every committed status change, once per change.
type Notifier interface {
	RFQTransitioned(ctx context.Context, rfq models.RFQ, change models.StatusChange)
}

// LogNotifier writes transitions to the structured log.
type LogNotifier struct{}

func (LogNotifier) RFQTransitioned(ctx context.Context, rfq models.RFQ, change models.StatusChange) {
	logging.FromContext(ctx).WithFields(log.Fields{
		"rfq_id":     rfq.Id,
		"rfq_number": rfq.Number,
		"from":       change.From,
		"to":         change.To,
		"actor":      change.ActorId,
	}).Info("RFQ status changed")
}

func (s *Service) logger(ctx context.Context) *log.Entry {
	return logging.FromContext(ctx)
}
