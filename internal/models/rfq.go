package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RFQStatus string

const (
	RFQPending  RFQStatus = "pending"
	RFQQuoted   RFQStatus = "quoted"
	RFQAccepted RFQStatus = "accepted"
	RFQRejected RFQStatus = "rejected"
	RFQExpired  RFQStatus = "expired"
)

func ValidRFQStatus(s RFQStatus) bool {
	switch s {
	case RFQPending, RFQQuoted, RFQAccepted, RFQRejected, RFQExpired:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is permitted from s.
func (s RFQStatus) Terminal() bool {
	switch s {
	case RFQAccepted, RFQRejected, RFQExpired:
		return true
	default:
		return false
	}
}

// OpenRFQStatuses are the statuses the expiry sweep looks at.
var OpenRFQStatuses = []RFQStatus{RFQPending, RFQQuoted}

type RFQ struct {
	Id          string              `json:"id"`
	Number      string              `json:"rfqNumber"`
	UserId      string              `json:"userId"`
	Subject     string              `json:"subject"`
	Message     string              `json:"message,omitempty"`
	TargetPrice decimal.NullDecimal `json:"targetPrice"`
	Status      RFQStatus           `json:"status"`
	Items       []RFQItem           `json:"items"`
	Quote       *Quote              `json:"quote,omitempty"`
	ExpiresAt   *time.Time          `json:"expiresAt,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// Expired reports whether the deadline of the RFQ has passed at now.
func (r RFQ) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// RFQItem keeps a snapshot of the product taken when the RFQ was created.
// ProductName and ProductImage are never refreshed from the catalog.
type RFQItem struct {
	Id           string `json:"id"`
	ProductId    string `json:"productId"`
	ProductName  string `json:"productName"`
	ProductImage string `json:"productImage"`
	Quantity     int    `json:"quantity"`
	Notes        string `json:"notes,omitempty"`
}

// Quote is the supplier response attached to an RFQ.
type Quote struct {
	SupplierId string          `json:"supplierId"`
	Price      decimal.Decimal `json:"price"`
	Terms      string          `json:"terms"`
	QuotedAt   time.Time       `json:"quotedAt"`
}

type CreateRFQData struct {
	Subject     string              `json:"subject" validate:"required,max=200"`
	Message     string              `json:"message" validate:"max=2000"`
	TargetPrice decimal.NullDecimal `json:"targetPrice"`
	ExpiresAt   *time.Time          `json:"expiresAt"`
	Items       []CreateRFQItem     `json:"items" validate:"required,min=1,dive"`
}

type CreateRFQItem struct {
	ProductId string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0,lte=2147483647"`
	Notes     string `json:"notes" validate:"max=500"`
}

type QuoteData struct {
	Price decimal.Decimal `json:"price"`
	Terms string          `json:"terms" validate:"required,max=2000"`
}

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func ValidDecision(d Decision) bool {
	switch d {
	case DecisionAccept, DecisionReject:
		return true
	default:
		return false
	}
}

// StatusChange is one row of the RFQ audit trail.
type StatusChange struct {
	RFQId     string    `json:"rfqId"`
	From      RFQStatus `json:"from,omitempty"`
	To        RFQStatus `json:"to"`
	ActorId   string    `json:"actorId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
