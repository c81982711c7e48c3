package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rfq/internal/models"
)

const maxBodySize = 1 << 20

// New RFQ request, validated in depth by the service

func ParseNewRFQReq(data []byte) (models.CreateRFQData, error) {
	var req models.CreateRFQData

	err := decodeStrict(data, &req)
	if err != nil {
		return models.CreateRFQData{}, err
	}

	if len(req.Items) == 0 {
		return models.CreateRFQData{}, errors.New("rfq should contain at least one item")
	}

	return req, nil
}

// Quote request

func ParseQuoteReq(data []byte) (models.QuoteData, error) {
	var req models.QuoteData

	err := decodeStrict(data, &req)
	if err != nil {
		return models.QuoteData{}, err
	}

	if len(req.Terms) == 0 {
		return models.QuoteData{}, errors.New("empty quote terms supplied")
	}

	return req, nil
}

type SweepResp struct {
	Expired int `json:"expired"`
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// Acting user

type actorKey struct{}

// WithActor stores the id of the user performing the request.
func WithActor(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, actorKey{}, userId)
}

func Actor(ctx context.Context) string {
	userId, _ := ctx.Value(actorKey{}).(string)
	return userId
}
