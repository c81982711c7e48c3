package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"rfq/internal/logging"
	"rfq/internal/models"

	"github.com/go-chi/chi/v5"
)

type Service interface {
	Create(ctx context.Context, buyerId string, data models.CreateRFQData) (models.RFQ, error)
	SubmitQuote(ctx context.Context, supplierId, rfqId string, data models.QuoteData) (models.RFQ, error)
	Respond(ctx context.Context, buyerId, rfqId string, decision models.Decision) (models.RFQ, error)
	Sweep(ctx context.Context, actorId string) (int, error)

	GetRFQ(ctx context.Context, actorId, rfqId string) (models.RFQ, error)
	GetRFQStatus(ctx context.Context, actorId, rfqId string) (models.RFQStatus, error)
	ListMyRFQs(ctx context.Context, buyerId string, limit, offset int, statuses []models.RFQStatus) ([]models.RFQ, error)
	ListRFQs(ctx context.Context, actorId string, limit, offset int, statuses []models.RFQStatus) ([]models.RFQ, error)
	History(ctx context.Context, actorId, rfqId string) ([]models.StatusChange, error)
}

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GET /api/ping
func (c *Controller) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

//// RFQs

// POST /api/rfqs/new
func (c *Controller) NewRFQ(w http.ResponseWriter, r *http.Request) {
	data, ok := c.readBody(w, r)
	if !ok {
		return
	}

	req, err := ParseNewRFQReq(data)
	if err != nil {
		c.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rfq, err := c.service.Create(r.Context(), Actor(r.Context()), req)
	if err != nil {
		c.serviceErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	c.marshalResponse(w, r, rfq)
}

// GET /api/rfqs/my
func (c *Controller) MyRFQs(w http.ResponseWriter, r *http.Request) {
	limit, offset, statuses, ok := c.listParams(w, r)
	if !ok {
		return
	}

	rfqs, err := c.service.ListMyRFQs(r.Context(), Actor(r.Context()), limit, offset, statuses)
	if err != nil {
		c.serviceErrorResponse(w, r, err)
		return
	}

	c.marshalResponse(w, r, nonNil(rfqs))
}

// GET /api/rfqs
func (c *Controller) RFQs(w http.ResponseWriter, r *http.Request) {
	limit, offset, statuses, ok := c.listParams(w, r)
	if !ok {
		return
	}

	rfqs, err := c.service.ListRFQs(r.Context(), Actor(r.Context()), limit, offset, statuses)
	if err != nil {
		c.serviceErrorResponse(w, r, err)
		return
	}

	c.marshalResponse(w, r, nonNil(rfqs))
}

// GET /api/rfqs/{rfqId}
func (c *Controller) RFQ(w http.ResponseWriter, r *http.Request) {
	rfqId, ok := c.rfqId(w, r)
	if !ok {
		return
	}

	rfq, err := c.service.GetRFQ(r.Context(), Actor(r.Context()), rfqId)
	if err != nil {
		c.serviceErrorResponse(w, r, err)
		return
	}

	c.marshalResponse(w, r, rfq)
}

// GET /api/rfqs/{rfqId}/status
func (c *Controller) RFQStatus(w http.ResponseWriter, r *http.Request) {
	rfqId, ok := c.rfqId(w, r)
	if !ok {
		return
	}

	status, err := c.service.GetRFQStatus(r.Context(), Actor(r.Context()), rfqId)
	if err != nil {
		c.serviceErrorResponse(w, r, err)
		return
	}

	fmt.Fprint(w, status)
}

// GET /api/rfqs/{rfqId}/history
func (c *Controller) RFQHistory(w http.ResponseWriter, r *http.Request) {
	rfqId, ok := c.rfqId(w, r)
	if !ok {
		return
	}

	history, err := c.service.History(r.Context(), Actor(r.Context()), rfqId)
	if err != nil {
		c.serviceErrorResponse(w, r, err)
		return
	}

	c.marshalResponse(w, r, nonNil(history))
}

// PUT /api/rfqs/{rfqId}/quote
func (c *Controller) SubmitQuote(w http.ResponseWriter, r *http.Request) {
	rfqId, ok := c.rfqId(w, r)
	if !ok {
		return
	}

	data, ok := c.readBody(w, r)
	if !ok {
		return
	}

	req, err := ParseQuoteReq(data)
	if err != nil {
		c.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rfq, err := c.service.SubmitQuote(r.Context(), Actor(r.Context()), rfqId, req)
	if err != nil {
		c.serviceErrorResponse(w, r, err)
		return
	}

	c.marshalResponse(w, r, rfq)
}

// PUT /api/rfqs/{rfqId}/respond
func (c *Controller) Respond(w http.ResponseWriter, r *http.Request) {
	rfqId, ok := c.rfqId(w, r)
	if !ok {
		return
	}

	decision := models.Decision(r.URL.Query().Get("decision"))
	if !models.ValidDecision(decision) {
		c.errorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("invalid decision supplied: %q, should be one of: %s, %s", decision, models.DecisionAccept, models.DecisionReject))
		return
	}

	rfq, err := c.service.Respond(r.Context(), Actor(r.Context()), rfqId, decision)
	if err != nil {
		c.serviceErrorResponse(w, r, err)
		return
	}

	c.marshalResponse(w, r, rfq)
}

// POST /api/rfqs/sweep
func (c *Controller) Sweep(w http.ResponseWriter, r *http.Request) {
	count, err := c.service.Sweep(r.Context(), Actor(r.Context()))
	if err != nil {
		c.serviceErrorResponse(w, r, err)
		return
	}

	c.marshalResponse(w, r, SweepResp{Expired: count})
}

// Service

type ErrorResponse struct {
	Reason string `json:"reason"`
	Kind   string `json:"kind"`
	RFQId  string `json:"rfqId,omitempty"`
	Retry  bool   `json:"retry,omitempty"`
}

func (c *Controller) listParams(w http.ResponseWriter, r *http.Request) (int, int, []models.RFQStatus, bool) {
	query := r.URL.Query()

	limit, err := c.getQueryInt(query, "limit")
	if err != nil || limit < 0 {
		c.errorResponse(w, r, http.StatusBadRequest, "invalid value of 'limit' query parameter: "+query.Get("limit"))
		return 0, 0, nil, false
	}

	offset, err := c.getQueryInt(query, "offset")
	if err != nil || offset < 0 {
		c.errorResponse(w, r, http.StatusBadRequest, "invalid value of 'offset' query parameter: "+query.Get("offset"))
		return 0, 0, nil, false
	}

	var statuses []models.RFQStatus
	for _, str := range query["status"] {
		s := models.RFQStatus(str)
		if !models.ValidRFQStatus(s) {
			c.errorResponse(w, r, http.StatusBadRequest, "invalid status supplied: "+str)
			return 0, 0, nil, false
		}
		statuses = append(statuses, s)
	}

	return limit, offset, statuses, true
}

func (c *Controller) rfqId(w http.ResponseWriter, r *http.Request) (string, bool) {
	rfqId := chi.URLParam(r, "rfqId")
	if len(rfqId) == 0 {
		c.errorResponse(w, r, http.StatusBadRequest, "empty rfqId supplied")
		return "", false
	}
	return rfqId, true
}

func (c *Controller) getQueryInt(query url.Values, key string) (int, error) {
	strs, ok := query[key]
	if ok && len(strs) > 0 {
		return strconv.Atoi(strs[0])
	}
	return 0, nil
}

func (c *Controller) errorResponse(w http.ResponseWriter, r *http.Request, status int, text string) {
	c.writeError(w, r, status, ErrorResponse{Reason: text, Kind: statusKind(status)})
}

func (c *Controller) writeError(w http.ResponseWriter, r *http.Request, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	data, err := json.Marshal(resp)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("controller.Controller.writeError")
		return
	}

	_, err = w.Write(data)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("controller.Controller.writeError")
		return
	}
}

func (c *Controller) serviceErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	kind := models.ErrorKind(err)
	resp := ErrorResponse{
		Kind:  kindName(kind),
		RFQId: models.ErrorRFQId(err),
	}

	var status int
	switch {
	case errors.Is(kind, models.ErrValidation):
		status, resp.Reason = http.StatusBadRequest, rfqErrorReason(err)
	case errors.Is(kind, models.ErrInvalidUser):
		status, resp.Reason = http.StatusUnauthorized, "user does not exist or have no rights for requested action"
	case errors.Is(kind, models.ErrForbidden):
		status, resp.Reason = http.StatusForbidden, "user have no permission for requested action"
	case errors.Is(kind, models.ErrNotFound):
		status, resp.Reason = http.StatusNotFound, "requested rfq or product does not exist"
	case errors.Is(kind, models.ErrInvalidTransition):
		status, resp.Reason = http.StatusConflict, transitionReason(err)
	case errors.Is(kind, models.ErrConflict):
		status, resp.Reason, resp.Retry = http.StatusConflict, "rfq was changed by another request", true
	default:
		logging.FromContext(r.Context()).WithError(err).Error("controller: unexpected service error")
		status, resp.Reason = http.StatusInternalServerError, "internal server error"
	}

	c.writeError(w, r, status, resp)
}

func (c *Controller) marshalResponse(w http.ResponseWriter, r *http.Request, data any) {
	d, err := json.Marshal(data)
	if err != nil {
		c.errorResponse(w, r, http.StatusInternalServerError, "could not marshal response data")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(d)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("controller.Controller.marshalResponse: could not write response data")
	}
}

func (c *Controller) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	src := http.MaxBytesReader(w, r.Body, maxBodySize)
	defer src.Close()

	data, err := io.ReadAll(src)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.errorResponse(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return nil, false
	} else if err != nil {
		c.errorResponse(w, r, http.StatusInternalServerError, "could not read request body")
		return nil, false
	}
	return data, true
}

func transitionReason(err error) string {
	var terr *models.TransitionError
	if errors.As(err, &terr) {
		return terr.Error()
	}
	return models.ErrInvalidTransition.Error()
}

func rfqErrorReason(err error) string {
	var rfqErr *models.RFQError
	if errors.As(err, &rfqErr) && rfqErr.Err != nil {
		return rfqErr.Err.Error()
	}
	return err.Error()
}

func kindName(kind error) string {
	switch {
	case errors.Is(kind, models.ErrValidation):
		return "validation"
	case errors.Is(kind, models.ErrInvalidUser):
		return "invalid_user"
	case errors.Is(kind, models.ErrForbidden):
		return "forbidden"
	case errors.Is(kind, models.ErrNotFound):
		return "not_found"
	case errors.Is(kind, models.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(kind, models.ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}

func statusKind(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return "validation"
	case http.StatusUnauthorized:
		return "invalid_user"
	case http.StatusNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
