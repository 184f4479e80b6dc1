package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"aquaflow/internal/domain"
	"aquaflow/internal/lifecycle"
	"aquaflow/internal/motorlock"
	"aquaflow/internal/repository"
	"aquaflow/internal/scheduler"
	"aquaflow/internal/transfer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transitioner applies lifecycle actions to stored requests.
type Transitioner interface {
	Transition(ctx context.Context, requestID string, action lifecycle.Action) (*domain.WaterRequest, error)
}

// TransferExecutor runs and declines physical transfers.
type TransferExecutor interface {
	Execute(ctx context.Context, req transfer.Request) (*transfer.Transfer, error)
	Decline(ctx context.Context, notificationID string) error
}

// UserNotifier stores and pushes a notification for a user.
type UserNotifier interface {
	NotifyUser(ctx context.Context, uid, title, body string, data map[string]string) (*domain.Notification, error)
}

// RequestsHandler water request endpoints
type RequestsHandler struct {
	requests    repository.WaterRequestsRepo
	lifecycle   Transitioner
	coordinator TransferExecutor
	notifier    UserNotifier
	logger      *zap.Logger
}

func NewRequestsHandler(
	requests repository.WaterRequestsRepo,
	lc Transitioner,
	coordinator TransferExecutor,
	notifier UserNotifier,
	logger *zap.Logger,
) *RequestsHandler {
	return &RequestsHandler{
		requests:    requests,
		lifecycle:   lc,
		coordinator: coordinator,
		notifier:    notifier,
		logger:      logger,
	}
}

type createRequestBody struct {
	UID         string  `json:"uid"`
	OwnerUID    string  `json:"owner_uid"` // optional: owner asked to supply
	Quantity    float64 `json:"quantity"`
	Urgency     string  `json:"urgency"`
	ScheduledAt string  `json:"scheduled_at"` // RFC3339
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Create handles POST /api/v1/requests.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	if body.UID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("uid is required"))
		return
	}
	if body.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, Fail("quantity must be positive"))
		return
	}
	urgency := domain.Urgency(body.Urgency)
	if urgency.Rank() > domain.UrgencyLow.Rank() {
		writeJSON(w, http.StatusBadRequest, Fail("urgency must be High, Medium or Low"))
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, body.ScheduledAt)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("scheduled_at must be RFC3339"))
		return
	}

	req := &domain.WaterRequest{
		RequestID:   uuid.NewString(),
		UID:         body.UID,
		Quantity:    body.Quantity,
		Urgency:     urgency,
		Status:      domain.StatusPending,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now().UTC(),
		Latitude:    body.Latitude,
		Longitude:   body.Longitude,
	}
	if err := h.requests.Create(r.Context(), req); err != nil {
		h.logger.Error("Failed to create water request", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to create request"))
		return
	}

	// tell the owner a request is waiting; the record it creates is what the
	// accept/decline flow later cleans up
	var notificationID string
	if body.OwnerUID != "" {
		record, err := h.notifier.NotifyUser(r.Context(), body.OwnerUID,
			"Water request",
			fmt.Sprintf("%.0f L requested, urgency %s", req.Quantity, req.Urgency),
			map[string]string{"request_id": req.RequestID},
		)
		if err != nil {
			h.logger.Warn("Failed to notify tank owner",
				zap.String("request_id", req.RequestID),
				zap.String("owner_uid", body.OwnerUID),
				zap.Error(err),
			)
		} else {
			notificationID = record.NotificationID
		}
	}

	writeJSON(w, http.StatusCreated, Ok(map[string]any{
		"request":         req,
		"notification_id": notificationID,
	}))
}

// List handles GET /api/v1/requests?status=S. Results come back in dispatch
// order regardless of the status filter.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.RequestStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.StatusPending
	}

	requests, err := h.requests.ListByStatus(r.Context(), status)
	if err != nil {
		h.logger.Error("Failed to list water requests", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list requests"))
		return
	}

	ordered, err := scheduler.Order(requests)
	if err != nil {
		h.logger.Error("Failed to order water requests", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to order requests"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(ordered))
}

type transitionBody struct {
	Action string `json:"action"`
}

// Transition handles POST /api/v1/requests/{id}/transition.
func (h *RequestsHandler) Transition(w http.ResponseWriter, r *http.Request, requestID string) {
	var body transitionBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	action, err := lifecycle.ParseAction(body.Action)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	req, err := h.lifecycle.Transition(r.Context(), requestID, action)
	if err != nil {
		h.writeTransitionError(w, requestID, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(req))
}

type acceptBody struct {
	OwnerUID       string `json:"owner_uid"`
	NotificationID string `json:"notification_id"`
}

// Accept handles POST /api/v1/requests/{id}/accept: the owner agrees to
// supply, the request advances to Accepted and the transfer starts. A busy
// motor keeps the request Pending so the owner can retry.
func (h *RequestsHandler) Accept(w http.ResponseWriter, r *http.Request, requestID string) {
	var body acceptBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if body.OwnerUID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("owner_uid is required"))
		return
	}

	req, err := h.requests.GetByID(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("request not found"))
			return
		}
		h.logger.Error("Failed to load water request", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load request"))
		return
	}
	if _, ok := lifecycle.Next(req.Status, lifecycle.ActionAccept); !ok {
		writeJSON(w, http.StatusConflict, Fail((&lifecycle.InvalidTransitionError{
			RequestID: requestID, From: req.Status, Action: lifecycle.ActionAccept,
		}).Error()))
		return
	}

	// Start the transfer before touching the status: a busy motor leaves the
	// request Pending so the owner can accept again later.
	tr, err := h.coordinator.Execute(r.Context(), transfer.Request{
		RequestID:      req.RequestID,
		RequesterUID:   req.UID,
		OwnerUID:       body.OwnerUID,
		NotificationID: body.NotificationID,
		Quantity:       req.Quantity,
	})
	if err != nil {
		if errors.Is(err, motorlock.ErrLockBusy) {
			writeJSON(w, http.StatusConflict, Fail("motor is busy, try again later"))
			return
		}
		h.logger.Error("Failed to start transfer",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to start transfer"))
		return
	}

	if _, err := h.lifecycle.Transition(r.Context(), requestID, lifecycle.ActionAccept); err != nil {
		h.logger.Error("Failed to mark request accepted",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
	if _, err := h.lifecycle.Transition(r.Context(), requestID, lifecycle.ActionStartDelivery); err != nil {
		h.logger.Error("Failed to mark request delivering",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}

	if _, err := h.notifier.NotifyUser(r.Context(), req.UID,
		"Water request accepted",
		"Your water is on its way",
		map[string]string{"request_id": req.RequestID},
	); err != nil {
		h.logger.Warn("Failed to notify requester",
			zap.String("request_id", req.RequestID),
			zap.Error(err),
		)
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"request_id":       req.RequestID,
		"status":           domain.StatusDelivering,
		"duration_seconds": tr.Duration.Seconds(),
	}))
}

type declineBody struct {
	NotificationID string `json:"notification_id"`
}

// Decline handles POST /api/v1/requests/{id}/decline.
func (h *RequestsHandler) Decline(w http.ResponseWriter, r *http.Request, requestID string) {
	var body declineBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	req, err := h.lifecycle.Transition(r.Context(), requestID, lifecycle.ActionDecline)
	if err != nil {
		h.writeTransitionError(w, requestID, err)
		return
	}

	if err := h.coordinator.Decline(r.Context(), body.NotificationID); err != nil {
		h.logger.Warn("Failed to clean up declined request notification",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}

	writeJSON(w, http.StatusOK, Ok(req))
}

func (h *RequestsHandler) writeTransitionError(w http.ResponseWriter, requestID string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail("request not found"))
	case lifecycle.IsInvalidTransition(err):
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
	default:
		h.logger.Error("Request transition failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("transition failed"))
	}
}
