// Package lifecycle validates and applies status transitions for water
// requests. The allowed edges form a single delivery path with two
// cancellation escapes; anything else is rejected without touching the
// stored record.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"aquaflow/internal/domain"
	"aquaflow/internal/repository"

	"go.uber.org/zap"
)

// Action a distributor- or coordinator-triggered operation on a request.
type Action string

const (
	ActionAccept           Action = "Accept"
	ActionDecline          Action = "Decline"
	ActionStartDelivery    Action = "StartDelivery"
	ActionCompleteDelivery Action = "CompleteDelivery"
)

// ParseAction validates an action string from the API.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionAccept, ActionDecline, ActionStartDelivery, ActionCompleteDelivery:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// transition a single allowed edge in the request state machine
type transition struct {
	From   domain.RequestStatus
	Action Action
	To     domain.RequestStatus
}

var transitionsTable = []transition{
	{From: domain.StatusPending, Action: ActionAccept, To: domain.StatusAccepted},
	{From: domain.StatusPending, Action: ActionDecline, To: domain.StatusCancelled},
	{From: domain.StatusAccepted, Action: ActionStartDelivery, To: domain.StatusDelivering},
	{From: domain.StatusAccepted, Action: ActionDecline, To: domain.StatusCancelled},
	{From: domain.StatusDelivering, Action: ActionCompleteDelivery, To: domain.StatusDelivered},
}

// Next returns the resulting status for a (state, action) pair.
func Next(from domain.RequestStatus, action Action) (domain.RequestStatus, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Action == action {
			return tr.To, true
		}
	}
	return "", false
}

// InvalidTransitionError the requested action is not allowed from the
// request's current status.
type InvalidTransitionError struct {
	RequestID string
	From      domain.RequestStatus
	Action    Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: request %s in status %s cannot %s",
		e.RequestID, e.From, e.Action)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}

// Manager applies validated transitions against the store. It holds no
// in-memory state; every call round-trips to the repository.
type Manager struct {
	requests repository.WaterRequestsRepo
	logger   *zap.Logger
}

func NewManager(requests repository.WaterRequestsRepo, logger *zap.Logger) *Manager {
	return &Manager{requests: requests, logger: logger}
}

// Transition validates and applies an action, returning the request with
// its new status. The stored record is untouched on rejection. The status
// update itself is last-write-wins; concurrent distributors acting on the
// same request are not serialized here.
func (m *Manager) Transition(ctx context.Context, requestID string, action Action) (*domain.WaterRequest, error) {
	req, err := m.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request %s: %w", requestID, err)
	}

	next, ok := Next(req.Status, action)
	if !ok {
		return nil, &InvalidTransitionError{RequestID: requestID, From: req.Status, Action: action}
	}

	if err := m.requests.UpdateStatus(ctx, requestID, next); err != nil {
		return nil, fmt.Errorf("failed to update request %s: %w", requestID, err)
	}

	m.logger.Info("Request transitioned",
		zap.String("request_id", requestID),
		zap.String("action", string(action)),
		zap.String("from", string(req.Status)),
		zap.String("to", string(next)),
	)

	req.Status = next
	return req, nil
}
