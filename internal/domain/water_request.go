package domain

import "time"

// RequestStatus lifecycle status of a water request
type RequestStatus string

const (
	StatusPending    RequestStatus = "Pending"
	StatusAccepted   RequestStatus = "Accepted"
	StatusDelivering RequestStatus = "Delivering"
	StatusDelivered  RequestStatus = "Delivered"
	StatusCancelled  RequestStatus = "Cancelled"
)

// Terminal reports whether the status is a terminal (history-only) state.
func (s RequestStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Urgency three-level priority tag attached by the requester
type Urgency string

const (
	UrgencyHigh   Urgency = "High"
	UrgencyMedium Urgency = "Medium"
	UrgencyLow    Urgency = "Low"
)

// Rank maps urgency to a sortable rank (High first). Unknown values sort last.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyHigh:
		return 0
	case UrgencyMedium:
		return 1
	case UrgencyLow:
		return 2
	}
	return 3
}

// WaterRequest domain model (maps to the water_requests table)
// Requests are never physically deleted; terminal states persist as history.
type WaterRequest struct {
	RequestID   string        `json:"request_id" db:"request_id"`
	UID         string        `json:"uid" db:"uid"`
	Quantity    float64       `json:"quantity" db:"quantity"` // liters, always > 0
	Urgency     Urgency       `json:"urgency" db:"urgency"`
	Status      RequestStatus `json:"status" db:"status"`
	ScheduledAt time.Time     `json:"scheduled_at" db:"scheduled_at"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	Latitude    float64       `json:"latitude" db:"latitude"`
	Longitude   float64       `json:"longitude" db:"longitude"`
}
