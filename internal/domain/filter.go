package domain

import "time"

// FilterReading water-quality sample (maps to the filter_health table)
type FilterReading struct {
	ID         int64     `json:"id" db:"id"`
	UID        string    `json:"uid" db:"uid"`
	PH         float64   `json:"ph" db:"ph"`
	Turbidity  float64   `json:"turbidity" db:"turbidity"`
	CapturedAt time.Time `json:"captured_at" db:"captured_at"`
}

// FilterExpiry filter expiration record (maps to the expiry_dates table).
// Created at install time and mutated only by an explicit reset when the
// filter is replaced.
type FilterExpiry struct {
	UID            string    `json:"uid" db:"uid"`
	ExpirationDate time.Time `json:"expiration_date" db:"expiration_date"`
}
