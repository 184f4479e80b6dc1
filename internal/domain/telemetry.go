package domain

import "time"

// TankReading a single distance reading from a tank's ultrasonic sensor
// (maps to the append-only avg_distance table). Readings are read-only to
// the application; the latest N are averaged to smooth sensor noise.
type TankReading struct {
	ID         int64     `json:"id" db:"id"`
	UID        string    `json:"uid" db:"uid"`
	Distance   float64   `json:"distance" db:"distance"` // centimeters
	CapturedAt time.Time `json:"captured_at" db:"captured_at"`
}
