package domain

import "database/sql"

// User tank owner account (maps to the users table)
// IP is the network address of the user's tank controller; it is nullable
// because a tank may be registered before its controller comes online.
type User struct {
	UID        string         `db:"uid"`
	Name       string         `db:"name"`
	IP         sql.NullString `db:"ip"`
	PushToken  sql.NullString `db:"push_token"`
	WaterLevel float64        `db:"water_level"` // latest raw distance reading (cm)
}
