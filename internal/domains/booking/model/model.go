package model

import (
	"unibook/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID        = "id"
	FieldSlotID    = "slot_instance_id"
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
)

// Booking is a confirmed reservation, created exactly once per accepted
// request and immutable afterwards.
type Booking struct {
	ID        string `db:"id"`
	SlotID    string `db:"slot_instance_id"`
	RequestID string `db:"request_id"`
	UserID    string `db:"user_id"`
	model.Metadata
}
