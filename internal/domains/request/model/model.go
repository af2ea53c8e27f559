package model

import (
	"unibook/shared/model"
)

const (
	TableName  = "booking_requests"
	EntityName = "booking_request"

	FieldID          = "id"
	FieldSlotID      = "slot_instance_id"
	FieldRequesterID = "requester_id"
	FieldMessage     = "message"
	FieldStatus      = "status"
)

// Request statuses. A request leaves pending exactly once: the owner accepts
// or rejects it, or the requester cancels it.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

type Request struct {
	ID          string `db:"id"`
	SlotID      string `db:"slot_instance_id"`
	RequesterID string `db:"requester_id"`
	Message     string `db:"message"`
	Status      string `db:"status"`
	model.Metadata
}
