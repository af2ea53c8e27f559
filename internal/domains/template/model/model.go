package model

import (
	"unibook/shared/model"
)

const (
	TableName  = "slot_templates"
	EntityName = "slot_template"

	FieldID        = "id"
	FieldOwnerID   = "owner_id"
	FieldWeekday   = "weekday"
	FieldStartTime = "start_time"
	FieldEndTime   = "end_time"
	FieldCapacity  = "capacity"
	FieldNotes     = "notes"
)

// Template is a recurring weekly availability rule owned by a provider.
// Capacity 0 means unlimited.
type Template struct {
	ID        string `db:"id"`
	OwnerID   string `db:"owner_id"`
	Weekday   int    `db:"weekday"`
	StartTime string `db:"start_time"`
	EndTime   string `db:"end_time"`
	Capacity  int    `db:"capacity"`
	Notes     string `db:"notes"`
	model.Metadata
}
