package model

import (
	"database/sql"
	"time"

	"unibook/shared/model"
)

const (
	TableName  = "slot_instances"
	EntityName = "slot_instance"

	FieldID         = "id"
	FieldTemplateID = "template_id"
	FieldSlotDate   = "slot_date"
	FieldStartAt    = "start_at"
	FieldEndAt      = "end_at"
	FieldCapacity   = "capacity"
	FieldNotes      = "notes"
)

// Slot is a single bookable calendar occurrence. TemplateID is set when the
// instance was materialized from a template; CreatedBy is set for ad-hoc
// instances. At least one of the two identifies the owning provider.
// Capacity 0 falls back to the template capacity, and to unlimited when the
// template has none.
type Slot struct {
	ID         string         `db:"id"`
	TemplateID sql.NullString `db:"template_id"`
	SlotDate   time.Time      `db:"slot_date"`
	StartAt    time.Time      `db:"start_at"`
	EndAt      time.Time      `db:"end_at"`
	Capacity   int            `db:"capacity"`
	Notes      string         `db:"notes"`
	model.Metadata
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Adjacent intervals do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// OverlapsWith reports whether two slots occupy intersecting time ranges.
func (s *Slot) OverlapsWith(other Slot) bool {
	return Overlaps(s.StartAt, s.EndAt, other.StartAt, other.EndAt)
}
