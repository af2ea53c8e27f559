package dto

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"unibook/internal/domains/slot/model"
	"unibook/shared"
	"unibook/shared/constant"
	gDto "unibook/shared/dto"
	"unibook/shared/failure"
	gModel "unibook/shared/model"
	"unibook/shared/timezone"
)

type SlotRangeRequest struct {
	StartTime  string `json:"start_time"  validate:"required"`
	EndTime    string `json:"end_time"    validate:"required"`
	Capacity   int    `json:"capacity"    validate:"omitempty,min=0"`
	Notes      string `json:"notes"       validate:"omitempty,max=500"`
	TemplateID string `json:"template_id" validate:"omitempty,uuid"`
}

type CreateSlotBatchRequest struct {
	Date   string             `json:"date"   validate:"required"`
	Ranges []SlotRangeRequest `json:"ranges" validate:"required,min=1,dive"`
}

// ToModels resolves the batch into concrete slot instances anchored on the
// requested date. Every range must parse and satisfy start < end; the whole
// batch fails otherwise.
func (c *CreateSlotBatchRequest) ToModels(owner string) (time.Time, []model.Slot, error) {
	date, err := timezone.Parse(constant.DateOnlyFormat, c.Date)
	if err != nil {
		return time.Time{}, nil, failure.BadRequestFromString("invalid date, expected YYYY-MM-DD") //nolint:wrapcheck
	}

	slots := make([]model.Slot, len(c.Ranges))

	for i, r := range c.Ranges {
		start, err := parseTimeOnDate(date, r.StartTime)
		if err != nil {
			return time.Time{}, nil, failure.BadRequestFromString(fmt.Sprintf("range %d: invalid start_time, expected HH:MM", i)) //nolint:wrapcheck
		}

		end, err := parseTimeOnDate(date, r.EndTime)
		if err != nil {
			return time.Time{}, nil, failure.BadRequestFromString(fmt.Sprintf("range %d: invalid end_time, expected HH:MM", i)) //nolint:wrapcheck
		}

		if !start.Before(end) {
			return time.Time{}, nil, failure.BadRequestFromString(fmt.Sprintf("range %d: start_time must be before end_time", i)) //nolint:wrapcheck
		}

		templateID := sql.NullString{}
		if r.TemplateID != "" {
			templateID = sql.NullString{String: r.TemplateID, Valid: true}
		}

		slots[i] = model.Slot{
			ID:         uuid.NewString(),
			TemplateID: templateID,
			SlotDate:   date,
			StartAt:    start,
			EndAt:      end,
			Capacity:   r.Capacity,
			Notes:      r.Notes,
			Metadata: gModel.Metadata{
				CreatedAt:  timezone.Now(),
				ModifiedAt: timezone.Now(),
				CreatedBy:  owner,
				ModifiedBy: owner,
			},
		}
	}

	return date, slots, nil
}

func parseTimeOnDate(date time.Time, value string) (time.Time, error) {
	t, err := time.Parse(constant.TimeOnlyFormat, value)
	if err != nil {
		return time.Time{}, err //nolint:wrapcheck
	}

	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

type MaterializeRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to"   validate:"required"`
}

// Dates resolves the inclusive [from,to] range of the materialization window.
func (m *MaterializeRequest) Dates() (time.Time, time.Time, error) {
	from, err := timezone.Parse(constant.DateOnlyFormat, m.From)
	if err != nil {
		return time.Time{}, time.Time{}, failure.BadRequestFromString("invalid from date, expected YYYY-MM-DD") //nolint:wrapcheck
	}

	to, err := timezone.Parse(constant.DateOnlyFormat, m.To)
	if err != nil {
		return time.Time{}, time.Time{}, failure.BadRequestFromString("invalid to date, expected YYYY-MM-DD") //nolint:wrapcheck
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, failure.BadRequestFromString("to date must not be before from date") //nolint:wrapcheck
	}

	return from, to, nil
}

type SlotResponse struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id,omitempty"`
	Date       string `json:"date"`
	StartAt    string `json:"start_at"`
	EndAt      string `json:"end_at"`
	Capacity   int    `json:"capacity"`
	Notes      string `json:"notes"`
	gDto.Metadata
}

func (r *SlotResponse) FromModel(model model.Slot) {
	r.ID = model.ID
	if model.TemplateID.Valid {
		r.TemplateID = model.TemplateID.String
	}

	r.Date = timezone.Format(model.SlotDate, constant.DateOnlyFormat)
	r.StartAt = timezone.Format(model.StartAt, constant.DateFormat)
	r.EndAt = timezone.Format(model.EndAt, constant.DateFormat)
	r.Capacity = model.Capacity
	r.Notes = model.Notes
	r.Metadata.FromModel(model.Metadata)
}

type SlotsResponse struct {
	Slots []SlotResponse `json:"slots"`
}

func (r *SlotsResponse) FromModels(models []model.Slot) {
	r.Slots = make([]SlotResponse, len(models))
	for i, mod := range models {
		r.Slots[i].FromModel(mod)
	}
}

type GetSlotsResponse struct {
	Slots     []SlotResponse `json:"slots"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetSlotsResponse) FromModels(models []model.Slot, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Slots = make([]SlotResponse, len(models))
	for i, mod := range models {
		r.Slots[i].FromModel(mod)
	}
}

type MaterializeResponse struct {
	Created int            `json:"created"`
	Skipped int            `json:"skipped"`
	Slots   []SlotResponse `json:"slots"`
}
