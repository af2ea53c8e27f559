package dto

import (
	"time"

	"github.com/google/uuid"

	"unibook/internal/domains/template/model"
	"unibook/shared"
	"unibook/shared/constant"
	gDto "unibook/shared/dto"
	"unibook/shared/failure"
	gModel "unibook/shared/model"
	"unibook/shared/timezone"
)

type CreateTemplateRequest struct {
	Weekday   *int   `json:"weekday"    validate:"required,min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time"   validate:"required"`
	Capacity  int    `json:"capacity"   validate:"omitempty,min=0"`
	Notes     string `json:"notes"      validate:"omitempty,max=500"`
}

func (c *CreateTemplateRequest) ToModel(owner string) (model.Template, error) {
	start, err := time.Parse(constant.TimeOnlyFormat, c.StartTime)
	if err != nil {
		return model.Template{}, failure.BadRequestFromString("invalid start_time, expected HH:MM") //nolint:wrapcheck
	}

	end, err := time.Parse(constant.TimeOnlyFormat, c.EndTime)
	if err != nil {
		return model.Template{}, failure.BadRequestFromString("invalid end_time, expected HH:MM") //nolint:wrapcheck
	}

	if !start.Before(end) {
		return model.Template{}, failure.BadRequestFromString("start_time must be before end_time") //nolint:wrapcheck
	}

	return model.Template{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Weekday:   *c.Weekday,
		StartTime: start.Format(constant.TimeOnlyFormat),
		EndTime:   end.Format(constant.TimeOnlyFormat),
		Capacity:  c.Capacity,
		Notes:     c.Notes,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  owner,
			ModifiedBy: owner,
		},
	}, nil
}

type UpdateTemplateRequest struct {
	Weekday   *int   `db:"weekday"    json:"weekday"    validate:"omitempty,min=0,max=6"`
	StartTime string `db:"start_time" json:"start_time" validate:"omitempty"`
	EndTime   string `db:"end_time"   json:"end_time"   validate:"omitempty"`
	Capacity  *int   `db:"capacity"   json:"capacity"   validate:"omitempty,min=0"`
	Notes     string `db:"notes"      json:"notes"      validate:"omitempty,max=500"`
}

type TemplateResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Capacity  int    `json:"capacity"`
	Notes     string `json:"notes"`
	gDto.Metadata
}

func (r *TemplateResponse) FromModel(model model.Template) {
	r.ID = model.ID
	r.OwnerID = model.OwnerID
	r.Weekday = model.Weekday
	r.StartTime = model.StartTime
	r.EndTime = model.EndTime
	r.Capacity = model.Capacity
	r.Notes = model.Notes
	r.Metadata.FromModel(model.Metadata)
}

type GetTemplatesResponse struct {
	Templates []TemplateResponse `json:"templates"`
	TotalPage int                `json:"total_page"`
	TotalData int                `json:"total_data"`
}

func (r *GetTemplatesResponse) FromModels(models []model.Template, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Templates = make([]TemplateResponse, len(models))
	for i, mod := range models {
		r.Templates[i].FromModel(mod)
	}
}
