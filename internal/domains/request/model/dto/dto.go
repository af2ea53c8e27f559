package dto

import (
	"github.com/google/uuid"

	"unibook/internal/domains/request/model"
	"unibook/shared"
	gDto "unibook/shared/dto"
	gModel "unibook/shared/model"
	"unibook/shared/timezone"
)

type SubmitRequestRequest struct {
	SlotInstanceID string `json:"slot_instance_id" validate:"required,uuid"`
	Message        string `json:"message"          validate:"omitempty,max=500"`
}

func (c *SubmitRequestRequest) ToModel(requester string) model.Request {
	return model.Request{
		ID:          uuid.NewString(),
		SlotID:      c.SlotInstanceID,
		RequesterID: requester,
		Message:     c.Message,
		Status:      model.StatusPending,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  requester,
			ModifiedBy: requester,
		},
	}
}

type RequestResponse struct {
	ID             string `json:"id"`
	SlotInstanceID string `json:"slot_instance_id"`
	RequesterID    string `json:"requester_id"`
	Message        string `json:"message"`
	Status         string `json:"status"`
	gDto.Metadata
}

func (r *RequestResponse) FromModel(model model.Request) {
	r.ID = model.ID
	r.SlotInstanceID = model.SlotID
	r.RequesterID = model.RequesterID
	r.Message = model.Message
	r.Status = model.Status
	r.Metadata.FromModel(model.Metadata)
}

type GetRequestsResponse struct {
	Requests  []RequestResponse `json:"requests"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetRequestsResponse) FromModels(models []model.Request, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Requests = make([]RequestResponse, len(models))
	for i, mod := range models {
		r.Requests[i].FromModel(mod)
	}
}
