package dto

import (
	"unibook/internal/domains/booking/model"
	"unibook/shared"
	gDto "unibook/shared/dto"
)

type BookingResponse struct {
	ID             string `json:"id"`
	SlotInstanceID string `json:"slot_instance_id"`
	RequestID      string `json:"request_id"`
	UserID         string `json:"user_id"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.SlotInstanceID = model.SlotID
	r.RequestID = model.RequestID
	r.UserID = model.UserID
	r.Metadata.FromModel(model.Metadata)
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}
