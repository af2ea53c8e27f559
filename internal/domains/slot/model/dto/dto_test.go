package dto_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unibook/internal/domains/slot/model/dto"
	"unibook/shared/failure"
)

func TestCreateSlotBatchRequestToModels(t *testing.T) {
	owner := "11111111-1111-1111-1111-111111111111"

	t.Run("resolves ranges onto the requested date", func(t *testing.T) {
		req := dto.CreateSlotBatchRequest{
			Date: "2026-09-07",
			Ranges: []dto.SlotRangeRequest{
				{StartTime: "09:00", EndTime: "10:00", Capacity: 2},
				{StartTime: "10:00", EndTime: "11:30"},
			},
		}

		date, slots, err := req.ToModels(owner)

		require.NoError(t, err)
		require.Len(t, slots, 2)
		assert.Equal(t, date, slots[0].SlotDate)
		assert.Equal(t, 9, slots[0].StartAt.Hour())
		assert.Equal(t, 30, slots[1].EndAt.Minute())
		assert.Equal(t, owner, slots[0].CreatedBy)
		assert.False(t, slots[0].TemplateID.Valid)
		assert.NotEmpty(t, slots[0].ID)
	})

	t.Run("carries the template reference when given", func(t *testing.T) {
		templateID := "55555555-5555-5555-5555-555555555555"
		req := dto.CreateSlotBatchRequest{
			Date: "2026-09-07",
			Ranges: []dto.SlotRangeRequest{
				{StartTime: "09:00", EndTime: "10:00", TemplateID: templateID},
			},
		}

		_, slots, err := req.ToModels(owner)

		require.NoError(t, err)
		require.True(t, slots[0].TemplateID.Valid)
		assert.Equal(t, templateID, slots[0].TemplateID.String)
	})

	invalid := []struct {
		name string
		req  dto.CreateSlotBatchRequest
	}{
		{
			name: "malformed date",
			req: dto.CreateSlotBatchRequest{
				Date:   "07-09-2026",
				Ranges: []dto.SlotRangeRequest{{StartTime: "09:00", EndTime: "10:00"}},
			},
		},
		{
			name: "malformed start time",
			req: dto.CreateSlotBatchRequest{
				Date:   "2026-09-07",
				Ranges: []dto.SlotRangeRequest{{StartTime: "9am", EndTime: "10:00"}},
			},
		},
		{
			name: "inverted range",
			req: dto.CreateSlotBatchRequest{
				Date:   "2026-09-07",
				Ranges: []dto.SlotRangeRequest{{StartTime: "10:00", EndTime: "09:00"}},
			},
		},
		{
			name: "zero length range",
			req: dto.CreateSlotBatchRequest{
				Date:   "2026-09-07",
				Ranges: []dto.SlotRangeRequest{{StartTime: "10:00", EndTime: "10:00"}},
			},
		},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := tc.req.ToModels(owner)

			require.Error(t, err)
			assert.True(t, failure.IsCode(err, http.StatusBadRequest))
		})
	}
}

func TestMaterializeRequestDates(t *testing.T) {
	t.Run("resolves an inclusive window", func(t *testing.T) {
		req := dto.MaterializeRequest{From: "2026-09-07", To: "2026-09-13"}

		from, to, err := req.Dates()

		require.NoError(t, err)
		assert.True(t, from.Before(to))
	})

	t.Run("allows a single day window", func(t *testing.T) {
		req := dto.MaterializeRequest{From: "2026-09-07", To: "2026-09-07"}

		from, to, err := req.Dates()

		require.NoError(t, err)
		assert.Equal(t, from, to)
	})

	t.Run("rejects an inverted window", func(t *testing.T) {
		req := dto.MaterializeRequest{From: "2026-09-13", To: "2026-09-07"}

		_, _, err := req.Dates()

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusBadRequest))
	})

	t.Run("rejects a malformed bound", func(t *testing.T) {
		req := dto.MaterializeRequest{From: "next monday", To: "2026-09-07"}

		_, _, err := req.Dates()

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusBadRequest))
	})
}
