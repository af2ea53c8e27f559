package dto_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unibook/internal/domains/template/model/dto"
	"unibook/shared/failure"
)

func intPtr(v int) *int {
	return &v
}

func TestCreateTemplateRequestToModel(t *testing.T) {
	owner := "11111111-1111-1111-1111-111111111111"

	t.Run("builds a template owned by the caller", func(t *testing.T) {
		req := dto.CreateTemplateRequest{
			Weekday:   intPtr(3),
			StartTime: "09:00",
			EndTime:   "10:30",
			Capacity:  4,
			Notes:     "office hours",
		}

		template, err := req.ToModel(owner)

		require.NoError(t, err)
		assert.Equal(t, owner, template.OwnerID)
		assert.Equal(t, 3, template.Weekday)
		assert.Equal(t, "09:00", template.StartTime)
		assert.Equal(t, "10:30", template.EndTime)
		assert.Equal(t, 4, template.Capacity)
		assert.NotEmpty(t, template.ID)
	})

	invalid := []struct {
		name string
		req  dto.CreateTemplateRequest
	}{
		{
			name: "malformed start time",
			req:  dto.CreateTemplateRequest{Weekday: intPtr(1), StartTime: "9am", EndTime: "10:00"},
		},
		{
			name: "malformed end time",
			req:  dto.CreateTemplateRequest{Weekday: intPtr(1), StartTime: "09:00", EndTime: "25:99"},
		},
		{
			name: "inverted range",
			req:  dto.CreateTemplateRequest{Weekday: intPtr(1), StartTime: "10:00", EndTime: "09:00"},
		},
		{
			name: "zero length range",
			req:  dto.CreateTemplateRequest{Weekday: intPtr(1), StartTime: "10:00", EndTime: "10:00"},
		},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.req.ToModel(owner)

			require.Error(t, err)
			assert.True(t, failure.IsCode(err, http.StatusBadRequest))
		})
	}
}
