package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"unibook/config"
	otelMocks "unibook/infras/otel/mocks"
	slotMocks "unibook/internal/domains/slot/mocks"
	"unibook/internal/domains/template/mocks"
	"unibook/internal/domains/template/model"
	"unibook/internal/domains/template/model/dto"
	"unibook/internal/domains/template/service"
	"unibook/shared/constant"
	"unibook/shared/failure"
)

type stubCache struct{}

func (stubCache) Save(context.Context, string, any, int) error { return nil }
func (stubCache) Get(context.Context, string, any) error       { return errors.New("cache miss") }
func (stubCache) Delete(context.Context, string) error         { return nil }
func (stubCache) Clear(context.Context, string) error          { return nil }

const (
	ownerID    = "11111111-1111-1111-1111-111111111111"
	otherID    = "22222222-2222-2222-2222-222222222222"
	templateID = "55555555-5555-5555-5555-555555555555"
)

func contextWithUser(userID string) context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserID, userID)
}

func newService(t *testing.T) (service.Template, *mocks.MockTemplate, *slotMocks.MockSlot) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockRepo := mocks.NewMockTemplate(ctrl)
	mockSlotRepo := slotMocks.NewMockSlot(ctrl)

	svc := service.New(mockRepo, mockSlotRepo, &config.Config{}, stubCache{}, otelMocks.NewOtel())

	return svc, mockRepo, mockSlotRepo
}

func ownedTemplate() model.Template {
	return model.Template{
		ID:        templateID,
		OwnerID:   ownerID,
		Weekday:   1,
		StartTime: "09:00",
		EndTime:   "10:00",
		Capacity:  2,
	}
}

func intPtr(v int) *int {
	return &v
}

func TestTemplateService_Create(t *testing.T) {
	t.Run("creates a template for the acting provider", func(t *testing.T) {
		svc, mockRepo, _ := newService(t)

		mockRepo.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, template model.Template) error {
				assert.Equal(t, ownerID, template.OwnerID)
				assert.Equal(t, "09:00", template.StartTime)

				return nil
			})

		res, err := svc.Create(contextWithUser(ownerID), dto.CreateTemplateRequest{
			Weekday:   intPtr(1),
			StartTime: "09:00",
			EndTime:   "10:00",
			Capacity:  2,
		})

		require.NoError(t, err)
		assert.Equal(t, ownerID, res.OwnerID)
		assert.NotEmpty(t, res.ID)
	})

	t.Run("rejects an inverted time range", func(t *testing.T) {
		svc, _, _ := newService(t)

		_, err := svc.Create(contextWithUser(ownerID), dto.CreateTemplateRequest{
			Weekday:   intPtr(1),
			StartTime: "10:00",
			EndTime:   "09:00",
		})

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusBadRequest))
	})
}

func TestTemplateService_Update(t *testing.T) {
	t.Run("updates an owned template", func(t *testing.T) {
		svc, mockRepo, _ := newService(t)

		mockRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(ownedTemplate(), nil)

		mockRepo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		err := svc.Update(contextWithUser(ownerID), dto.UpdateTemplateRequest{Capacity: intPtr(5)}, templateID)

		assert.NoError(t, err)
	})

	t.Run("forbidden for a non-owner", func(t *testing.T) {
		svc, mockRepo, _ := newService(t)

		mockRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(ownedTemplate(), nil)

		err := svc.Update(contextWithUser(otherID), dto.UpdateTemplateRequest{Capacity: intPtr(5)}, templateID)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusForbidden))
	})

	t.Run("rejects an update that inverts the time range", func(t *testing.T) {
		svc, mockRepo, _ := newService(t)

		mockRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(ownedTemplate(), nil)

		err := svc.Update(contextWithUser(ownerID), dto.UpdateTemplateRequest{StartTime: "11:00"}, templateID)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusBadRequest))
	})

	t.Run("rejects an empty update", func(t *testing.T) {
		svc, _, _ := newService(t)

		err := svc.Update(contextWithUser(ownerID), dto.UpdateTemplateRequest{}, templateID)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusBadRequest))
	})
}

func TestTemplateService_Delete(t *testing.T) {
	t.Run("deletes an unreferenced template", func(t *testing.T) {
		svc, mockRepo, mockSlotRepo := newService(t)

		mockRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(ownedTemplate(), nil)

		mockSlotRepo.EXPECT().
			Exist(gomock.Any(), gomock.Any()).
			Return(false, nil)

		mockRepo.EXPECT().
			Delete(gomock.Any(), gomock.Any()).
			Return(nil)

		assert.NoError(t, svc.Delete(contextWithUser(ownerID), templateID))
	})

	t.Run("refuses while materialized instances reference it", func(t *testing.T) {
		svc, mockRepo, mockSlotRepo := newService(t)

		mockRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(ownedTemplate(), nil)

		mockSlotRepo.EXPECT().
			Exist(gomock.Any(), gomock.Any()).
			Return(true, nil)

		err := svc.Delete(contextWithUser(ownerID), templateID)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusConflict))
	})

	t.Run("forbidden for a non-owner", func(t *testing.T) {
		svc, mockRepo, _ := newService(t)

		mockRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(ownedTemplate(), nil)

		err := svc.Delete(contextWithUser(otherID), templateID)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusForbidden))
	})

	t.Run("not found for an unknown template", func(t *testing.T) {
		svc, mockRepo, _ := newService(t)

		mockRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Template{}, nil)

		err := svc.Delete(contextWithUser(ownerID), templateID)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusNotFound))
	})
}
