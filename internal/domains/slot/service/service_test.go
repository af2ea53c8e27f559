package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"unibook/config"
	otelMocks "unibook/infras/otel/mocks"
	postgresMocks "unibook/infras/postgres/mocks"
	bookingMocks "unibook/internal/domains/booking/mocks"
	"unibook/internal/domains/slot/mocks"
	"unibook/internal/domains/slot/model"
	"unibook/internal/domains/slot/model/dto"
	"unibook/internal/domains/slot/service"
	templateMocks "unibook/internal/domains/template/mocks"
	templateModel "unibook/internal/domains/template/model"
	"unibook/shared/constant"
	"unibook/shared/failure"
	gModel "unibook/shared/model"
	"unibook/shared/timezone"
)

type stubCache struct{}

func (stubCache) Save(context.Context, string, any, int) error { return nil }
func (stubCache) Get(context.Context, string, any) error       { return errors.New("cache miss") }
func (stubCache) Delete(context.Context, string) error         { return nil }
func (stubCache) Clear(context.Context, string) error          { return nil }

const (
	ownerID    = "11111111-1111-1111-1111-111111111111"
	otherID    = "22222222-2222-2222-2222-222222222222"
	slotID     = "44444444-4444-4444-4444-444444444444"
	templateID = "55555555-5555-5555-5555-555555555555"
)

func contextWithUser(userID string) context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserID, userID)
}

func futureDate(days int) time.Time {
	return timezone.Now().AddDate(0, 0, days).Truncate(24 * time.Hour)
}

func newService(t *testing.T) (
	service.Slot,
	*mocks.MockSlot,
	*templateMocks.MockTemplate,
	*bookingMocks.MockBooking,
	*postgresMocks.MockTxer,
) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockRepo := mocks.NewMockSlot(ctrl)
	mockTemplateRepo := templateMocks.NewMockTemplate(ctrl)
	mockBookingRepo := bookingMocks.NewMockBooking(ctrl)
	mockTxer := postgresMocks.NewMockTxer(ctrl)

	svc := service.New(
		mockRepo,
		mockTemplateRepo,
		mockBookingRepo,
		mockTxer,
		&config.Config{},
		stubCache{},
		otelMocks.NewOtel(),
	)

	return svc, mockRepo, mockTemplateRepo, mockBookingRepo, mockTxer
}

func passthroughTx(mockTxer *postgresMocks.MockTxer) {
	mockTxer.EXPECT().
		WithinTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, *sqlx.Tx) error) error {
			return fn(ctx, nil)
		})
}

func instanceAt(date time.Time, startHour, endHour int) model.Slot {
	return model.Slot{
		ID:       slotID,
		SlotDate: date,
		StartAt:  time.Date(date.Year(), date.Month(), date.Day(), startHour, 0, 0, 0, date.Location()),
		EndAt:    time.Date(date.Year(), date.Month(), date.Day(), endHour, 0, 0, 0, date.Location()),
		Metadata: gModel.Metadata{CreatedBy: ownerID},
	}
}

func TestSlotService_CreateBatch(t *testing.T) {
	date := futureDate(7)
	dateStr := timezone.Format(date, constant.DateOnlyFormat)

	t.Run("creates non-overlapping ranges", func(t *testing.T) {
		svc, mockRepo, _, _, mockTxer := newService(t)
		passthroughTx(mockTxer)

		mockRepo.EXPECT().
			LockOwnerDateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return(nil)

		mockRepo.EXPECT().
			GetOwnedOnDateForUpdateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return(nil, nil)

		mockRepo.EXPECT().
			InsertBulkTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		res, err := svc.CreateBatch(contextWithUser(ownerID), dto.CreateSlotBatchRequest{
			Date: dateStr,
			Ranges: []dto.SlotRangeRequest{
				{StartTime: "09:00", EndTime: "10:00"},
				{StartTime: "10:00", EndTime: "11:00"},
			},
		})

		require.NoError(t, err)
		assert.Len(t, res.Slots, 2)
	})

	t.Run("takes the owner date lock before reading an empty date", func(t *testing.T) {
		svc, mockRepo, _, _, mockTxer := newService(t)
		passthroughTx(mockTxer)

		parsed, err := timezone.Parse(constant.DateOnlyFormat, dateStr)
		require.NoError(t, err)

		lock := mockRepo.EXPECT().
			LockOwnerDateTx(gomock.Any(), gomock.Any(), ownerID, parsed).
			Return(nil)

		read := mockRepo.EXPECT().
			GetOwnedOnDateForUpdateTx(gomock.Any(), gomock.Any(), ownerID, parsed).
			Return(nil, nil)

		insert := mockRepo.EXPECT().
			InsertBulkTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		gomock.InOrder(lock, read, insert)

		_, err = svc.CreateBatch(contextWithUser(ownerID), dto.CreateSlotBatchRequest{
			Date: dateStr,
			Ranges: []dto.SlotRangeRequest{
				{StartTime: "09:00", EndTime: "10:00"},
			},
		})

		assert.NoError(t, err)
	})

	t.Run("rejects the whole batch when two ranges overlap", func(t *testing.T) {
		svc, mockRepo, _, _, mockTxer := newService(t)
		passthroughTx(mockTxer)

		mockRepo.EXPECT().
			LockOwnerDateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return(nil)

		mockRepo.EXPECT().
			GetOwnedOnDateForUpdateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return(nil, nil)

		_, err := svc.CreateBatch(contextWithUser(ownerID), dto.CreateSlotBatchRequest{
			Date: dateStr,
			Ranges: []dto.SlotRangeRequest{
				{StartTime: "09:00", EndTime: "10:30"},
				{StartTime: "10:00", EndTime: "11:00"},
			},
		})

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusConflict))
	})

	t.Run("rejects the batch when a range overlaps an existing instance", func(t *testing.T) {
		svc, mockRepo, _, _, mockTxer := newService(t)
		passthroughTx(mockTxer)

		mockRepo.EXPECT().
			LockOwnerDateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return(nil)

		mockRepo.EXPECT().
			GetOwnedOnDateForUpdateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return([]model.Slot{instanceAt(date, 9, 11)}, nil)

		_, err := svc.CreateBatch(contextWithUser(ownerID), dto.CreateSlotBatchRequest{
			Date: dateStr,
			Ranges: []dto.SlotRangeRequest{
				{StartTime: "10:00", EndTime: "12:00"},
			},
		})

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusConflict))
	})

	t.Run("adjacent ranges do not overlap", func(t *testing.T) {
		svc, mockRepo, _, _, mockTxer := newService(t)
		passthroughTx(mockTxer)

		mockRepo.EXPECT().
			LockOwnerDateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return(nil)

		mockRepo.EXPECT().
			GetOwnedOnDateForUpdateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return([]model.Slot{instanceAt(date, 9, 10)}, nil)

		mockRepo.EXPECT().
			InsertBulkTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		_, err := svc.CreateBatch(contextWithUser(ownerID), dto.CreateSlotBatchRequest{
			Date: dateStr,
			Ranges: []dto.SlotRangeRequest{
				{StartTime: "10:00", EndTime: "11:00"},
			},
		})

		assert.NoError(t, err)
	})

	t.Run("rejects a past date", func(t *testing.T) {
		svc, _, _, _, _ := newService(t)

		_, err := svc.CreateBatch(contextWithUser(ownerID), dto.CreateSlotBatchRequest{
			Date: "2020-01-01",
			Ranges: []dto.SlotRangeRequest{
				{StartTime: "09:00", EndTime: "10:00"},
			},
		})

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusBadRequest))
	})

	t.Run("rejects a template reference owned by someone else", func(t *testing.T) {
		svc, _, mockTemplateRepo, _, _ := newService(t)

		mockTemplateRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(templateModel.Template{ID: templateID, OwnerID: otherID}, nil)

		_, err := svc.CreateBatch(contextWithUser(ownerID), dto.CreateSlotBatchRequest{
			Date: dateStr,
			Ranges: []dto.SlotRangeRequest{
				{StartTime: "09:00", EndTime: "10:00", TemplateID: templateID},
			},
		})

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusForbidden))
	})
}

func TestSlotService_Materialize(t *testing.T) {
	from := futureDate(7)
	to := from.AddDate(0, 0, 6)

	fromStr := timezone.Format(from, constant.DateOnlyFormat)
	toStr := timezone.Format(to, constant.DateOnlyFormat)

	weeklyTemplate := templateModel.Template{
		ID:        templateID,
		OwnerID:   ownerID,
		Weekday:   int(from.Weekday()),
		StartTime: "09:00",
		EndTime:   "10:00",
		Capacity:  2,
	}

	t.Run("creates one instance for the matching weekday", func(t *testing.T) {
		svc, mockRepo, mockTemplateRepo, _, mockTxer := newService(t)
		passthroughTx(mockTxer)

		mockTemplateRepo.EXPECT().
			GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]templateModel.Template{weeklyTemplate}, nil)

		mockRepo.EXPECT().
			LockOwnerDateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return(nil)

		mockRepo.EXPECT().
			GetOwnedOnDateForUpdateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return(nil, nil)

		mockRepo.EXPECT().
			InsertBulkTx(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, slots []model.Slot) error {
				require.Len(t, slots, 1)
				assert.True(t, slots[0].TemplateID.Valid)
				assert.Equal(t, templateID, slots[0].TemplateID.String)
				assert.Empty(t, slots[0].CreatedBy)

				return nil
			})

		res, err := svc.Materialize(contextWithUser(ownerID), dto.MaterializeRequest{From: fromStr, To: toStr})

		require.NoError(t, err)
		assert.Equal(t, 1, res.Created)
		assert.Equal(t, 0, res.Skipped)
	})

	t.Run("skips dates already covered by an overlapping instance", func(t *testing.T) {
		svc, mockRepo, mockTemplateRepo, _, mockTxer := newService(t)
		passthroughTx(mockTxer)

		mockTemplateRepo.EXPECT().
			GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]templateModel.Template{weeklyTemplate}, nil)

		mockRepo.EXPECT().
			LockOwnerDateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return(nil)

		mockRepo.EXPECT().
			GetOwnedOnDateForUpdateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return([]model.Slot{instanceAt(from, 9, 10)}, nil)

		res, err := svc.Materialize(contextWithUser(ownerID), dto.MaterializeRequest{From: fromStr, To: toStr})

		require.NoError(t, err)
		assert.Equal(t, 0, res.Created)
		assert.Equal(t, 1, res.Skipped)
	})

	t.Run("runs one transaction per matching date", func(t *testing.T) {
		svc, mockRepo, mockTemplateRepo, _, mockTxer := newService(t)

		// from..from+7 contains the template's weekday twice.
		wideTo := from.AddDate(0, 0, 7)
		wideToStr := timezone.Format(wideTo, constant.DateOnlyFormat)

		mockTemplateRepo.EXPECT().
			GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]templateModel.Template{weeklyTemplate}, nil)

		passthroughTx(mockTxer)
		passthroughTx(mockTxer)

		mockRepo.EXPECT().
			LockOwnerDateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return(nil).
			Times(2)

		mockRepo.EXPECT().
			GetOwnedOnDateForUpdateTx(gomock.Any(), gomock.Any(), ownerID, gomock.Any()).
			Return(nil, nil).
			Times(2)

		mockRepo.EXPECT().
			InsertBulkTx(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, slots []model.Slot) error {
				assert.Len(t, slots, 1)

				return nil
			}).
			Times(2)

		res, err := svc.Materialize(contextWithUser(ownerID), dto.MaterializeRequest{From: fromStr, To: wideToStr})

		require.NoError(t, err)
		assert.Equal(t, 2, res.Created)
		assert.Equal(t, 0, res.Skipped)
	})

	t.Run("fails when the provider has no templates", func(t *testing.T) {
		svc, _, mockTemplateRepo, _, _ := newService(t)

		mockTemplateRepo.EXPECT().
			GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil)

		_, err := svc.Materialize(contextWithUser(ownerID), dto.MaterializeRequest{From: fromStr, To: toStr})

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusBadRequest))
	})

	t.Run("rejects an inverted window", func(t *testing.T) {
		svc, _, _, _, _ := newService(t)

		_, err := svc.Materialize(contextWithUser(ownerID), dto.MaterializeRequest{From: toStr, To: fromStr})

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusBadRequest))
	})
}

func TestSlotService_Delete(t *testing.T) {
	date := futureDate(7)

	t.Run("deletes an unbooked instance", func(t *testing.T) {
		svc, mockRepo, _, mockBookingRepo, mockTxer := newService(t)
		passthroughTx(mockTxer)

		mockRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(instanceAt(date, 9, 10), nil)

		mockBookingRepo.EXPECT().
			CountTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(0, nil)

		mockRepo.EXPECT().
			DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		assert.NoError(t, svc.Delete(contextWithUser(ownerID), slotID))
	})

	t.Run("refuses to delete an instance with confirmed bookings", func(t *testing.T) {
		svc, mockRepo, _, mockBookingRepo, mockTxer := newService(t)
		passthroughTx(mockTxer)

		mockRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(instanceAt(date, 9, 10), nil)

		mockBookingRepo.EXPECT().
			CountTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(1, nil)

		err := svc.Delete(contextWithUser(ownerID), slotID)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusConflict))
	})

	t.Run("forbidden for a non-owner", func(t *testing.T) {
		svc, mockRepo, _, _, mockTxer := newService(t)
		passthroughTx(mockTxer)

		mockRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(instanceAt(date, 9, 10), nil)

		err := svc.Delete(contextWithUser(otherID), slotID)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusForbidden))
	})

	t.Run("not found for an unknown instance", func(t *testing.T) {
		svc, mockRepo, _, _, mockTxer := newService(t)
		passthroughTx(mockTxer)

		mockRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(model.Slot{}, nil)

		err := svc.Delete(contextWithUser(ownerID), slotID)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusNotFound))
	})
}
