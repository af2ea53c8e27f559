package service_test

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"unibook/config"
	otelMocks "unibook/infras/otel/mocks"
	postgresMocks "unibook/infras/postgres/mocks"
	"unibook/internal/domains/request/mocks"
	"unibook/internal/domains/request/model"
	"unibook/internal/domains/request/model/dto"
	"unibook/internal/domains/request/service"
	slotMocks "unibook/internal/domains/slot/mocks"
	slotModel "unibook/internal/domains/slot/model"
	templateMocks "unibook/internal/domains/template/mocks"
	templateModel "unibook/internal/domains/template/model"
	"unibook/internal/notifier"
	"unibook/shared/constant"
	"unibook/shared/failure"
	gModel "unibook/shared/model"
)

type stubCache struct{}

func (stubCache) Save(context.Context, string, any, int) error { return nil }
func (stubCache) Get(context.Context, string, any) error       { return errors.New("cache miss") }
func (stubCache) Delete(context.Context, string) error         { return nil }
func (stubCache) Clear(context.Context, string) error          { return nil }

type stubNotifier struct{}

func (stubNotifier) RequestSubmitted(context.Context, notifier.RequestEvent) {}
func (stubNotifier) RequestAccepted(context.Context, notifier.RequestEvent)  {}
func (stubNotifier) RequestRejected(context.Context, notifier.RequestEvent)  {}
func (stubNotifier) RequestCancelled(context.Context, notifier.RequestEvent) {}

const (
	ownerID     = "11111111-1111-1111-1111-111111111111"
	requesterID = "22222222-2222-2222-2222-222222222222"
	requestID   = "33333333-3333-3333-3333-333333333333"
	slotID      = "44444444-4444-4444-4444-444444444444"
	templateID  = "55555555-5555-5555-5555-555555555555"
)

func contextWithUser(userID string) context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserID, userID)
}

func newService(t *testing.T) (
	service.Request,
	*mocks.MockRequest,
	*slotMocks.MockSlot,
	*templateMocks.MockTemplate,
	*postgresMocks.MockTxer,
) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockRepo := mocks.NewMockRequest(ctrl)
	mockSlotRepo := slotMocks.NewMockSlot(ctrl)
	mockTemplateRepo := templateMocks.NewMockTemplate(ctrl)
	mockTxer := postgresMocks.NewMockTxer(ctrl)

	svc := service.New(
		mockRepo,
		mockSlotRepo,
		mockTemplateRepo,
		mockTxer,
		stubNotifier{},
		&config.Config{},
		stubCache{},
		otelMocks.NewOtel(),
	)

	return svc, mockRepo, mockSlotRepo, mockTemplateRepo, mockTxer
}

func adHocSlot() slotModel.Slot {
	return slotModel.Slot{
		ID:       slotID,
		Metadata: gModel.Metadata{CreatedBy: ownerID},
	}
}

func materializedSlot() slotModel.Slot {
	return slotModel.Slot{
		ID:         slotID,
		TemplateID: sql.NullString{String: templateID, Valid: true},
	}
}

func TestRequestService_Submit(t *testing.T) {
	submitReq := dto.SubmitRequestRequest{SlotInstanceID: slotID, Message: "hello"}

	t.Run("submits a pending request", func(t *testing.T) {
		svc, mockRepo, mockSlotRepo, _, _ := newService(t)

		mockSlotRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(adHocSlot(), nil)

		mockRepo.EXPECT().
			Exist(gomock.Any(), gomock.Any()).
			Return(false, nil)

		mockRepo.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, request model.Request) error {
				assert.Equal(t, model.StatusPending, request.Status)
				assert.Equal(t, requesterID, request.RequesterID)

				return nil
			})

		res, err := svc.Submit(contextWithUser(requesterID), submitReq)

		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, res.Status)
		assert.Equal(t, slotID, res.SlotInstanceID)
	})

	t.Run("resolves ownership through the template", func(t *testing.T) {
		svc, mockRepo, mockSlotRepo, mockTemplateRepo, _ := newService(t)

		mockSlotRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(materializedSlot(), nil)

		mockTemplateRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(templateModel.Template{ID: templateID, OwnerID: ownerID}, nil)

		mockRepo.EXPECT().
			Exist(gomock.Any(), gomock.Any()).
			Return(false, nil)

		mockRepo.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			Return(nil)

		_, err := svc.Submit(contextWithUser(requesterID), submitReq)

		assert.NoError(t, err)
	})

	t.Run("providers cannot request their own slots", func(t *testing.T) {
		svc, _, mockSlotRepo, _, _ := newService(t)

		mockSlotRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(adHocSlot(), nil)

		_, err := svc.Submit(contextWithUser(ownerID), submitReq)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusForbidden))
	})

	t.Run("conflict on a duplicate request", func(t *testing.T) {
		svc, mockRepo, mockSlotRepo, _, _ := newService(t)

		mockSlotRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(adHocSlot(), nil)

		mockRepo.EXPECT().
			Exist(gomock.Any(), gomock.Any()).
			Return(true, nil)

		_, err := svc.Submit(contextWithUser(requesterID), submitReq)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusConflict))
	})

	t.Run("not found for an unknown slot instance", func(t *testing.T) {
		svc, _, mockSlotRepo, _, _ := newService(t)

		mockSlotRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(slotModel.Slot{}, nil)

		_, err := svc.Submit(contextWithUser(requesterID), submitReq)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusNotFound))
	})
}

func TestRequestService_Cancel(t *testing.T) {
	pending := model.Request{
		ID:          requestID,
		SlotID:      slotID,
		RequesterID: requesterID,
		Status:      model.StatusPending,
	}

	passthroughTx := func(mockTxer *postgresMocks.MockTxer) {
		mockTxer.EXPECT().
			WithinTx(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, fn func(context.Context, *sqlx.Tx) error) error {
				return fn(ctx, nil)
			})
	}

	t.Run("cancels an own pending request", func(t *testing.T) {
		svc, mockRepo, _, _, mockTxer := newService(t)
		passthroughTx(mockTxer)

		mockRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(pending, nil)

		mockRepo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
				assert.Equal(t, model.StatusCancelled, fields[model.FieldStatus])

				return nil
			})

		assert.NoError(t, svc.Cancel(contextWithUser(requesterID), requestID))
	})

	t.Run("forbidden for anyone but the requester", func(t *testing.T) {
		svc, mockRepo, _, _, mockTxer := newService(t)
		passthroughTx(mockTxer)

		mockRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(pending, nil)

		err := svc.Cancel(contextWithUser(ownerID), requestID)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusForbidden))
	})

	t.Run("conflict once the request left pending", func(t *testing.T) {
		svc, mockRepo, _, _, mockTxer := newService(t)
		passthroughTx(mockTxer)

		accepted := pending
		accepted.Status = model.StatusAccepted

		mockRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(accepted, nil)

		err := svc.Cancel(contextWithUser(requesterID), requestID)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusConflict))
	})

	t.Run("not found for an unknown request", func(t *testing.T) {
		svc, mockRepo, _, _, mockTxer := newService(t)
		passthroughTx(mockTxer)

		mockRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(model.Request{}, nil)

		err := svc.Cancel(contextWithUser(requesterID), requestID)

		require.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusNotFound))
	})
}
