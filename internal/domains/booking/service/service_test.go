package service_test

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"unibook/config"
	postgresMocks "unibook/infras/postgres/mocks"
	"unibook/internal/domains/booking/mocks"
	"unibook/internal/domains/booking/model"
	"unibook/internal/domains/booking/service"
	requestMocks "unibook/internal/domains/request/mocks"
	requestModel "unibook/internal/domains/request/model"
	slotMocks "unibook/internal/domains/slot/mocks"
	slotModel "unibook/internal/domains/slot/model"
	templateMocks "unibook/internal/domains/template/mocks"
	templateModel "unibook/internal/domains/template/model"
	userMocks "unibook/internal/domains/user/mocks"
	"unibook/internal/notifier"
	"unibook/shared/constant"
	"unibook/shared/failure"
	gModel "unibook/shared/model"

	otelMocks "unibook/infras/otel/mocks"
)

// stubCache always misses so services hit the repositories; the async
// invalidation goroutines stay harmless.
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

func pendingRequest() requestModel.Request {
	return requestModel.Request{
		ID:          requestID,
		SlotID:      slotID,
		RequesterID: requesterID,
		Status:      requestModel.StatusPending,
	}
}

func adHocSlot(capacity int) slotModel.Slot {
	return slotModel.Slot{
		ID:       slotID,
		Capacity: capacity,
		Metadata: gModel.Metadata{CreatedBy: ownerID},
	}
}

func materializedSlot(capacity int) slotModel.Slot {
	return slotModel.Slot{
		ID:         slotID,
		TemplateID: sql.NullString{String: templateID, Valid: true},
		Capacity:   capacity,
	}
}

func TestBookingService_Accept(t *testing.T) {
	tests := []struct {
		name      string
		actor     string
		setupMock func(
			repo *mocks.MockBooking,
			requestRepo *requestMocks.MockRequest,
			slotRepo *slotMocks.MockSlot,
			templateRepo *templateMocks.MockTemplate,
			userRepo *userMocks.MockUser,
		)
		wantErr  bool
		wantCode int
	}{
		{
			name:  "accepts under capacity on ad-hoc instance",
			actor: ownerID,
			setupMock: func(repo *mocks.MockBooking, requestRepo *requestMocks.MockRequest, slotRepo *slotMocks.MockSlot, templateRepo *templateMocks.MockTemplate, userRepo *userMocks.MockUser) {
				requestRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(pendingRequest(), nil)

				slotRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(adHocSlot(2), nil)

				repo.EXPECT().
					CountTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(1, nil)

				userRepo.EXPECT().
					ExistTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(true, nil)

				repo.EXPECT().
					InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				requestRepo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)
			},
			wantErr: false,
		},
		{
			name:  "accepts with capacity inherited from template",
			actor: ownerID,
			setupMock: func(repo *mocks.MockBooking, requestRepo *requestMocks.MockRequest, slotRepo *slotMocks.MockSlot, templateRepo *templateMocks.MockTemplate, userRepo *userMocks.MockUser) {
				requestRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(pendingRequest(), nil)

				slotRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(materializedSlot(0), nil)

				templateRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(templateModel.Template{ID: templateID, OwnerID: ownerID, Capacity: 3}, nil)

				repo.EXPECT().
					CountTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(2, nil)

				userRepo.EXPECT().
					ExistTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(true, nil)

				repo.EXPECT().
					InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				requestRepo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)
			},
			wantErr: false,
		},
		{
			name:  "accepts without counting when capacity is unlimited",
			actor: ownerID,
			setupMock: func(repo *mocks.MockBooking, requestRepo *requestMocks.MockRequest, slotRepo *slotMocks.MockSlot, templateRepo *templateMocks.MockTemplate, userRepo *userMocks.MockUser) {
				requestRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(pendingRequest(), nil)

				slotRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(adHocSlot(0), nil)

				userRepo.EXPECT().
					ExistTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(true, nil)

				repo.EXPECT().
					InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				requestRepo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)
			},
			wantErr: false,
		},
		{
			name:  "rejects acceptance when capacity is full",
			actor: ownerID,
			setupMock: func(repo *mocks.MockBooking, requestRepo *requestMocks.MockRequest, slotRepo *slotMocks.MockSlot, templateRepo *templateMocks.MockTemplate, userRepo *userMocks.MockUser) {
				requestRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(pendingRequest(), nil)

				slotRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(adHocSlot(2), nil)

				repo.EXPECT().
					CountTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(2, nil)
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
		{
			name:  "request not found",
			actor: ownerID,
			setupMock: func(repo *mocks.MockBooking, requestRepo *requestMocks.MockRequest, slotRepo *slotMocks.MockSlot, templateRepo *templateMocks.MockTemplate, userRepo *userMocks.MockUser) {
				requestRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(requestModel.Request{}, nil)
			},
			wantErr:  true,
			wantCode: http.StatusNotFound,
		},
		{
			name:  "request already accepted",
			actor: ownerID,
			setupMock: func(repo *mocks.MockBooking, requestRepo *requestMocks.MockRequest, slotRepo *slotMocks.MockSlot, templateRepo *templateMocks.MockTemplate, userRepo *userMocks.MockUser) {
				accepted := pendingRequest()
				accepted.Status = requestModel.StatusAccepted

				requestRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(accepted, nil)
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
		{
			name:  "forbidden for a non-owner",
			actor: requesterID,
			setupMock: func(repo *mocks.MockBooking, requestRepo *requestMocks.MockRequest, slotRepo *slotMocks.MockSlot, templateRepo *templateMocks.MockTemplate, userRepo *userMocks.MockUser) {
				requestRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(pendingRequest(), nil)

				slotRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(adHocSlot(2), nil)
			},
			wantErr:  true,
			wantCode: http.StatusForbidden,
		},
		{
			name:  "forbidden when template owner does not match",
			actor: requesterID,
			setupMock: func(repo *mocks.MockBooking, requestRepo *requestMocks.MockRequest, slotRepo *slotMocks.MockSlot, templateRepo *templateMocks.MockTemplate, userRepo *userMocks.MockUser) {
				requestRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(pendingRequest(), nil)

				slotRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(materializedSlot(0), nil)

				templateRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(templateModel.Template{ID: templateID, OwnerID: ownerID}, nil)
			},
			wantErr:  true,
			wantCode: http.StatusForbidden,
		},
		{
			name:  "requester no longer exists",
			actor: ownerID,
			setupMock: func(repo *mocks.MockBooking, requestRepo *requestMocks.MockRequest, slotRepo *slotMocks.MockSlot, templateRepo *templateMocks.MockTemplate, userRepo *userMocks.MockUser) {
				requestRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(pendingRequest(), nil)

				slotRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(adHocSlot(0), nil)

				userRepo.EXPECT().
					ExistTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(false, nil)
			},
			wantErr:  true,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRepo := mocks.NewMockBooking(ctrl)
			mockRequestRepo := requestMocks.NewMockRequest(ctrl)
			mockSlotRepo := slotMocks.NewMockSlot(ctrl)
			mockTemplateRepo := templateMocks.NewMockTemplate(ctrl)
			mockUserRepo := userMocks.NewMockUser(ctrl)
			mockTxer := postgresMocks.NewMockTxer(ctrl)
			mockOtel := otelMocks.NewOtel()

			mockTxer.EXPECT().
				WithinTx(gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, fn func(context.Context, *sqlx.Tx) error) error {
					return fn(ctx, nil)
				})

			tt.setupMock(mockRepo, mockRequestRepo, mockSlotRepo, mockTemplateRepo, mockUserRepo)

			svc := service.New(
				mockRepo,
				mockRequestRepo,
				mockSlotRepo,
				mockTemplateRepo,
				mockUserRepo,
				mockTxer,
				stubNotifier{},
				&config.Config{},
				stubCache{},
				mockOtel,
			)

			res, err := svc.Accept(contextWithUser(tt.actor), requestID)

			if tt.wantErr {
				assert.Error(t, err)

				if tt.wantCode != 0 {
					assert.True(t, failure.IsCode(err, tt.wantCode), "unexpected error code for %v", err)
				}

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, requestID, res.RequestID)
			assert.Equal(t, slotID, res.SlotInstanceID)
			assert.Equal(t, requesterID, res.UserID)
			assert.NotEmpty(t, res.ID)
		})
	}
}

func TestBookingService_Reject(t *testing.T) {
	tests := []struct {
		name      string
		actor     string
		setupMock func(requestRepo *requestMocks.MockRequest, slotRepo *slotMocks.MockSlot)
		wantErr   bool
		wantCode  int
	}{
		{
			name:  "rejects a pending request",
			actor: ownerID,
			setupMock: func(requestRepo *requestMocks.MockRequest, slotRepo *slotMocks.MockSlot) {
				requestRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(pendingRequest(), nil)

				slotRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(adHocSlot(1), nil)

				requestRepo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)
			},
			wantErr: false,
		},
		{
			name:  "forbidden for a non-owner",
			actor: requesterID,
			setupMock: func(requestRepo *requestMocks.MockRequest, slotRepo *slotMocks.MockSlot) {
				requestRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(pendingRequest(), nil)

				slotRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(adHocSlot(1), nil)
			},
			wantErr:  true,
			wantCode: http.StatusForbidden,
		},
		{
			name:  "conflict when the request was already rejected",
			actor: ownerID,
			setupMock: func(requestRepo *requestMocks.MockRequest, slotRepo *slotMocks.MockSlot) {
				rejected := pendingRequest()
				rejected.Status = requestModel.StatusRejected

				requestRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(rejected, nil)
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRepo := mocks.NewMockBooking(ctrl)
			mockRequestRepo := requestMocks.NewMockRequest(ctrl)
			mockSlotRepo := slotMocks.NewMockSlot(ctrl)
			mockTemplateRepo := templateMocks.NewMockTemplate(ctrl)
			mockUserRepo := userMocks.NewMockUser(ctrl)
			mockTxer := postgresMocks.NewMockTxer(ctrl)
			mockOtel := otelMocks.NewOtel()

			mockTxer.EXPECT().
				WithinTx(gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, fn func(context.Context, *sqlx.Tx) error) error {
					return fn(ctx, nil)
				})

			tt.setupMock(mockRequestRepo, mockSlotRepo)

			svc := service.New(
				mockRepo,
				mockRequestRepo,
				mockSlotRepo,
				mockTemplateRepo,
				mockUserRepo,
				mockTxer,
				stubNotifier{},
				&config.Config{},
				stubCache{},
				mockOtel,
			)

			err := svc.Reject(contextWithUser(tt.actor), requestID)

			if tt.wantErr {
				assert.Error(t, err)

				if tt.wantCode != 0 {
					assert.True(t, failure.IsCode(err, tt.wantCode), "unexpected error code for %v", err)
				}

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestBookingService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockBooking(ctrl)
	mockRequestRepo := requestMocks.NewMockRequest(ctrl)
	mockSlotRepo := slotMocks.NewMockSlot(ctrl)
	mockTemplateRepo := templateMocks.NewMockTemplate(ctrl)
	mockUserRepo := userMocks.NewMockUser(ctrl)
	mockTxer := postgresMocks.NewMockTxer(ctrl)
	mockOtel := otelMocks.NewOtel()

	svc := service.New(
		mockRepo,
		mockRequestRepo,
		mockSlotRepo,
		mockTemplateRepo,
		mockUserRepo,
		mockTxer,
		stubNotifier{},
		&config.Config{},
		stubCache{},
		mockOtel,
	)

	t.Run("returns the booking", func(t *testing.T) {
		mockRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Booking{ID: "booking-id", SlotID: slotID, RequestID: requestID, UserID: requesterID}, nil)

		res, err := svc.Get(context.Background(), "booking-id")

		assert.NoError(t, err)
		assert.Equal(t, "booking-id", res.ID)
		assert.Equal(t, slotID, res.SlotInstanceID)
	})

	t.Run("not found for an unknown ID", func(t *testing.T) {
		mockRepo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Booking{}, nil)

		_, err := svc.Get(context.Background(), "missing-id")

		assert.Error(t, err)
		assert.True(t, failure.IsCode(err, http.StatusNotFound))
	})
}
