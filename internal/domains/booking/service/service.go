package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"unibook/config"
	"unibook/infras/otel"
	"unibook/infras/postgres"
	"unibook/internal/domains/booking/model"
	"unibook/internal/domains/booking/model/dto"
	"unibook/internal/domains/booking/repository"
	requestModel "unibook/internal/domains/request/model"
	requestRepo "unibook/internal/domains/request/repository"
	slotModel "unibook/internal/domains/slot/model"
	slotRepo "unibook/internal/domains/slot/repository"
	templateModel "unibook/internal/domains/template/model"
	templateRepo "unibook/internal/domains/template/repository"
	userModel "unibook/internal/domains/user/model"
	userRepo "unibook/internal/domains/user/repository"
	"unibook/internal/notifier"
	"unibook/shared"
	"unibook/shared/cache"
	"unibook/shared/constant"
	gDto "unibook/shared/dto"
	"unibook/shared/failure"
	gModel "unibook/shared/model"
	"unibook/shared/timezone"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"
	cacheCountBooking  = "booking:count"
)

type Booking interface {
	Accept(ctx context.Context, requestID string) (dto.BookingResponse, error)
	Reject(ctx context.Context, requestID string) error
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
}

type serviceImpl struct {
	repo         repository.Booking
	requestRepo  requestRepo.Request
	slotRepo     slotRepo.Slot
	templateRepo templateRepo.Template
	userRepo     userRepo.User
	txer         postgres.Txer
	notifier     notifier.Notifier
	cfg          *config.Config
	cache        cache.RedisCache
	otel         otel.Otel
}

func New(
	repo repository.Booking,
	requestRepo requestRepo.Request,
	slotRepo slotRepo.Slot,
	templateRepo templateRepo.Template,
	userRepo userRepo.User,
	txer postgres.Txer,
	notifier notifier.Notifier,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:         repo,
		requestRepo:  requestRepo,
		slotRepo:     slotRepo,
		templateRepo: templateRepo,
		userRepo:     userRepo,
		txer:         txer,
		notifier:     notifier,
		cfg:          cfg,
		cache:        cache,
		otel:         otel,
	}
}

// lockedRequest carries everything the accept and reject transitions resolve
// under row locks: the pending request, its instance, the optional template
// and the owner authorized to act.
type lockedRequest struct {
	request  requestModel.Request
	slot     slotModel.Slot
	template templateModel.Template
	owner    string
}

// Accept transitions a pending request to accepted and creates the confirmed
// booking, all in one transaction. Rows are locked in a fixed order (request,
// then instance, then template) so concurrent accepts against overlapping
// instances serialize instead of deadlocking, and the booking count is read
// inside the same transaction so capacity can never be oversubscribed.
func (s *serviceImpl) Accept(ctx context.Context, requestID string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Accept")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	var booking model.Booking

	err = s.txer.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		locked, err := s.lockRequestChainTx(ctx, tx, requestID, user)
		if err != nil {
			return err
		}

		capacity := effectiveCapacity(locked.slot, locked.template)
		if capacity > 0 {
			booked, err := s.repo.CountTx(ctx, tx, shared.FilterByID(locked.slot.ID, model.FieldSlotID, model.TableName))
			if err != nil {
				return fmt.Errorf("failed to count bookings: %w", err)
			}

			if booked >= capacity {
				return failure.Conflict("capacity full") // nolint:wrapcheck
			}
		}

		requesterExists, err := s.userRepo.ExistTx(ctx, tx, shared.FilterByID(locked.request.RequesterID, userModel.FieldID, userModel.TableName))
		if err != nil {
			return fmt.Errorf("failed to check requester: %w", err)
		}

		if !requesterExists {
			return failure.BadRequestFromString("requester no longer exists") // nolint:wrapcheck
		}

		booking = model.Booking{
			ID:        uuid.NewString(),
			SlotID:    locked.slot.ID,
			RequestID: locked.request.ID,
			UserID:    locked.request.RequesterID,
			Metadata: gModel.Metadata{
				CreatedAt:  timezone.Now(),
				ModifiedAt: timezone.Now(),
				CreatedBy:  user,
				ModifiedBy: user,
			},
		}

		if err = s.repo.InsertTx(ctx, tx, booking); err != nil {
			return err //nolint:wrapcheck
		}

		return s.requestRepo.UpdateTx(ctx, tx, map[string]any{
			requestModel.FieldStatus: requestModel.StatusAccepted,
			constant.FieldModifiedAt: timezone.Now(),
			constant.FieldModifiedBy: user,
		}, shared.FilterByID(requestID, requestModel.FieldID, requestModel.TableName)) //nolint:wrapcheck
	})
	if err != nil {
		log.Error().Err(err).Str("requestID", requestID).Msg("failed to accept booking request")

		return res, err
	}

	go func() {
		c := context.WithoutCancel(ctx)

		s.notifier.RequestAccepted(c, notifier.RequestEvent{
			RequestID:      booking.RequestID,
			SlotInstanceID: booking.SlotID,
			RequesterID:    booking.UserID,
			OwnerID:        user,
			BookingID:      booking.ID,
		})

		s.invalidateAfterTransition(c, booking.RequestID)
	}()

	res.FromModel(booking)

	return res, nil
}

// Reject transitions a pending request to rejected. There is no capacity
// concern, but the same lock discipline as Accept keeps the two transitions
// consistent with each other.
func (s *serviceImpl) Reject(ctx context.Context, requestID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Reject")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	var rejected requestModel.Request

	err = s.txer.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		locked, err := s.lockRequestChainTx(ctx, tx, requestID, user)
		if err != nil {
			return err
		}

		rejected = locked.request

		return s.requestRepo.UpdateTx(ctx, tx, map[string]any{
			requestModel.FieldStatus: requestModel.StatusRejected,
			constant.FieldModifiedAt: timezone.Now(),
			constant.FieldModifiedBy: user,
		}, shared.FilterByID(requestID, requestModel.FieldID, requestModel.TableName)) //nolint:wrapcheck
	})
	if err != nil {
		log.Error().Err(err).Str("requestID", requestID).Msg("failed to reject booking request")

		return err
	}

	go func() {
		c := context.WithoutCancel(ctx)

		s.notifier.RequestRejected(c, notifier.RequestEvent{
			RequestID:      rejected.ID,
			SlotInstanceID: rejected.SlotID,
			RequesterID:    rejected.RequesterID,
			OwnerID:        user,
		})

		s.invalidateAfterTransition(c, rejected.ID)
	}()

	return nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

// lockRequestChainTx acquires exclusive locks in the fixed order request row,
// slot instance row, template row, then resolves and authorizes the acting
// owner. Every transition out of pending goes through here.
func (s *serviceImpl) lockRequestChainTx(ctx context.Context, tx *sqlx.Tx, requestID, user string) (lockedRequest, error) {
	var locked lockedRequest

	request, err := s.requestRepo.GetForUpdateTx(ctx, tx, shared.FilterByID(requestID, requestModel.FieldID, requestModel.TableName))
	if err != nil {
		return locked, fmt.Errorf("failed to get booking request: %w", err)
	}

	if request.ID == constant.Empty {
		return locked, failure.NotFound("booking request not found") // nolint:wrapcheck
	}

	if request.Status != requestModel.StatusPending {
		return locked, failure.Conflict("request is not pending") // nolint:wrapcheck
	}

	slot, err := s.slotRepo.GetForUpdateTx(ctx, tx, shared.FilterByID(request.SlotID, slotModel.FieldID, slotModel.TableName))
	if err != nil {
		return locked, fmt.Errorf("failed to get slot instance: %w", err)
	}

	if slot.ID == constant.Empty {
		log.Error().Str("requestID", request.ID).Str("slotID", request.SlotID).Msg("booking request references missing slot instance")

		return locked, failure.InternalError(fmt.Errorf("booking request %s references missing slot instance", request.ID)) //nolint:wrapcheck
	}

	var template templateModel.Template

	if slot.TemplateID.Valid {
		template, err = s.templateRepo.GetForUpdateTx(ctx, tx, shared.FilterByID(slot.TemplateID.String, templateModel.FieldID, templateModel.TableName))
		if err != nil {
			return locked, fmt.Errorf("failed to get template: %w", err)
		}

		if template.ID == constant.Empty {
			log.Error().Str("slotID", slot.ID).Str("templateID", slot.TemplateID.String).Msg("slot instance references missing template")

			return locked, failure.InternalError(fmt.Errorf("slot instance %s references missing template", slot.ID)) //nolint:wrapcheck
		}
	}

	owner := slot.CreatedBy
	if owner == constant.Empty {
		owner = template.OwnerID
	}

	if owner == constant.Empty {
		log.Error().Str("slotID", slot.ID).Msg("slot instance has neither creator nor template owner")

		return locked, failure.InternalError(fmt.Errorf("slot instance %s has no resolvable owner", slot.ID)) //nolint:wrapcheck
	}

	if owner != user {
		return locked, failure.Forbidden("only the slot owner can act on this request") // nolint:wrapcheck
	}

	locked.request = request
	locked.slot = slot
	locked.template = template
	locked.owner = owner

	return locked, nil
}

// effectiveCapacity resolves the precedence chain: the instance's own
// capacity wins when positive, then the template's, and 0 means unlimited.
func effectiveCapacity(slot slotModel.Slot, template templateModel.Template) int {
	if slot.Capacity > 0 {
		return slot.Capacity
	}

	if template.Capacity > 0 {
		return template.Capacity
	}

	return 0
}

func (s *serviceImpl) invalidateAfterTransition(ctx context.Context, requestID string) {
	if err := s.cache.Delete(ctx, shared.BuildCacheKey("request:get", requestID)); err != nil {
		log.Error().Err(err).Msg("failed to delete booking request from cache")
	}

	shared.InvalidateCaches(ctx, s.cache, "request:gets")
	shared.InvalidateCaches(ctx, s.cache, "request:count")
	shared.InvalidateCaches(ctx, s.cache, cacheGetAllBooking)
	shared.InvalidateCaches(ctx, s.cache, cacheCountBooking)
}
