package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"unibook/config"
	"unibook/infras/otel"
	"unibook/infras/postgres"
	"unibook/internal/domains/request/model"
	"unibook/internal/domains/request/model/dto"
	"unibook/internal/domains/request/repository"
	slotModel "unibook/internal/domains/slot/model"
	slotRepo "unibook/internal/domains/slot/repository"
	templateModel "unibook/internal/domains/template/model"
	templateRepo "unibook/internal/domains/template/repository"
	"unibook/internal/notifier"
	"unibook/shared"
	"unibook/shared/cache"
	"unibook/shared/constant"
	gDto "unibook/shared/dto"
	"unibook/shared/failure"
	"unibook/shared/timezone"
)

const (
	cacheGetRequest    = "request:get"
	cacheGetAllRequest = "request:gets"
	cacheCountRequest  = "request:count"
)

type Request interface {
	Submit(ctx context.Context, req dto.SubmitRequestRequest) (dto.RequestResponse, error)
	Cancel(ctx context.Context, id string) error
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetRequestsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.RequestResponse, error)
}

type serviceImpl struct {
	repo         repository.Request
	slotRepo     slotRepo.Slot
	templateRepo templateRepo.Template
	txer         postgres.Txer
	notifier     notifier.Notifier
	cfg          *config.Config
	cache        cache.RedisCache
	otel         otel.Otel
}

func New(
	repo repository.Request,
	slotRepo slotRepo.Slot,
	templateRepo templateRepo.Template,
	txer postgres.Txer,
	notifier notifier.Notifier,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Request {
	return &serviceImpl{
		repo:         repo,
		slotRepo:     slotRepo,
		templateRepo: templateRepo,
		txer:         txer,
		notifier:     notifier,
		cfg:          cfg,
		cache:        cache,
		otel:         otel,
	}
}

// Submit appends a pending request from the acting consumer against a slot
// instance. The resolved owner of the instance cannot request their own slot,
// and a consumer may hold at most one request per instance; the store's
// unique constraint backs the duplicate check against concurrent submits.
func (s *serviceImpl) Submit(ctx context.Context, req dto.SubmitRequestRequest) (res dto.RequestResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Submit")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	slot, err := s.slotRepo.Get(ctx, shared.FilterByID(req.SlotInstanceID, slotModel.FieldID, slotModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get slot instance")

		return res, fmt.Errorf("failed to get slot instance: %w", err)
	}

	if slot.ID == constant.Empty {
		return res, failure.NotFound("slot instance not found") // nolint:wrapcheck
	}

	owner, err := s.resolveOwner(ctx, slot)
	if err != nil {
		return res, err
	}

	if owner == user {
		return res, failure.Forbidden("providers cannot request their own slots") // nolint:wrapcheck
	}

	duplicate, err := s.repo.Exist(ctx, gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldSlotID,
				Operator: gDto.FilterOperatorEq,
				Value:    req.SlotInstanceID,
				Table:    model.TableName,
			},
			gDto.Filter{
				Field:    model.FieldRequesterID,
				Operator: gDto.FilterOperatorEq,
				Value:    user,
				Table:    model.TableName,
			},
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to check for duplicate request")

		return res, fmt.Errorf("failed to check for duplicate request: %w", err)
	}

	if duplicate {
		return res, failure.Conflict("already requested this slot") // nolint:wrapcheck
	}

	request := req.ToModel(user)

	if err = s.repo.Insert(ctx, request); err != nil {
		if postgres.IsUniqueViolation(err) {
			return res, failure.Conflict("already requested this slot") // nolint:wrapcheck
		}

		log.Error().Err(err).Msg("failed to create booking request")

		return res, fmt.Errorf("failed to create booking request: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		s.notifier.RequestSubmitted(c, notifier.RequestEvent{
			RequestID:      request.ID,
			SlotInstanceID: request.SlotID,
			RequesterID:    request.RequesterID,
			OwnerID:        owner,
		})

		shared.InvalidateCaches(c, s.cache, cacheGetAllRequest)
		shared.InvalidateCaches(c, s.cache, cacheCountRequest)
	}()

	res.FromModel(request)

	return res, nil
}

// Cancel withdraws the acting consumer's own pending request. Terminal
// requests stay as they are; cancellation is a distinct terminal state, not a
// rejection.
func (s *serviceImpl) Cancel(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Cancel")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	var request model.Request

	err = s.txer.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		request, err = s.repo.GetForUpdateTx(ctx, tx, filter)
		if err != nil {
			return fmt.Errorf("failed to get booking request: %w", err)
		}

		if request.ID == constant.Empty {
			return failure.NotFound("booking request not found") // nolint:wrapcheck
		}

		if request.RequesterID != user {
			return failure.Forbidden("only the requester can cancel this request") // nolint:wrapcheck
		}

		if request.Status != model.StatusPending {
			return failure.Conflict("request is not pending") // nolint:wrapcheck
		}

		return s.repo.UpdateTx(ctx, tx, map[string]any{
			model.FieldStatus:        model.StatusCancelled,
			constant.FieldModifiedAt: timezone.Now(),
			constant.FieldModifiedBy: user,
		}, filter) //nolint:wrapcheck
	})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to cancel booking request")

		return err
	}

	go func() {
		c := context.WithoutCancel(ctx)

		s.notifier.RequestCancelled(c, notifier.RequestEvent{
			RequestID:      request.ID,
			SlotInstanceID: request.SlotID,
			RequesterID:    request.RequesterID,
		})

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetRequest, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete booking request from cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllRequest)
		shared.InvalidateCaches(c, s.cache, cacheCountRequest)
	}()

	return nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetRequestsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllRequest, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking requests")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count booking requests")

		return res, fmt.Errorf("failed to count booking requests: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking requests")

		return res, fmt.Errorf("failed to get booking requests: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking requests to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountRequest, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking request count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count booking requests")

		return res, fmt.Errorf("failed to count booking requests: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking request count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.RequestResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetRequest, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking request")

		return res, nil
	}

	request, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking request")

		return res, fmt.Errorf("failed to get booking request: %w", err)
	}

	if request.ID == constant.Empty {
		return res, failure.NotFound("booking request not found") // nolint:wrapcheck
	}

	res.FromModel(request)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking request to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) resolveOwner(ctx context.Context, slot slotModel.Slot) (string, error) {
	if slot.CreatedBy != constant.Empty {
		return slot.CreatedBy, nil
	}

	if !slot.TemplateID.Valid {
		log.Error().Str("slotID", slot.ID).Msg("slot instance has neither creator nor template")

		return constant.Empty, failure.InternalError(fmt.Errorf("slot instance %s has no resolvable owner", slot.ID)) //nolint:wrapcheck
	}

	template, err := s.templateRepo.Get(ctx, shared.FilterByID(slot.TemplateID.String, templateModel.FieldID, templateModel.TableName))
	if err != nil {
		return constant.Empty, fmt.Errorf("failed to get template: %w", err)
	}

	if template.ID == constant.Empty {
		log.Error().Str("slotID", slot.ID).Str("templateID", slot.TemplateID.String).Msg("slot instance references missing template")

		return constant.Empty, failure.InternalError(fmt.Errorf("slot instance %s references missing template", slot.ID)) //nolint:wrapcheck
	}

	return template.OwnerID, nil
}
