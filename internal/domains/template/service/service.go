package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"unibook/config"
	"unibook/infras/otel"
	slotModel "unibook/internal/domains/slot/model"
	slotRepo "unibook/internal/domains/slot/repository"
	"unibook/internal/domains/template/model"
	"unibook/internal/domains/template/model/dto"
	"unibook/internal/domains/template/repository"
	"unibook/shared"
	"unibook/shared/cache"
	"unibook/shared/constant"
	gDto "unibook/shared/dto"
	"unibook/shared/failure"
)

const (
	cacheGetTemplate    = "template:get"
	cacheGetAllTemplate = "template:gets"
	cacheCountTemplate  = "template:count"
)

type Template interface {
	Create(ctx context.Context, req dto.CreateTemplateRequest) (dto.TemplateResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetTemplatesResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.TemplateResponse, error)
	Update(ctx context.Context, req dto.UpdateTemplateRequest, id string) error
	Delete(ctx context.Context, id string) error
}

type serviceImpl struct {
	repo     repository.Template
	slotRepo slotRepo.Slot
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
}

func New(repo repository.Template, slotRepo slotRepo.Slot, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Template {
	return &serviceImpl{
		repo:     repo,
		slotRepo: slotRepo,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateTemplateRequest) (res dto.TemplateResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	template, err := req.ToModel(user)
	if err != nil {
		log.Error().Err(err).Msg("failed to parse template request")

		return res, err
	}

	if err = s.repo.Insert(ctx, template); err != nil {
		log.Error().Err(err).Msg("failed to create template")

		return res, fmt.Errorf("failed to create template: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllTemplate)
		shared.InvalidateCaches(c, s.cache, cacheCountTemplate)
	}()

	res.FromModel(template)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetTemplatesResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllTemplate, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for templates")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count templates")

		return res, fmt.Errorf("failed to count templates: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get templates")

		return res, fmt.Errorf("failed to get templates: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save templates to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountTemplate, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for template count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count templates")

		return res, fmt.Errorf("failed to count templates: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save template count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.TemplateResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetTemplate, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for template")

		return res, nil
	}

	template, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get template")

		return res, fmt.Errorf("failed to get template: %w", err)
	}

	if template.ID == constant.Empty {
		return res, failure.NotFound("template not found") // nolint:wrapcheck
	}

	res.FromModel(template)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save template to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateTemplateRequest, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Update")
	defer scope.End()
	defer scope.TraceIfError(err)

	if req == (dto.UpdateTemplateRequest{}) {
		return failure.BadRequestFromString("update request cannot be empty") // nolint:wrapcheck
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	template, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get template")

		return fmt.Errorf("failed to get template: %w", err)
	}

	if template.ID == constant.Empty {
		return failure.NotFound("template not found") // nolint:wrapcheck
	}

	if template.OwnerID != user {
		return failure.Forbidden("only the owning provider can update this template") // nolint:wrapcheck
	}

	if err = validateUpdatedTimes(template, req); err != nil {
		return err
	}

	updatedFields := shared.TransformFields(req, user)
	if err = s.repo.Update(ctx, updatedFields, filter); err != nil {
		log.Error().Err(err).Msg("failed to update template")

		return fmt.Errorf("failed to update template: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetTemplate, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete template from cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllTemplate)
		shared.InvalidateCaches(c, s.cache, cacheCountTemplate)
	}()

	return nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Delete")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	template, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get template")

		return fmt.Errorf("failed to get template: %w", err)
	}

	if template.ID == constant.Empty {
		return failure.NotFound("template not found") // nolint:wrapcheck
	}

	if template.OwnerID != user {
		return failure.Forbidden("only the owning provider can delete this template") // nolint:wrapcheck
	}

	referenced, err := s.slotRepo.Exist(ctx, shared.FilterByID(id, slotModel.FieldTemplateID, slotModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to check template references")

		return fmt.Errorf("failed to check template references: %w", err)
	}

	if referenced {
		return failure.Conflict("template still has materialized slot instances") // nolint:wrapcheck
	}

	if err = s.repo.Delete(ctx, filter); err != nil {
		log.Error().Err(err).Msg("failed to delete template")

		return fmt.Errorf("failed to delete template: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetTemplate, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete template from cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllTemplate)
		shared.InvalidateCaches(c, s.cache, cacheCountTemplate)
	}()

	return nil
}

// validateUpdatedTimes checks the start/end ordering that would result from
// applying the partial update on top of the stored template.
func validateUpdatedTimes(current model.Template, req dto.UpdateTemplateRequest) error {
	startStr := current.StartTime
	if req.StartTime != "" {
		startStr = req.StartTime
	}

	endStr := current.EndTime
	if req.EndTime != "" {
		endStr = req.EndTime
	}

	start, err := time.Parse(constant.TimeOnlyFormat, startStr)
	if err != nil {
		return failure.BadRequestFromString("invalid start_time, expected HH:MM") //nolint:wrapcheck
	}

	end, err := time.Parse(constant.TimeOnlyFormat, endStr)
	if err != nil {
		return failure.BadRequestFromString("invalid end_time, expected HH:MM") //nolint:wrapcheck
	}

	if !start.Before(end) {
		return failure.BadRequestFromString("start_time must be before end_time") //nolint:wrapcheck
	}

	return nil
}
