package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"unibook/config"
	"unibook/infras/otel"
	"unibook/infras/postgres"
	bookingModel "unibook/internal/domains/booking/model"
	bookingRepo "unibook/internal/domains/booking/repository"
	"unibook/internal/domains/slot/model"
	"unibook/internal/domains/slot/model/dto"
	"unibook/internal/domains/slot/repository"
	templateModel "unibook/internal/domains/template/model"
	templateRepo "unibook/internal/domains/template/repository"
	"unibook/shared"
	"unibook/shared/cache"
	"unibook/shared/constant"
	gDto "unibook/shared/dto"
	"unibook/shared/failure"
	gModel "unibook/shared/model"
	"unibook/shared/timezone"
)

const (
	cacheGetSlot    = "slot:get"
	cacheGetAllSlot = "slot:gets"
	cacheCountSlot  = "slot:count"
)

type Slot interface {
	CreateBatch(ctx context.Context, req dto.CreateSlotBatchRequest) (dto.SlotsResponse, error)
	Materialize(ctx context.Context, req dto.MaterializeRequest) (dto.MaterializeResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetSlotsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.SlotResponse, error)
	Delete(ctx context.Context, id string) error
}

type serviceImpl struct {
	repo         repository.Slot
	templateRepo templateRepo.Template
	bookingRepo  bookingRepo.Booking
	txer         postgres.Txer
	cfg          *config.Config
	cache        cache.RedisCache
	otel         otel.Otel
}

func New(
	repo repository.Slot,
	templateRepo templateRepo.Template,
	bookingRepo bookingRepo.Booking,
	txer postgres.Txer,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Slot {
	return &serviceImpl{
		repo:         repo,
		templateRepo: templateRepo,
		bookingRepo:  bookingRepo,
		txer:         txer,
		cfg:          cfg,
		cache:        cache,
		otel:         otel,
	}
}

// CreateBatch inserts a provider's instances for one date atomically. The
// whole batch is rejected when any two new ranges overlap each other or any
// existing instance of the same provider on that date. The transaction takes
// an advisory lock on the (owner, date) pair before reading, so two concurrent
// batches serialize even when there are no existing rows to lock.
func (s *serviceImpl) CreateBatch(ctx context.Context, req dto.CreateSlotBatchRequest) (res dto.SlotsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CreateBatch")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	date, slots, err := req.ToModels(user)
	if err != nil {
		log.Error().Err(err).Msg("failed to parse slot batch request")

		return res, err
	}

	if err = validateNotPast(date); err != nil {
		return res, err
	}

	if err = s.validateTemplateRefs(ctx, user, req.Ranges); err != nil {
		return res, err
	}

	err = s.txer.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := s.repo.LockOwnerDateTx(ctx, tx, user, date); err != nil {
			return err //nolint:wrapcheck
		}

		existing, err := s.repo.GetOwnedOnDateForUpdateTx(ctx, tx, user, date)
		if err != nil {
			return fmt.Errorf("failed to load existing instances: %w", err)
		}

		if err := checkBatchOverlap(slots, existing); err != nil {
			return err
		}

		return s.repo.InsertBulkTx(ctx, tx, slots) //nolint:wrapcheck
	})
	if err != nil {
		log.Error().Err(err).Str("date", req.Date).Msg("failed to create slot batch")

		return res, err
	}

	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllSlot)
		shared.InvalidateCaches(c, s.cache, cacheCountSlot)
	}()

	res.FromModels(slots)

	return res, nil
}

// Materialize creates instances from the provider's weekly templates for every
// date in the window. Candidates that would overlap an existing instance (or
// an earlier candidate on the same date) are skipped rather than failing the
// whole window, so the operation can be re-run safely. Each date runs in its
// own transaction under the same (owner, date) advisory lock as CreateBatch,
// keeping locks short-lived on large windows.
func (s *serviceImpl) Materialize(ctx context.Context, req dto.MaterializeRequest) (res dto.MaterializeResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Materialize")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	from, to, err := req.Dates()
	if err != nil {
		return res, err
	}

	if err = validateNotPast(from); err != nil {
		return res, err
	}

	templates, err := s.templateRepo.GetAll(ctx, gDto.QueryParams{}, shared.FilterByID(user, templateModel.FieldOwnerID, templateModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get templates")

		return res, fmt.Errorf("failed to get templates: %w", err)
	}

	if len(templates) == 0 {
		return res, failure.BadRequestFromString("no templates to materialize") // nolint:wrapcheck
	}

	var created []model.Slot

	skipped := 0

	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		candidates := buildCandidates(templates, date)
		if len(candidates) == 0 {
			continue
		}

		var accepted []model.Slot

		daySkipped := 0

		err = s.txer.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
			accepted = accepted[:0]
			daySkipped = 0

			if err := s.repo.LockOwnerDateTx(ctx, tx, user, date); err != nil {
				return err //nolint:wrapcheck
			}

			existing, err := s.repo.GetOwnedOnDateForUpdateTx(ctx, tx, user, date)
			if err != nil {
				return fmt.Errorf("failed to load existing instances: %w", err)
			}

			for _, candidate := range candidates {
				if overlapsAny(candidate, existing) || overlapsAny(candidate, accepted) {
					daySkipped++

					continue
				}

				accepted = append(accepted, candidate)
			}

			if len(accepted) == 0 {
				return nil
			}

			return s.repo.InsertBulkTx(ctx, tx, accepted) //nolint:wrapcheck
		})
		if err != nil {
			log.Error().Err(err).Str("from", req.From).Str("to", req.To).Msg("failed to materialize instances")

			return res, err
		}

		created = append(created, accepted...)
		skipped += daySkipped
	}

	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllSlot)
		shared.InvalidateCaches(c, s.cache, cacheCountSlot)
	}()

	res.Created = len(created)
	res.Skipped = skipped
	res.Slots = make([]dto.SlotResponse, len(created))

	for i, mod := range created {
		res.Slots[i].FromModel(mod)
	}

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetSlotsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllSlot, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for slot instances")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count slot instances")

		return res, fmt.Errorf("failed to count slot instances: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get slot instances")

		return res, fmt.Errorf("failed to get slot instances: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save slot instances to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountSlot, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for slot instance count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count slot instances")

		return res, fmt.Errorf("failed to count slot instances: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save slot instance count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.SlotResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetSlot, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for slot instance")

		return res, nil
	}

	slot, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get slot instance")

		return res, fmt.Errorf("failed to get slot instance: %w", err)
	}

	if slot.ID == constant.Empty {
		return res, failure.NotFound("slot instance not found") // nolint:wrapcheck
	}

	res.FromModel(slot)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save slot instance to cache")
		}
	}()

	return res, nil
}

// Delete removes an instance after verifying ownership. An instance that
// already has confirmed bookings cannot be deleted; pending requests against
// it are removed by the store's cascade.
func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Delete")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	err = s.txer.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		slot, err := s.repo.GetForUpdateTx(ctx, tx, filter)
		if err != nil {
			return fmt.Errorf("failed to get slot instance: %w", err)
		}

		if slot.ID == constant.Empty {
			return failure.NotFound("slot instance not found") // nolint:wrapcheck
		}

		owner, err := s.resolveOwnerTx(ctx, tx, slot)
		if err != nil {
			return err
		}

		if owner != user {
			return failure.Forbidden("only the owning provider can delete this instance") // nolint:wrapcheck
		}

		booked, err := s.bookingRepo.CountTx(ctx, tx, shared.FilterByID(id, bookingModel.FieldSlotID, bookingModel.TableName))
		if err != nil {
			return fmt.Errorf("failed to count bookings: %w", err)
		}

		if booked > 0 {
			return failure.Conflict("slot instance has confirmed bookings") // nolint:wrapcheck
		}

		return s.repo.DeleteTx(ctx, tx, filter) //nolint:wrapcheck
	})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to delete slot instance")

		return err
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetSlot, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete slot instance from cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllSlot)
		shared.InvalidateCaches(c, s.cache, cacheCountSlot)
	}()

	return nil
}

// resolveOwnerTx resolves the owning provider of an instance: the creator for
// ad-hoc instances, otherwise the owner of the referenced template.
func (s *serviceImpl) resolveOwnerTx(ctx context.Context, tx *sqlx.Tx, slot model.Slot) (string, error) {
	if slot.CreatedBy != constant.Empty {
		return slot.CreatedBy, nil
	}

	if !slot.TemplateID.Valid {
		log.Error().Str("slotID", slot.ID).Msg("slot instance has neither creator nor template")

		return constant.Empty, failure.InternalError(fmt.Errorf("slot instance %s has no resolvable owner", slot.ID)) //nolint:wrapcheck
	}

	template, err := s.templateRepo.GetForUpdateTx(ctx, tx, shared.FilterByID(slot.TemplateID.String, templateModel.FieldID, templateModel.TableName))
	if err != nil {
		return constant.Empty, fmt.Errorf("failed to get template: %w", err)
	}

	if template.ID == constant.Empty {
		log.Error().Str("slotID", slot.ID).Str("templateID", slot.TemplateID.String).Msg("slot instance references missing template")

		return constant.Empty, failure.InternalError(fmt.Errorf("slot instance %s references missing template", slot.ID)) //nolint:wrapcheck
	}

	return template.OwnerID, nil
}

// validateTemplateRefs checks every referenced template exists and belongs to
// the acting provider before the batch transaction starts.
func (s *serviceImpl) validateTemplateRefs(ctx context.Context, user string, ranges []dto.SlotRangeRequest) error {
	seen := map[string]bool{}

	for i, r := range ranges {
		if r.TemplateID == constant.Empty || seen[r.TemplateID] {
			continue
		}

		seen[r.TemplateID] = true

		template, err := s.templateRepo.Get(ctx, shared.FilterByID(r.TemplateID, templateModel.FieldID, templateModel.TableName))
		if err != nil {
			return fmt.Errorf("failed to get template: %w", err)
		}

		if template.ID == constant.Empty {
			return failure.BadRequestFromString(fmt.Sprintf("range %d references unknown template", i)) // nolint:wrapcheck
		}

		if template.OwnerID != user {
			return failure.Forbidden(fmt.Sprintf("range %d references another provider's template", i)) // nolint:wrapcheck
		}
	}

	return nil
}

func validateNotPast(date time.Time) error {
	now := timezone.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if date.Before(today) {
		return failure.BadRequestFromString("date must not be in the past") // nolint:wrapcheck
	}

	return nil
}

// checkBatchOverlap rejects the batch when any two new ranges overlap each
// other, or when a new range overlaps an instance already stored for the same
// provider and date.
func checkBatchOverlap(slots, existing []model.Slot) error {
	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].OverlapsWith(slots[j]) {
				return failure.Conflict(fmt.Sprintf("ranges %d and %d overlap", i, j)) // nolint:wrapcheck
			}
		}

		for _, ex := range existing {
			if slots[i].OverlapsWith(ex) {
				return failure.Conflict(fmt.Sprintf("range %d overlaps existing instance %s", i, ex.ID)) // nolint:wrapcheck
			}
		}
	}

	return nil
}

func overlapsAny(candidate model.Slot, others []model.Slot) bool {
	for _, other := range others {
		if candidate.OverlapsWith(other) {
			return true
		}
	}

	return false
}

// buildCandidates expands the templates whose weekday matches the date into
// concrete instances. Materialized instances carry no creator so ownership
// resolves through the template.
func buildCandidates(templates []templateModel.Template, date time.Time) []model.Slot {
	var candidates []model.Slot

	for _, template := range templates {
		if template.Weekday != int(date.Weekday()) {
			continue
		}

		start, err := combine(date, template.StartTime)
		if err != nil {
			log.Error().Err(err).Str("templateID", template.ID).Msg("template has malformed start_time")

			continue
		}

		end, err := combine(date, template.EndTime)
		if err != nil {
			log.Error().Err(err).Str("templateID", template.ID).Msg("template has malformed end_time")

			continue
		}

		candidates = append(candidates, model.Slot{
			ID:         uuid.NewString(),
			TemplateID: sql.NullString{String: template.ID, Valid: true},
			SlotDate:   date,
			StartAt:    start,
			EndAt:      end,
			Notes:      template.Notes,
			Metadata: gModel.Metadata{
				CreatedAt:  timezone.Now(),
				ModifiedAt: timezone.Now(),
			},
		})
	}

	return candidates
}

func combine(date time.Time, timeOfDay string) (time.Time, error) {
	t, err := time.Parse(constant.TimeOnlyFormat, timeOfDay)
	if err != nil {
		return time.Time{}, err //nolint:wrapcheck
	}

	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}
