package slot

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"unibook/infras/otel"
	"unibook/internal/domains/slot/model"
	"unibook/internal/domains/slot/model/dto"
	"unibook/internal/domains/slot/service"
	"unibook/shared/constant"
	gDto "unibook/shared/dto"
	"unibook/shared/validator"
	"unibook/transport/http/middleware"
	"unibook/transport/http/response"
)

type Handler struct {
	service    service.Slot
	middleware middleware.Auth
	otel       otel.Otel
}

func New(service service.Slot, middleware middleware.Auth, otel otel.Otel) Handler {
	return Handler{
		service:    service,
		middleware: middleware,
		otel:       otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/slots", func(routerGroup chi.Router) {
		routerGroup.Use(handler.middleware.Auth)

		routerGroup.Get("/", handler.GetSlots)
		routerGroup.Get("/{id}", handler.GetSlotByID)

		routerGroup.Group(func(providerGroup chi.Router) {
			providerGroup.Use(handler.middleware.RequireRoles(constant.RoleProvider, constant.RoleAdmin))

			providerGroup.Post("/batch", handler.CreateSlotBatch)
			providerGroup.Post("/materialize", handler.MaterializeSlots)
			providerGroup.Delete("/{id}", handler.DeleteSlot)
		})
	})
}

// CreateSlotBatch creates several slot instances for one date atomically.
// @Summary Create a batch of slot instances
// @Description Create multiple slot instances for a single date. The whole batch fails if any range overlaps another range or an existing instance of the same provider.
// @Tags Slot
// @Accept json
// @Produce json
// @Param request body dto.CreateSlotBatchRequest true "Create Slot Batch Request"
// @Success 201 {object} response.Data[dto.SlotsResponse] "Slot instances created successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/slots/batch [post]
// @Security BearerAuth
func (handler *Handler) CreateSlotBatch(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateSlotBatch")
	defer scope.End()

	req := dto.CreateSlotBatchRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.CreateBatch(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create slot batch")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Slot batch created successfully by user " + user)

	response.WithJSON(writer, http.StatusCreated, res)
}

// MaterializeSlots expands the provider's templates over a date range.
// @Summary Materialize slot instances from templates
// @Description Expand the authenticated provider's weekly templates into concrete slot instances over an inclusive date range. Dates already covered by overlapping instances are skipped.
// @Tags Slot
// @Accept json
// @Produce json
// @Param request body dto.MaterializeRequest true "Materialize Request"
// @Success 200 {object} response.Data[dto.MaterializeResponse] "Materialization result"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/slots/materialize [post]
// @Security BearerAuth
func (handler *Handler) MaterializeSlots(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".MaterializeSlots")
	defer scope.End()

	req := dto.MaterializeRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.Materialize(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to materialize slots")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Slots materialized successfully by user " + user)

	response.WithJSON(writer, http.StatusOK, res)
}

// GetSlots retrieves all slot instances based on query parameters.
// @Summary Get all slot instances
// @Description Retrieve all slot instances with optional filtering and pagination.
// @Tags Slot
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param template_id query string false "Filter by template ID"
// @Param slot_date query string false "Filter by date (YYYY-MM-DD)"
// @Success 200 {object} response.Data[dto.GetSlotsResponse] "List of slot instances"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/slots [get]
// @Security BearerAuth
func (handler *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetSlots")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	templateID := r.URL.Query().Get(model.FieldTemplateID)
	slotDate := r.URL.Query().Get(model.FieldSlotDate)

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  []any{},
	}

	if templateID != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldTemplateID,
			Operator: gDto.FilterOperatorEq,
			Value:    templateID,
			Table:    model.TableName,
		})
	}

	if slotDate != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldSlotDate,
			Operator: gDto.FilterOperatorEq,
			Value:    slotDate,
			Table:    model.TableName,
		})
	}

	slots, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get slots")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Slots retrieved successfully")

	response.WithJSON(w, http.StatusOK, slots)
}

// GetSlotByID retrieves a slot instance by its ID.
// @Summary Get a slot instance by ID
// @Description Retrieve a slot instance by its unique identifier.
// @Tags Slot
// @Accept json
// @Produce json
// @Param id path string true "Slot Instance ID"
// @Success 200 {object} response.Data[dto.SlotResponse] "Slot instance details"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/slots/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetSlotByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetSlotByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	slot, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get slot by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Slot retrieved successfully")

	response.WithJSON(w, http.StatusOK, slot)
}

// DeleteSlot deletes a slot instance by its ID.
// @Summary Delete a slot instance by ID
// @Description Delete a slot instance. Fails while confirmed bookings exist for it.
// @Tags Slot
// @Accept json
// @Produce json
// @Param id path string true "Slot Instance ID"
// @Success 200 {object} response.Message "Slot instance deleted successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/slots/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteSlot")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	if err := handler.service.Delete(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete slot")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Slot deleted successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Slot instance deleted successfully")
}
