package request

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"unibook/infras/otel"
	"unibook/internal/domains/request/model"
	"unibook/internal/domains/request/model/dto"
	"unibook/internal/domains/request/service"
	"unibook/shared/constant"
	gDto "unibook/shared/dto"
	"unibook/shared/failure"
	"unibook/shared/validator"
	"unibook/transport/http/middleware"
	"unibook/transport/http/response"
)

type Handler struct {
	service    service.Request
	middleware middleware.Auth
	otel       otel.Otel
}

func New(service service.Request, middleware middleware.Auth, otel otel.Otel) Handler {
	return Handler{
		service:    service,
		middleware: middleware,
		otel:       otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/requests", func(routerGroup chi.Router) {
		routerGroup.Use(handler.middleware.Auth)

		routerGroup.Post("/", handler.SubmitRequest)
		routerGroup.Get("/", handler.GetRequests)
		routerGroup.Get("/myrequests", handler.GetMyRequests)
		routerGroup.Get("/{id}", handler.GetRequestByID)
		routerGroup.Post("/{id}/cancel", handler.CancelRequest)
	})
}

// SubmitRequest handles the submission of a new booking request.
// @Summary Submit a booking request
// @Description Submit a pending booking request for a slot instance. Providers cannot request their own slots and a user may only hold one request per slot.
// @Tags Request
// @Accept json
// @Produce json
// @Param request body dto.SubmitRequestRequest true "Submit Request"
// @Success 201 {object} response.Data[dto.RequestResponse] "Request submitted successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/requests [post]
// @Security BearerAuth
func (handler *Handler) SubmitRequest(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".SubmitRequest")
	defer scope.End()

	req := dto.SubmitRequestRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.Submit(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to submit booking request")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Booking request submitted successfully by user " + user)

	response.WithJSON(writer, http.StatusCreated, res)
}

// GetRequests retrieves all booking requests based on query parameters.
// @Summary Get all booking requests
// @Description Retrieve all booking requests with optional filtering and pagination.
// @Tags Request
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param slot_instance_id query string false "Filter by slot instance ID"
// @Param status query string false "Filter by status (pending, accepted, rejected, cancelled)"
// @Success 200 {object} response.Data[dto.GetRequestsResponse] "List of booking requests"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/requests [get]
// @Security BearerAuth
func (handler *Handler) GetRequests(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRequests")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	slotInstanceID := r.URL.Query().Get(model.FieldSlotID)
	status := r.URL.Query().Get(model.FieldStatus)

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  []any{},
	}

	if slotInstanceID != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldSlotID,
			Operator: gDto.FilterOperatorEq,
			Value:    slotInstanceID,
			Table:    model.TableName,
		})
	}

	if status != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldStatus,
			Operator: gDto.FilterOperatorEq,
			Value:    status,
			Table:    model.TableName,
		})
	}

	requests, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get booking requests")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Booking requests retrieved successfully")

	response.WithJSON(w, http.StatusOK, requests)
}

// GetMyRequests retrieves all booking requests of the authenticated user.
// @Summary Get my booking requests
// @Description Retrieve all booking requests submitted by the currently authenticated user.
// @Tags Request
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param status query string false "Filter by status (pending, accepted, rejected, cancelled)"
// @Success 200 {object} response.Data[dto.GetRequestsResponse] "List of the user's booking requests"
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/requests/myrequests [get]
// @Security BearerAuth
func (handler *Handler) GetMyRequests(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMyRequests")
	defer scope.End()

	userID, ok := ctx.Value(constant.ContextKeyUserID).(string)
	if !ok || userID == "" {
		scope.TraceError(nil)
		log.Error().Msg("failed to get user ID from context")
		response.WithError(w, failure.Unauthorized("unauthorized"))

		return
	}

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	status := r.URL.Query().Get(model.FieldStatus)

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldRequesterID,
				Operator: gDto.FilterOperatorEq,
				Value:    userID,
				Table:    model.TableName,
			},
		},
	}

	if status != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldStatus,
			Operator: gDto.FilterOperatorEq,
			Value:    status,
			Table:    model.TableName,
		})
	}

	requests, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get user booking requests")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("User booking requests retrieved successfully for user " + userID)

	response.WithJSON(w, http.StatusOK, requests)
}

// GetRequestByID retrieves a booking request by its ID.
// @Summary Get a booking request by ID
// @Description Retrieve a booking request by its unique identifier.
// @Tags Request
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Data[dto.RequestResponse] "Booking request details"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/requests/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetRequestByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRequestByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	request, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get booking request by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Booking request retrieved successfully")

	response.WithJSON(w, http.StatusOK, request)
}

// CancelRequest cancels a pending booking request.
// @Summary Cancel a booking request
// @Description Cancel a pending booking request. Only the requester may cancel and only while the request is still pending.
// @Tags Request
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Message "Request cancelled successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/requests/{id}/cancel [post]
// @Security BearerAuth
func (handler *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CancelRequest")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	if err := handler.service.Cancel(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to cancel booking request")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Booking request cancelled successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Request cancelled successfully")
}
