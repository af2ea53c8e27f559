package template

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"unibook/infras/otel"
	"unibook/internal/domains/template/model"
	"unibook/internal/domains/template/model/dto"
	"unibook/internal/domains/template/service"
	"unibook/shared/constant"
	gDto "unibook/shared/dto"
	"unibook/shared/validator"
	"unibook/transport/http/middleware"
	"unibook/transport/http/response"
)

type Handler struct {
	service    service.Template
	middleware middleware.Auth
	otel       otel.Otel
}

func New(service service.Template, middleware middleware.Auth, otel otel.Otel) Handler {
	return Handler{
		service:    service,
		middleware: middleware,
		otel:       otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/templates", func(routerGroup chi.Router) {
		routerGroup.Use(handler.middleware.Auth)

		routerGroup.Get("/", handler.GetTemplates)
		routerGroup.Get("/{id}", handler.GetTemplateByID)

		routerGroup.Group(func(providerGroup chi.Router) {
			providerGroup.Use(handler.middleware.RequireRoles(constant.RoleProvider, constant.RoleAdmin))

			providerGroup.Post("/", handler.CreateTemplate)
			providerGroup.Patch("/{id}", handler.UpdateTemplate)
			providerGroup.Delete("/{id}", handler.DeleteTemplate)
		})
	})
}

// CreateTemplate handles the creation of a new weekly slot template.
// @Summary Create a new slot template
// @Description Create a weekly recurring slot template owned by the authenticated provider.
// @Tags Template
// @Accept json
// @Produce json
// @Param request body dto.CreateTemplateRequest true "Create Template Request"
// @Success 201 {object} response.Data[dto.TemplateResponse] "Template created successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/templates [post]
// @Security BearerAuth
func (handler *Handler) CreateTemplate(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateTemplate")
	defer scope.End()

	req := dto.CreateTemplateRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create template")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Template created successfully by user " + user)

	response.WithJSON(writer, http.StatusCreated, res)
}

// GetTemplates retrieves all templates based on query parameters.
// @Summary Get all slot templates
// @Description Retrieve all slot templates with optional filtering and pagination.
// @Tags Template
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param owner_id query string false "Filter by owner ID"
// @Param weekday query int false "Filter by weekday (0=Sunday .. 6=Saturday)"
// @Success 200 {object} response.Data[dto.GetTemplatesResponse] "List of templates"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/templates [get]
// @Security BearerAuth
func (handler *Handler) GetTemplates(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetTemplates")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	ownerID := r.URL.Query().Get(model.FieldOwnerID)
	weekday := r.URL.Query().Get(model.FieldWeekday)

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  []any{},
	}

	if ownerID != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldOwnerID,
			Operator: gDto.FilterOperatorEq,
			Value:    ownerID,
			Table:    model.TableName,
		})
	}

	if weekday != "" {
		if weekdayInt, err := strconv.Atoi(weekday); err == nil {
			filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
				Field:    model.FieldWeekday,
				Operator: gDto.FilterOperatorEq,
				Value:    weekdayInt,
				Table:    model.TableName,
			})
		}
	}

	templates, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get templates")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Templates retrieved successfully")

	response.WithJSON(w, http.StatusOK, templates)
}

// GetTemplateByID retrieves a template by its ID.
// @Summary Get a slot template by ID
// @Description Retrieve a slot template by its unique identifier.
// @Tags Template
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Data[dto.TemplateResponse] "Template details"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/templates/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetTemplateByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetTemplateByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	template, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get template by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Template retrieved successfully")

	response.WithJSON(w, http.StatusOK, template)
}

// UpdateTemplate updates an existing template by its ID.
// @Summary Update a slot template by ID
// @Description Update the details of an existing slot template. Only the owning provider may update it.
// @Tags Template
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param request body dto.UpdateTemplateRequest true "Update Template Request"
// @Success 200 {object} response.Message "Template updated successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/templates/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateTemplate")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	req := dto.UpdateTemplateRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	if err := handler.service.Update(ctx, req, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update template")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Template updated successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Template updated successfully")
}

// DeleteTemplate deletes a template by its ID.
// @Summary Delete a slot template by ID
// @Description Delete a slot template. Fails while materialized instances still reference it.
// @Tags Template
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Message "Template deleted successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/templates/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteTemplate")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	if err := handler.service.Delete(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete template")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Template deleted successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Template deleted successfully")
}
