package controllers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/ELEVATE-Project/project-service-sub000/middleware"
	"github.com/ELEVATE-Project/project-service-sub000/models"
	"github.com/ELEVATE-Project/project-service-sub000/services"
	"github.com/ELEVATE-Project/project-service-sub000/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	multipartDataField     = "data"
	multipartEvidenceField = "evidences"
	maxBulkEntries         = 500
)

type CategoryController struct {
	categories *services.CategoryService
	queries    *services.CategoryQueryService
	evidence   *services.EvidenceService
	validator  *validator.Validate
}

// NewCategoryController wires the handlers. evidence may be nil, in which case
// multipart requests carrying files are rejected.
func NewCategoryController(categories *services.CategoryService, queries *services.CategoryQueryService, evidence *services.EvidenceService) *CategoryController {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &CategoryController{
		categories: categories,
		queries:    queries,
		evidence:   evidence,
		validator:  v,
	}
}

// ========== Helpers ==========

func (cc *CategoryController) getUser(c *gin.Context) (models.UserContext, bool) {
	user, ok := middleware.GetUserContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return models.UserContext{}, false
	}
	return *user, true
}

// handleError maps a service error onto the response envelope.
func (cc *CategoryController) handleError(c *gin.Context, err error) {
	var categoryErr *services.CategoryError
	if !errors.As(err, &categoryErr) {
		middleware.GetLogger(c).Error("Unhandled category error", zap.Error(err))
		utils.InternalServerErrorResponse(c, "Internal server error", utils.ErrorBody{Code: string(services.KindInternal)})
		return
	}

	status := statusForKind(categoryErr.Kind)
	message := categoryErr.Message
	if status == http.StatusInternalServerError {
		middleware.GetLogger(c).Error("Category operation failed", zap.Error(err))
		message = "Internal server error"
	}
	utils.ErrorResponse(c, status, message, utils.ErrorBody{
		Code:    string(categoryErr.Kind),
		Details: categoryErr.Details,
	})
}

func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindCategoryNotFound, services.KindParentCategoryNotFound:
		return http.StatusNotFound
	case services.KindDuplicateName, services.KindDuplicateExternalID, services.KindCircularReference,
		services.KindHasChildren, services.KindReferencedByProjects, services.KindReferencedByTemplates:
		return http.StatusConflict
	case services.KindValidation, services.KindMaxDepthExceeded:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// readPayload returns the JSON document and any evidence files. Multipart
// requests carry the JSON in the "data" field.
func (cc *CategoryController) readPayload(c *gin.Context) ([]byte, []*multipart.FileHeader, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, nil, services.NewValidationError("invalid multipart form: %v", err)
		}
		var raw []byte
		if values := form.Value[multipartDataField]; len(values) > 0 {
			raw = []byte(values[0])
		}
		files := form.File[multipartEvidenceField]
		if len(files) > 0 && cc.evidence == nil {
			return nil, nil, services.NewValidationError("evidence uploads are not enabled")
		}
		return raw, files, nil
	}

	raw, err := c.GetRawData()
	if err != nil {
		return nil, nil, services.NewValidationError("could not read request body")
	}
	return raw, nil, nil
}

func decodeJSON(raw []byte, target interface{}) error {
	if len(raw) == 0 {
		return services.NewValidationError("request body is required")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return services.NewValidationError("invalid JSON: %v", err)
	}
	return nil
}

func (cc *CategoryController) validateStruct(target interface{}) error {
	err := cc.validator.Struct(target)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return services.NewValidationError("%v", err)
	}
	problems := make([]string, 0, len(fieldErrs))
	fields := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fe.Field()+" failed "+fe.Tag())
		fields[fe.Field()] = fe.Tag()
	}
	return services.NewValidationError("%s", strings.Join(problems, ", ")).WithDetails(map[string]interface{}{"fields": fields})
}

// ========== Endpoints ==========

func (cc *CategoryController) CreateCategory(c *gin.Context) {
	user, ok := cc.getUser(c)
	if !ok {
		return
	}

	raw, files, err := cc.readPayload(c)
	if err != nil {
		cc.handleError(c, err)
		return
	}

	var input services.CreateCategoryInput
	if err := decodeJSON(raw, &input); err != nil {
		cc.handleError(c, err)
		return
	}
	if err := cc.validateStruct(&input); err != nil {
		cc.handleError(c, err)
		return
	}

	var uploaded []models.Evidence
	if len(files) > 0 {
		uploaded, err = cc.evidence.Upload(c.Request.Context(), user.TenantID, input.ExternalID, files)
		if err != nil {
			cc.handleError(c, err)
			return
		}
		input.Evidences = append(input.Evidences, uploaded...)
	}

	category, err := cc.categories.Create(c.Request.Context(), user, input)
	if err != nil {
		cc.evidence.Discard(c.Request.Context(), uploaded)
		cc.handleError(c, err)
		return
	}

	utils.CreatedResponse(c, "Category created successfully", category)
}

func (cc *CategoryController) BulkCreateCategories(c *gin.Context) {
	user, ok := cc.getUser(c)
	if !ok {
		return
	}

	var req struct {
		Categories []services.CreateCategoryInput `json:"categories" binding:"required,min=1"`
	}
	raw, _, err := cc.readPayload(c)
	if err == nil {
		err = decodeJSON(raw, &req)
	}
	if err != nil {
		cc.handleError(c, err)
		return
	}
	if err := cc.validateStruct(&req); err != nil {
		cc.handleError(c, err)
		return
	}
	if len(req.Categories) > maxBulkEntries {
		cc.handleError(c, services.NewValidationError("at most %d categories per request", maxBulkEntries))
		return
	}

	result, err := cc.categories.BulkCreate(c.Request.Context(), user, req.Categories)
	if err != nil {
		cc.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Bulk create finished", result)
}

func (cc *CategoryController) ListCategories(c *gin.Context) {
	user, ok := cc.getUser(c)
	if !ok {
		return
	}

	filter, err := parseListFilter(c)
	if err != nil {
		cc.handleError(c, err)
		return
	}

	result, err := cc.queries.List(c.Request.Context(), user, filter)
	if err != nil {
		cc.handleError(c, err)
		return
	}

	utils.PaginatedSuccessResponse(c, "Categories fetched successfully", result.Data,
		utils.NewPagination(result.Page, result.Limit, result.Count))
}

func (cc *CategoryController) GetHierarchy(c *gin.Context) {
	cc.hierarchy(c, "")
}

func (cc *CategoryController) GetCategoryHierarchy(c *gin.Context) {
	cc.hierarchy(c, c.Param("id"))
}

func (cc *CategoryController) hierarchy(c *gin.Context, categoryRef string) {
	user, ok := cc.getUser(c)
	if !ok {
		return
	}

	filter := services.HierarchyFilter{
		CategoryID: categoryRef,
		Status:     c.Query("status"),
	}
	if categoryRef == "" {
		filter.CategoryID = c.Query("categoryId")
	}
	if raw := c.Query("maxDepth"); raw != "" {
		depth, err := strconv.Atoi(raw)
		if err != nil || depth < 0 {
			cc.handleError(c, services.NewValidationError("maxDepth must be a non-negative integer"))
			return
		}
		filter.MaxDepth = &depth
	}

	result, err := cc.queries.GetHierarchy(c.Request.Context(), user, filter)
	if err != nil {
		cc.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Category hierarchy fetched successfully", result)
}

func (cc *CategoryController) GetLeaves(c *gin.Context) {
	user, ok := cc.getUser(c)
	if !ok {
		return
	}

	leaves, err := cc.queries.GetLeaves(c.Request.Context(), user, c.Query("status"))
	if err != nil {
		cc.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Leaf categories fetched successfully", leaves)
}

func (cc *CategoryController) GetCategory(c *gin.Context) {
	user, ok := cc.getUser(c)
	if !ok {
		return
	}

	category, err := cc.queries.Details(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		cc.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Category fetched successfully", category)
}

func (cc *CategoryController) UpdateCategory(c *gin.Context) {
	user, ok := cc.getUser(c)
	if !ok {
		return
	}
	ref := c.Param("id")

	raw, files, err := cc.readPayload(c)
	if err != nil {
		cc.handleError(c, err)
		return
	}

	var input services.UpdateCategoryInput
	if len(raw) > 0 {
		var keys map[string]json.RawMessage
		if err := decodeJSON(raw, &keys); err != nil {
			cc.handleError(c, err)
			return
		}
		for key := range keys {
			input.Fields = append(input.Fields, key)
		}
		if err := decodeJSON(raw, &input.Patch); err != nil {
			cc.handleError(c, err)
			return
		}
	}

	var uploaded []models.Evidence
	if len(files) > 0 {
		current, err := cc.queries.Details(c.Request.Context(), user, ref)
		if err != nil {
			cc.handleError(c, err)
			return
		}

		externalID := current.ExternalID
		if input.Patch.ExternalID != nil {
			externalID = *input.Patch.ExternalID
		}
		uploaded, err = cc.evidence.Upload(c.Request.Context(), user.TenantID, externalID, files)
		if err != nil {
			cc.handleError(c, err)
			return
		}

		evidences := current.Evidences
		if input.Patch.Evidences != nil {
			evidences = *input.Patch.Evidences
		}
		evidences = append(append([]models.Evidence(nil), evidences...), uploaded...)
		input.Patch.Evidences = &evidences
	}

	category, err := cc.categories.Update(c.Request.Context(), user, ref, input)
	if err != nil {
		cc.evidence.Discard(c.Request.Context(), uploaded)
		cc.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Category updated successfully", category)
}

func (cc *CategoryController) MoveCategory(c *gin.Context) {
	user, ok := cc.getUser(c)
	if !ok {
		return
	}

	var body map[string]*string
	if err := c.ShouldBindJSON(&body); err != nil {
		cc.handleError(c, services.NewValidationError("body must be {\"newParentId\": string|null}"))
		return
	}
	newParent, present := body["newParentId"]
	if !present {
		cc.handleError(c, services.NewValidationError("newParentId is required (use null to move to root)"))
		return
	}
	if newParent != nil && strings.TrimSpace(*newParent) == "" {
		newParent = nil
	}

	result, err := cc.categories.Move(c.Request.Context(), user, c.Param("id"), newParent)
	if err != nil {
		cc.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Category moved successfully", result)
}

func (cc *CategoryController) CanDeleteCategory(c *gin.Context) {
	user, ok := cc.getUser(c)
	if !ok {
		return
	}

	check, err := cc.categories.CanDelete(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		cc.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Deletion check completed", check)
}

func (cc *CategoryController) DeleteCategory(c *gin.Context) {
	user, ok := cc.getUser(c)
	if !ok {
		return
	}

	result, err := cc.categories.Delete(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		cc.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Category deleted successfully", result)
}

func (cc *CategoryController) ReconcileCategories(c *gin.Context) {
	user, ok := cc.getUser(c)
	if !ok {
		return
	}

	result, err := cc.categories.Reconcile(c.Request.Context(), user.TenantID)
	if err != nil {
		cc.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Category tree reconciled", result)
}

func parseListFilter(c *gin.Context) (services.ListFilter, error) {
	filter := services.ListFilter{
		ParentID:   c.Query("parentId"),
		SearchText: strings.TrimSpace(c.Query("search")),
		Status:     c.Query("status"),
	}

	if raw := c.Query("level"); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil || level < 0 {
			return filter, services.NewValidationError("level must be a non-negative integer")
		}
		filter.Level = &level
	}
	if raw := c.Query("currentOrgOnly"); raw != "" {
		only, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, services.NewValidationError("currentOrgOnly must be a boolean")
		}
		filter.CurrentOrgOnly = only
	}
	if raw := c.Query("keywords"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				filter.Keywords = append(filter.Keywords, k)
			}
		}
	}

	for name, target := range map[string]*int64{"limit": &filter.Limit, "page": &filter.Page, "offset": &filter.Offset} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return filter, services.NewValidationError("%s must be a non-negative integer", name)
		}
		*target = v
	}
	return filter, nil
}
