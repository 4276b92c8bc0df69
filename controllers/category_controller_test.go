package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/events"
	"github.com/ELEVATE-Project/project-service-sub000/middleware"
	"github.com/ELEVATE-Project/project-service-sub000/models"
	"github.com/ELEVATE-Project/project-service-sub000/services"
	"github.com/ELEVATE-Project/project-service-sub000/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var adminUser = &models.UserContext{UserID: "admin-1", TenantID: "tenant-1", OrgID: "org-1", Roles: []string{"admin"}}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Status  int             `json:"status"`
	Count   int64           `json:"count"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string                 `json:"code"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

type harness struct {
	router    *gin.Engine
	templates *store.MemoryTemplateStore
	storage   *services.MemoryStorage
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	categories := store.NewMemoryCategoryStore()
	templates := store.NewMemoryTemplateStore()
	notifier := services.NewSyncNotifier(templates, events.NewLogPublisher(zap.NewNop()), zap.NewNop(), nil, time.Second)
	t.Cleanup(notifier.Wait)

	categoryService := services.NewCategoryService(categories, templates, services.NewHierarchyCalculator(3), notifier,
		services.CategoryServiceConfig{MaxNameLength: 100}, zap.NewNop(), nil)
	queryService := services.NewCategoryQueryService(categories, 20, 100, nil)
	storage := services.NewMemoryStorage()
	evidence := services.NewEvidenceService(storage, 1<<20, zap.NewNop())

	cc := NewCategoryController(categoryService, queryService, evidence)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetUserContext(c, adminUser)
		c.Next()
	})
	g := r.Group("/categories")
	g.POST("", cc.CreateCategory)
	g.POST("/bulk", cc.BulkCreateCategories)
	g.GET("", cc.ListCategories)
	g.GET("/hierarchy", cc.GetHierarchy)
	g.GET("/leaves", cc.GetLeaves)
	g.GET("/:id", cc.GetCategory)
	g.GET("/:id/hierarchy", cc.GetCategoryHierarchy)
	g.PATCH("/:id", cc.UpdateCategory)
	g.PATCH("/:id/move", cc.MoveCategory)
	g.GET("/:id/can-delete", cc.CanDeleteCategory)
	g.DELETE("/:id", cc.DeleteCategory)
	g.POST("/reconcile", cc.ReconcileCategories)

	return &harness{router: r, templates: templates, storage: storage}
}

func (h *harness) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return h.serve(t, req)
}

func (h *harness) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (h *harness) create(t *testing.T, externalID, name, parent string) models.Category {
	t.Helper()
	w, env := h.do(t, http.MethodPost, "/categories", map[string]interface{}{
		"externalId": externalID,
		"name":       name,
		"parentId":   parent,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var category models.Category
	require.NoError(t, json.Unmarshal(env.Data, &category))
	return category
}

func TestCategoryController_CreateMoveDelete(t *testing.T) {
	h := newHarness(t)

	a := h.create(t, "A", "A", "")
	b := h.create(t, "B", "B", "A")
	c := h.create(t, "C", "C", b.ID.Hex())
	assert.Equal(t, 2, c.Level)

	w, env := h.do(t, http.MethodPatch, "/categories/B/move", map[string]interface{}{"newParentId": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var moved services.MoveResult
	require.NoError(t, json.Unmarshal(env.Data, &moved))
	assert.Equal(t, 0, moved.MovedCategory.Level)
	assert.Equal(t, 1, moved.AffectedDescendants)

	_, env = h.do(t, http.MethodGet, "/categories/"+a.ID.Hex(), nil)
	var reloaded models.Category
	require.NoError(t, json.Unmarshal(env.Data, &reloaded))
	assert.Equal(t, 0, reloaded.ChildCount)
	assert.False(t, reloaded.HasChildren)

	w, env = h.do(t, http.MethodGet, "/categories/B/can-delete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var check services.DeletionCheck
	require.NoError(t, json.Unmarshal(env.Data, &check))
	assert.False(t, check.CanDelete)
	assert.Equal(t, 1, check.ChildCount)

	w, env = h.do(t, http.MethodDelete, "/categories/B", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusConflict, env.Status)
	assert.Equal(t, string(services.KindHasChildren), env.Error.Code)

	w, _ = h.do(t, http.MethodDelete, "/categories/C", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCategoryController_ErrorMapping(t *testing.T) {
	h := newHarness(t)
	a := h.create(t, "A", "A", "")

	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   services.ErrorKind
	}{
		{"missing required fields", http.MethodPost, "/categories", map[string]interface{}{"name": "x"}, http.StatusBadRequest, services.KindValidation},
		{"unknown parent", http.MethodPost, "/categories", map[string]interface{}{"externalId": "X", "name": "X", "parentId": "NOPE"}, http.StatusNotFound, services.KindParentCategoryNotFound},
		{"duplicate external id", http.MethodPost, "/categories", map[string]interface{}{"externalId": "A", "name": "Other"}, http.StatusConflict, services.KindDuplicateExternalID},
		{"hierarchy field in update", http.MethodPatch, "/categories/A", map[string]interface{}{"level": 3}, http.StatusBadRequest, services.KindValidation},
		{"move onto self", http.MethodPatch, "/categories/A/move", map[string]interface{}{"newParentId": a.ID.Hex()}, http.StatusConflict, services.KindCircularReference},
		{"move without body key", http.MethodPatch, "/categories/A/move", map[string]interface{}{}, http.StatusBadRequest, services.KindValidation},
		{"details of unknown", http.MethodGet, "/categories/missing", nil, http.StatusNotFound, services.KindCategoryNotFound},
		{"bad list query", http.MethodGet, "/categories?limit=-1", nil, http.StatusBadRequest, services.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := h.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, string(tc.code), env.Error.Code)
		})
	}
}

func TestCategoryController_MaxDepth(t *testing.T) {
	h := newHarness(t)
	h.create(t, "L0", "L0", "")
	h.create(t, "L1", "L1", "L0")
	h.create(t, "L2", "L2", "L1")
	h.create(t, "L3", "L3", "L2")

	w, env := h.do(t, http.MethodPost, "/categories", map[string]interface{}{"externalId": "L4", "name": "L4", "parentId": "L3"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(services.KindMaxDepthExceeded), env.Error.Code)
}

func TestCategoryController_ListHierarchyLeaves(t *testing.T) {
	h := newHarness(t)
	h.create(t, "A", "A", "")
	h.create(t, "B", "B", "A")
	h.create(t, "C", "C", "")

	w, env := h.do(t, http.MethodGet, "/categories?parentId=null&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, env.Count)
	var page []models.Category
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page, 1)

	_, env = h.do(t, http.MethodGet, "/categories/hierarchy", nil)
	var tree services.HierarchyResult
	require.NoError(t, json.Unmarshal(env.Data, &tree))
	assert.Equal(t, 3, tree.TotalCategories)
	assert.Len(t, tree.Tree, 2)

	_, env = h.do(t, http.MethodGet, "/categories/A/hierarchy", nil)
	require.NoError(t, json.Unmarshal(env.Data, &tree))
	assert.Equal(t, 2, tree.TotalCategories)

	_, env = h.do(t, http.MethodGet, "/categories/leaves", nil)
	var leaves []models.Category
	require.NoError(t, json.Unmarshal(env.Data, &leaves))
	assert.Len(t, leaves, 2)
}

func TestCategoryController_BulkAndReconcile(t *testing.T) {
	h := newHarness(t)

	w, env := h.do(t, http.MethodPost, "/categories/bulk", map[string]interface{}{
		"categories": []map[string]interface{}{
			{"externalId": "ROOT", "name": "Root"},
			{"externalId": "KID", "name": "Kid", "parentExternalId": "ROOT"},
			{"externalId": "ORPHAN", "name": "Orphan", "parentExternalId": "MISSING"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var bulk services.BulkCreateResult
	require.NoError(t, json.Unmarshal(env.Data, &bulk))
	assert.Equal(t, 2, bulk.Created)
	assert.Equal(t, 1, bulk.Failed)

	w, env = h.do(t, http.MethodPost, "/categories/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result services.ReconcileResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 2, result.Scanned)
	assert.Zero(t, result.CountersRepaired)
}

func TestCategoryController_MultipartCreateWithEvidence(t *testing.T) {
	h := newHarness(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("data", `{"externalId":"WATER","name":"Water"}`))
	part, err := writer.CreateFormFile("evidences", "guide.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/categories", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w, env := h.serve(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var category models.Category
	require.NoError(t, json.Unmarshal(env.Data, &category))
	require.Len(t, category.Evidences, 1)
	assert.Equal(t, "pdf", category.Evidences[0].Type)
	assert.Equal(t, 1, h.storage.Len())
}

func TestCategoryController_MultipartCreateDiscardsEvidenceOnFailure(t *testing.T) {
	h := newHarness(t)
	h.create(t, "WATER", "Water", "")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("data", `{"externalId":"WATER","name":"Water again"}`))
	part, err := writer.CreateFormFile("evidences", "guide.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/categories", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w, _ := h.serve(t, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, h.storage.Len())
}
