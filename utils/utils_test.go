package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCategoryName(t *testing.T) {
	assert.NoError(t, ValidateCategoryName("Water Conservation", 100))
	assert.NoError(t, ValidateCategoryName("Água", 4))
	assert.Error(t, ValidateCategoryName("   ", 100))
	assert.Error(t, ValidateCategoryName("Água!", 4))
	assert.Error(t, ValidateCategoryName("bad\x00name", 100))
}

func TestValidateExternalID(t *testing.T) {
	assert.NoError(t, ValidateExternalID("WATER_01.v2-a"))
	assert.Error(t, ValidateExternalID(""))
	assert.Error(t, ValidateExternalID("-leading"))
	assert.Error(t, ValidateExternalID("has space"))
	assert.Error(t, ValidateExternalID(strings.Repeat("a", 129)))
}

func TestValidateCategoryStatus(t *testing.T) {
	assert.NoError(t, ValidateCategoryStatus("active"))
	assert.NoError(t, ValidateCategoryStatus("inactive"))
	assert.Error(t, ValidateCategoryStatus("archived"))
}

func TestValidateFileName(t *testing.T) {
	assert.NoError(t, ValidateFileName("report.pdf"))
	assert.Error(t, ValidateFileName(""))
	assert.Error(t, ValidateFileName(".pdf"))
	assert.Error(t, ValidateFileName("../etc/passwd"))
}

func TestJWTRoundTrip(t *testing.T) {
	user := &models.UserContext{
		UserID:   "u-1",
		Name:     "Asha",
		TenantID: "tenant-1",
		OrgID:    "org-1",
		Roles:    []string{"admin"},
	}

	token, err := GenerateJWTTokenWithSecret(user, "secret", "project-service", time.Hour)
	require.NoError(t, err)

	claims, err := VerifyJWTTokenWithSecret(token, "secret", "project-service")
	require.NoError(t, err)
	assert.Equal(t, user, claims.UserContext())

	_, err = VerifyJWTTokenWithSecret(token, "other-secret", "")
	assert.Error(t, err)

	_, err = VerifyJWTTokenWithSecret(token, "secret", "someone-else")
	assert.Error(t, err)
}

func TestJWTRejectsExpiredAndTenantless(t *testing.T) {
	expired, err := GenerateJWTTokenWithSecret(&models.UserContext{UserID: "u", TenantID: "t"}, "secret", "", -time.Minute)
	require.NoError(t, err)
	_, err = VerifyJWTTokenWithSecret(expired, "secret", "")
	assert.Error(t, err)

	tenantless, err := GenerateJWTTokenWithSecret(&models.UserContext{UserID: "u"}, "secret", "", time.Hour)
	require.NoError(t, err)
	_, err = VerifyJWTTokenWithSecret(tenantless, "secret", "")
	assert.Error(t, err)
}

func TestResponses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	ErrorResponse(c, http.StatusConflict, "duplicate", ErrorBody{Code: "DuplicateName"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, c.IsAborted())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, http.StatusConflict, body["status"])
	assert.Equal(t, "DuplicateName", body["error"].(map[string]interface{})["code"])

	assert.Equal(t, &Pagination{Page: 2, Limit: 20, Total: 41, TotalPages: 3}, NewPagination(2, 20, 41))
}
