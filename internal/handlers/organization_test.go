package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/field-service-api/internal/constants"
	"github.com/yukikurage/field-service-api/internal/dto"
	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/repository"
	"github.com/yukikurage/field-service-api/internal/services"
	"github.com/yukikurage/field-service-api/internal/testutil"
	"gorm.io/gorm"
)

type organizationTestEnv struct {
	db         *gorm.DB
	handler    *OrganizationHandler
	orgService *services.OrganizationService
}

func setupOrganizationTestEnv(t *testing.T) organizationTestEnv {
	t.Helper()

	db := testutil.NewDB(t)
	orgService := services.NewOrganizationService(repository.NewOrganizationRepository(db))

	return organizationTestEnv{
		db:         db,
		handler:    NewOrganizationHandler(orgService),
		orgService: orgService,
	}
}

func orgTestContext(method, url string, body []byte, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(constants.ContextKeyUserID, userID)

	return c, w
}

func TestOrganizationHandler_CreateOrganization(t *testing.T) {
	env := setupOrganizationTestEnv(t)

	user := testutil.CreateUser(t, env.db, "owner")

	payload := map[string]string{"name": "New Org"}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	c, w := orgTestContext(http.MethodPost, "/api/organizations", body, user.ID)

	env.handler.CreateOrganization(c)

	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.OrganizationDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, payload["name"], response.Name)
	require.NotEmpty(t, response.InviteCode)
}

func TestOrganizationHandler_ListOrganizations(t *testing.T) {
	env := setupOrganizationTestEnv(t)

	user := testutil.CreateUser(t, env.db, "member")

	_, err := env.orgService.CreateOrganization(context.Background(), services.CreateOrganizationInput{
		Name:    "Org One",
		OwnerID: user.ID,
	})
	require.NoError(t, err)

	c, w := orgTestContext(http.MethodGet, "/api/organizations", nil, user.ID)

	env.handler.ListOrganizations(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string][]dto.OrganizationWithRoleDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	orgs := response["organizations"]
	require.Len(t, orgs, 1)
	require.Equal(t, "Org One", orgs[0].OrganizationDTO.Name)
	require.Equal(t, models.RoleOwner, orgs[0].Role)
	require.True(t, orgs[0].Permissions.CanManage)
	require.True(t, orgs[0].Permissions.CanDispatch)
}

func TestOrganizationHandler_JoinOrganization_InvalidCode(t *testing.T) {
	env := setupOrganizationTestEnv(t)

	user := testutil.CreateUser(t, env.db, "user")

	body, err := json.Marshal(map[string]string{"invite_code": "UNKNOWN"})
	require.NoError(t, err)

	c, w := orgTestContext(http.MethodPost, "/api/organizations/join", body, user.ID)

	env.handler.JoinOrganization(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrganizationRoutes_JoinAndRoles(t *testing.T) {
	env := newAPIEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner")
	newcomer := testutil.CreateUser(t, env.db, "newcomer")

	w := env.do(http.MethodPost, "/api/organizations", owner.ID, map[string]string{"name": "Acme Plumbing"})
	require.Equal(t, http.StatusCreated, w.Code)
	org := decode[dto.OrganizationDTO](t, w)

	w = env.do(http.MethodPost, "/api/organizations/join", newcomer.ID, map[string]string{"invite_code": org.InviteCode})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/organizations/join", newcomer.ID, map[string]string{"invite_code": org.InviteCode})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodGet, urlf("/api/organizations/%d", org.ID), newcomer.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[dto.OrganizationDetailDTO](t, w)
	assert.Equal(t, models.RoleEmployee, detail.YourRole)
	require.Len(t, detail.Members, 2)
	assert.Equal(t, "owner", detail.Members[0].User.Username)
	assert.Empty(t, detail.OrganizationDTO.InviteCode)
	assert.Equal(t, dto.Permissions{}, detail.Permissions)

	// Employees cannot manage the organization.
	w = env.do(http.MethodPut, urlf("/api/organizations/%d", org.ID), newcomer.ID, map[string]string{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPut, urlf("/api/organizations/%d/members/%d/role", org.ID, newcomer.ID), owner.ID,
		map[string]string{"role": "operator"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "operator", decode[map[string]interface{}](t, w)["role"])

	w = env.do(http.MethodPut, urlf("/api/organizations/%d/members/%d/role", org.ID, newcomer.ID), owner.ID,
		map[string]string{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, urlf("/api/organizations/%d/members/%d/role", org.ID, owner.ID), owner.ID,
		map[string]string{"role": "manager"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Operators dispatch tasks but do not own the organization.
	w = env.do(http.MethodPost, "/api/tasks", newcomer.ID, map[string]interface{}{
		"organization_id": org.ID,
		"address":         "3 Quay Road",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	w = env.do(http.MethodPost, urlf("/api/organizations/%d/regenerate-code", org.ID), newcomer.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodDelete, urlf("/api/organizations/%d/members/%d", org.ID, newcomer.ID), owner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, urlf("/api/organizations/%d", org.ID), newcomer.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrganizationRoutes_RegenerateAndDelete(t *testing.T) {
	env := newAPIEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner")

	w := env.do(http.MethodPost, "/api/organizations", owner.ID, map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusCreated, w.Code)
	org := decode[dto.OrganizationDTO](t, w)

	w = env.do(http.MethodPost, urlf("/api/organizations/%d/regenerate-code", org.ID), owner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, org.InviteCode, decode[dto.OrganizationDTO](t, w).InviteCode)

	w = env.do(http.MethodPut, urlf("/api/organizations/%d", org.ID), owner.ID, map[string]string{"name": "Acme Heating"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acme Heating", decode[dto.OrganizationDTO](t, w).Name)

	w = env.do(http.MethodPut, urlf("/api/organizations/%d", org.ID), owner.ID, map[string]string{"timezone": "Asia/Tokyo"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[dto.OrganizationDTO](t, w)
	assert.Equal(t, "Asia/Tokyo", updated.Timezone)
	assert.Equal(t, "Acme Heating", updated.Name)

	w = env.do(http.MethodPut, urlf("/api/organizations/%d", org.ID), owner.ID, map[string]string{"timezone": "Mars/Olympus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPut, urlf("/api/organizations/%d", org.ID), owner.ID, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodDelete, urlf("/api/organizations/%d", org.ID), owner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, urlf("/api/organizations/%d", org.ID), owner.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
