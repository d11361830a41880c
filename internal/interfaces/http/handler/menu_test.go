package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	accessapp "github.com/erp/payments/internal/application/access"
	"github.com/erp/payments/internal/domain/access"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMenuRepository implements access.MenuRepository for testing
type MockMenuRepository struct {
	mock.Mock
}

func (m *MockMenuRepository) FindByID(ctx context.Context, id uuid.UUID) (*access.Menu, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*access.Menu), args.Error(1)
}

func (m *MockMenuRepository) FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*access.Menu, error) {
	args := m.Called(ctx, companyID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*access.Menu), args.Error(1)
}

func (m *MockMenuRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]access.Menu, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).([]access.Menu), args.Error(1)
}

func (m *MockMenuRepository) Save(ctx context.Context, menu *access.Menu) error {
	args := m.Called(ctx, menu)
	return args.Error(0)
}

func (m *MockMenuRepository) DeleteRestrictions(ctx context.Context, menuID uuid.UUID, restrictionIDs []uuid.UUID) error {
	args := m.Called(ctx, menuID, restrictionIDs)
	return args.Error(0)
}

type menuFixture struct {
	repo   *MockMenuRepository
	router *gin.Engine
}

func newMenuFixture(companyID, userID uuid.UUID, groupIDs []string) *menuFixture {
	f := &menuFixture{repo: new(MockMenuRepository)}
	service := accessapp.NewMenuService(f.repo, nil, nil)

	f.router = gin.New()
	f.router.Use(func(c *gin.Context) {
		setJWTContext(c, companyID, userID)
		if len(groupIDs) > 0 {
			c.Set("jwt_group_ids", groupIDs)
		}
		c.Next()
	})
	NewMenuHandler(service).RegisterRoutes(f.router.Group("/api/v1"))
	return f
}

func buildMenu(t *testing.T, companyID uuid.UUID, code, name string) *access.Menu {
	menu, err := access.NewMenu(companyID, code, name, nil)
	require.NoError(t, err)
	return menu
}

func TestMenuHandler_Create(t *testing.T) {
	companyID := uuid.New()
	userID := uuid.New()

	t.Run("creates menu", func(t *testing.T) {
		f := newMenuFixture(companyID, userID, nil)
		f.repo.On("FindByCode", mock.Anything, companyID, "accounting.payments").
			Return(nil, nil)
		f.repo.On("Save", mock.Anything, mock.AnythingOfType("*access.Menu")).
			Return(nil)

		body, _ := json.Marshal(gin.H{
			"code": "accounting.payments",
			"name": "Payments",
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/menus", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "accounting.payments", data["code"])
		assert.Equal(t, "Payments", data["name"])
		f.repo.AssertExpectations(t)
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		f := newMenuFixture(companyID, userID, nil)
		existing := buildMenu(t, companyID, "accounting.payments", "Payments")
		f.repo.On("FindByCode", mock.Anything, companyID, "accounting.payments").
			Return(existing, nil)

		body, _ := json.Marshal(gin.H{
			"code": "accounting.payments",
			"name": "Payments",
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/menus", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing name rejected by binding", func(t *testing.T) {
		f := newMenuFixture(companyID, userID, nil)

		body, _ := json.Marshal(gin.H{"code": "accounting.payments"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/menus", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMenuHandler_GetByID(t *testing.T) {
	companyID := uuid.New()
	userID := uuid.New()

	t.Run("returns menu with restrictions", func(t *testing.T) {
		f := newMenuFixture(companyID, userID, nil)
		menu := buildMenu(t, companyID, "settings", "Settings")
		require.NoError(t, menu.RestrictUser(uuid.New()))
		f.repo.On("FindByID", mock.Anything, menu.ID).Return(menu, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/menus/"+menu.ID.String(), nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "settings", data["code"])
		assert.Len(t, data["restrictions"], 1)
	})

	t.Run("menu of another company is hidden", func(t *testing.T) {
		f := newMenuFixture(companyID, userID, nil)
		other := buildMenu(t, uuid.New(), "settings", "Settings")
		f.repo.On("FindByID", mock.Anything, other.ID).Return(other, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/menus/"+other.ID.String(), nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMenuHandler_Restrict(t *testing.T) {
	companyID := uuid.New()
	userID := uuid.New()

	t.Run("restricts a group", func(t *testing.T) {
		f := newMenuFixture(companyID, userID, nil)
		menu := buildMenu(t, companyID, "settings", "Settings")
		groupID := uuid.New()
		f.repo.On("FindByID", mock.Anything, menu.ID).Return(menu, nil)
		f.repo.On("Save", mock.Anything, mock.AnythingOfType("*access.Menu")).Return(nil)

		body, _ := json.Marshal(gin.H{"group_id": groupID.String()})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost,
			"/api/v1/menus/"+menu.ID.String()+"/restrictions", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Len(t, data["restrictions"], 1)
	})

	t.Run("restriction without target rejected", func(t *testing.T) {
		f := newMenuFixture(companyID, userID, nil)
		menu := buildMenu(t, companyID, "settings", "Settings")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost,
			"/api/v1/menus/"+menu.ID.String()+"/restrictions", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMenuHandler_Visible(t *testing.T) {
	companyID := uuid.New()
	userID := uuid.New()
	groupID := uuid.New()

	t.Run("filters restricted menus", func(t *testing.T) {
		f := newMenuFixture(companyID, userID, []string{groupID.String()})

		open := buildMenu(t, companyID, "dashboard", "Dashboard")
		byUser := buildMenu(t, companyID, "settings", "Settings")
		require.NoError(t, byUser.RestrictUser(userID))
		byGroup := buildMenu(t, companyID, "audit", "Audit")
		require.NoError(t, byGroup.RestrictGroup(groupID))

		f.repo.On("FindAllForCompany", mock.Anything, companyID, mock.Anything).
			Return([]access.Menu{*open, *byUser, *byGroup}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/menus/visible", nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		items := resp.Data.([]interface{})
		require.Len(t, items, 1)
		item := items[0].(map[string]interface{})
		assert.Equal(t, "dashboard", item["code"])
	})

	t.Run("requires user identity", func(t *testing.T) {
		f := &menuFixture{repo: new(MockMenuRepository)}
		service := accessapp.NewMenuService(f.repo, nil, nil)
		f.router = gin.New()
		f.router.Use(func(c *gin.Context) {
			// company present, no user identity
			c.Set("jwt_company_id", companyID.String())
			c.Next()
		})
		NewMenuHandler(service).RegisterRoutes(f.router.Group("/api/v1"))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/menus/visible", nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
