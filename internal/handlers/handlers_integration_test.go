package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/services"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

type testServer struct {
	t     *testing.T
	app   *fiber.App
	admin *http.Cookie
}

// setupApp builds the application over an in-memory SQLite database with
// one administrator account.
func setupApp(t *testing.T, images handlers.ImageStore) *testServer {
	t.Helper()
	db, err := database.Connect(database.Config{
		Driver: database.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{
		AppEnv:    "test",
		JWTSecret: "test_jwt_secret_0123456789",
		JWTTTL:    time.Hour,
	}
	deps := app.Dependencies{
		Repos:  app.NewGORMRepositories(db),
		Images: images,
		Checks: map[string]func(context.Context) error{
			"database": sqlDB.PingContext,
		},
	}

	_, err = app.NewServices(cfg, deps).Users.CreateAdmin(context.Background(), services.RegisterInput{
		Username: "admin",
		Email:    adminEmail,
		Password: adminPassword,
	})
	require.NoError(t, err)

	s := &testServer{t: t, app: app.NewApp(cfg, deps)}
	s.admin = s.login(adminEmail, adminPassword)
	return s
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func (s *testServer) do(method, path string, body interface{}, cookie *http.Cookie) *http.Response {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	return resp
}

func (s *testServer) decode(resp *http.Response, v interface{}) {
	s.t.Helper()
	defer resp.Body.Close()
	require.NoError(s.t, json.NewDecoder(resp.Body).Decode(v))
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "jwt" {
			return c
		}
	}
	return nil
}

func (s *testServer) login(email, password string) *http.Cookie {
	s.t.Helper()
	resp := s.do(http.MethodPost, "/api/users/auth", fiber.Map{"email": email, "password": password}, nil)
	require.Equal(s.t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(s.t, cookie)
	resp.Body.Close()
	return cookie
}

func (s *testServer) register(username, email, password string) (map[string]interface{}, *http.Cookie) {
	s.t.Helper()
	resp := s.do(http.MethodPost, "/api/users", fiber.Map{"username": username, "email": email, "password": password}, nil)
	require.Equal(s.t, http.StatusCreated, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(s.t, cookie)
	var user map[string]interface{}
	s.decode(resp, &user)
	return user, cookie
}

func (s *testServer) createCategory(name string) string {
	s.t.Helper()
	resp := s.do(http.MethodPost, "/api/categories", fiber.Map{"name": name}, s.admin)
	require.Equal(s.t, http.StatusCreated, resp.StatusCode)
	var category map[string]interface{}
	s.decode(resp, &category)
	return category["id"].(string)
}

func productBody(name, categoryID string) fiber.Map {
	return fiber.Map{
		"name":        name,
		"description": name + " description",
		"quantity":    3,
		"price":       49.5,
		"category":    categoryID,
		"brand":       "Acme",
		"image":       "/images/" + name + ".jpg",
	}
}

func (s *testServer) createProduct(name, categoryID string) string {
	s.t.Helper()
	resp := s.do(http.MethodPost, "/api/products", productBody(name, categoryID), s.admin)
	require.Equal(s.t, http.StatusCreated, resp.StatusCode)
	var product map[string]interface{}
	s.decode(resp, &product)
	return product["id"].(string)
}

func TestCatalogScenario(t *testing.T) {
	s := setupApp(t, nil)

	resp := s.do(http.MethodPost, "/api/categories", fiber.Map{"name": "Shoes"}, s.admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var category map[string]interface{}
	s.decode(resp, &category)
	categoryID, _ := category["id"].(string)
	require.NotEmpty(t, categoryID)

	resp = s.do(http.MethodPost, "/api/categories", fiber.Map{"name": "Shoes"}, s.admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]interface{}
	s.decode(resp, &body)
	assert.Equal(t, "ConflictError", body["error"])

	resp = s.do(http.MethodPost, "/api/products", productBody("Runner", categoryID), s.admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var product map[string]interface{}
	s.decode(resp, &product)
	productID := product["id"].(string)
	assert.EqualValues(t, 0, product["numReviews"])
	assert.EqualValues(t, 0, product["rating"])

	resp = s.do(http.MethodGet, "/api/products/"+productID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s.decode(resp, &product)
	assert.Equal(t, categoryID, product["category"])

	_, userA := s.register("alice", "alice@example.com", "alice-password")
	_, userB := s.register("bob", "bob@example.com", "bob-password")

	resp = s.do(http.MethodPost, "/api/products/"+productID+"/review", fiber.Map{"rating": 4, "comment": "nice"}, userA)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodGet, "/api/products/"+productID, nil, nil)
	s.decode(resp, &product)
	assert.EqualValues(t, 4, product["rating"])
	assert.EqualValues(t, 1, product["numReviews"])

	resp = s.do(http.MethodPost, "/api/products/"+productID+"/review", fiber.Map{"rating": 2}, userA)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	s.decode(resp, &body)
	assert.Equal(t, "ConflictError", body["error"])
	assert.Equal(t, "product already reviewed", body["message"])

	resp = s.do(http.MethodGet, "/api/products/"+productID, nil, nil)
	s.decode(resp, &product)
	assert.EqualValues(t, 4, product["rating"])

	resp = s.do(http.MethodPost, "/api/products/"+productID+"/review", fiber.Map{"rating": 2}, userB)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodGet, "/api/products/"+productID, nil, nil)
	s.decode(resp, &product)
	assert.EqualValues(t, 2, product["numReviews"])
	assert.EqualValues(t, 3, product["rating"])
	reviews, _ := product["reviews"].([]interface{})
	require.Len(t, reviews, 2)
	assert.Equal(t, "alice", reviews[0].(map[string]interface{})["name"])
}

func TestProductRules(t *testing.T) {
	s := setupApp(t, nil)
	categoryID := s.createCategory("Books")

	missing := productBody("Novel", categoryID)
	delete(missing, "name")
	resp := s.do(http.MethodPost, "/api/products", missing, s.admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]interface{}
	s.decode(resp, &body)
	assert.Equal(t, "Name is required", body["message"])
	assert.Equal(t, "ValidationError", body["error"])

	resp = s.do(http.MethodPost, "/api/products", productBody("Novel", uuid.NewString()), s.admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	s.decode(resp, &body)
	assert.Equal(t, "category not found", body["message"])

	_, user := s.register("carol", "carol@example.com", "carol-password")
	resp = s.do(http.MethodPost, "/api/products", productBody("Novel", categoryID), user)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodPost, "/api/products", productBody("Novel", categoryID), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodGet, "/api/products/not-an-id", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	s.decode(resp, &body)
	assert.Equal(t, "Invalid Id of not-an-id", body["message"])

	resp = s.do(http.MethodGet, "/api/products/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	productID := s.createProduct("Novel", categoryID)
	update := productBody("Thick Novel", categoryID)
	resp = s.do(http.MethodPut, "/api/products/"+productID, update, s.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var product map[string]interface{}
	s.decode(resp, &product)
	assert.Equal(t, "Thick Novel", product["name"])

	resp = s.do(http.MethodPut, "/api/products/"+uuid.NewString(), update, s.admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodPost, "/api/products/"+productID+"/review", fiber.Map{"rating": 9}, user)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodDelete, "/api/products/"+productID, nil, s.admin)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = s.do(http.MethodDelete, "/api/products/"+productID, nil, s.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "null", string(raw), "deleting a missing product answers null")
}

func TestProductListings(t *testing.T) {
	s := setupApp(t, nil)
	shoes := s.createCategory("Shoes")
	hats := s.createCategory("Hats")

	for i := 0; i < 7; i++ {
		s.createProduct(fmt.Sprintf("Shoe %d", i), shoes)
	}
	s.createProduct("Red Hat", hats)

	var page services.ProductPage
	resp := s.do(http.MethodGet, "/api/products", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s.decode(resp, &page)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Pages)
	assert.True(t, page.HasMore)
	assert.Len(t, page.Products, 6)

	resp = s.do(http.MethodGet, "/api/products?page=2", nil, nil)
	s.decode(resp, &page)
	assert.Len(t, page.Products, 2)
	assert.False(t, page.HasMore)

	resp = s.do(http.MethodGet, "/api/products?keyword=SHOE&page=2", nil, nil)
	s.decode(resp, &page)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Products, 1)

	resp = s.do(http.MethodGet, "/api/products/top", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var top []map[string]interface{}
	s.decode(resp, &top)
	assert.Len(t, top, 4)

	resp = s.do(http.MethodGet, "/api/products/new", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var newest []map[string]interface{}
	s.decode(resp, &newest)
	assert.Len(t, newest, 4)

	resp = s.do(http.MethodDelete, "/api/categories/"+hats, nil, s.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var deleted map[string]interface{}
	s.decode(resp, &deleted)
	assert.Equal(t, "Hats", deleted["name"])

	resp = s.do(http.MethodDelete, "/api/categories/"+hats, nil, s.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	resp = s.do(http.MethodGet, "/api/products/allProducts", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var featured []map[string]interface{}
	s.decode(resp, &featured)
	require.Len(t, featured, 8)
	resolved := 0
	for _, p := range featured {
		if p["name"] == "Red Hat" {
			assert.Nil(t, p["category"], "deleted category resolves to null")
			continue
		}
		if c, ok := p["category"].(map[string]interface{}); ok && c["name"] == "Shoes" {
			resolved++
		}
	}
	assert.Equal(t, 7, resolved)
}

func TestCategoryEndpoints(t *testing.T) {
	s := setupApp(t, nil)
	id := s.createCategory("Toys")

	resp := s.do(http.MethodPut, "/api/categories/"+id, fiber.Map{"name": "Games"}, s.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var category map[string]interface{}
	s.decode(resp, &category)
	assert.Equal(t, "Games", category["name"])

	resp = s.do(http.MethodPut, "/api/categories/"+uuid.NewString(), fiber.Map{"name": "Other"}, s.admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodGet, "/api/categories", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]interface{}
	s.decode(resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Games", list[0]["name"])

	resp = s.do(http.MethodGet, "/api/categories/"+uuid.NewString(), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestAuthRegisterAndLogin(t *testing.T) {
	s := setupApp(t, nil)

	user, cookie := s.register("dave", "dave@example.com", "dave-password")
	assert.Equal(t, "dave", user["username"])
	assert.Equal(t, false, user["isAdmin"])
	assert.NotContains(t, user, "password")
	assert.True(t, cookie.HttpOnly)

	// Test Duplicate Registration
	resp := s.do(http.MethodPost, "/api/users", fiber.Map{"username": "dave2", "email": "dave@example.com", "password": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]interface{}
	s.decode(resp, &body)
	assert.Equal(t, "user already exists", body["message"])

	resp = s.do(http.MethodGet, "/api/users", nil, s.admin)
	var users []map[string]interface{}
	s.decode(resp, &users)
	assert.Len(t, users, 2, "duplicate registration stores nothing")

	// Test wrong password
	resp = s.do(http.MethodPost, "/api/users/auth", fiber.Map{"email": "dave@example.com", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Nil(t, sessionCookie(resp))
	s.decode(resp, &body)
	assert.Equal(t, "password mismatch", body["message"])

	resp = s.do(http.MethodPost, "/api/users/auth", fiber.Map{"email": "nobody@example.com", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	cookie = s.login("dave@example.com", "dave-password")

	resp = s.do(http.MethodGet, "/api/users/profile", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile map[string]interface{}
	s.decode(resp, &profile)
	assert.Equal(t, "dave@example.com", profile["email"])

	resp = s.do(http.MethodPut, "/api/users/profile", fiber.Map{"password": "new-password"}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	s.login("dave@example.com", "new-password")
	resp = s.do(http.MethodPost, "/api/users/auth", fiber.Map{"email": "dave@example.com", "password": "dave-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodPost, "/api/users/logout", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := sessionCookie(resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.Expires.Before(time.Now()))
	resp.Body.Close()

	resp = s.do(http.MethodGet, "/api/users/profile", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestUserAdministration(t *testing.T) {
	s := setupApp(t, nil)
	erin, erinCookie := s.register("erin", "erin@example.com", "erin-password")
	erinID := erin["id"].(string)

	resp := s.do(http.MethodGet, "/api/users", nil, erinCookie)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodGet, "/api/users", nil, s.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "$2a$")

	var users []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &users))
	var adminID string
	for _, u := range users {
		if u["email"] == adminEmail {
			adminID = u["id"].(string)
		}
	}
	require.NotEmpty(t, adminID)

	resp = s.do(http.MethodDelete, "/api/users/"+adminID, nil, s.admin)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var body map[string]interface{}
	s.decode(resp, &body)
	assert.Equal(t, "cannot delete admin", body["message"])

	resp = s.do(http.MethodPut, "/api/users/"+erinID, fiber.Map{"username": "erin b"}, s.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated map[string]interface{}
	s.decode(resp, &updated)
	assert.Equal(t, "erin b", updated["username"])
	assert.Equal(t, false, updated["isAdmin"])

	resp = s.do(http.MethodGet, "/api/users/"+erinID, nil, s.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodDelete, "/api/users/"+erinID, nil, s.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodGet, "/api/users/"+erinID, nil, s.admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodGet, "/api/users/profile", nil, erinCookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "token of a deleted user is rejected")
	resp.Body.Close()

	resp = s.do(http.MethodGet, "/api/users/abc", nil, s.admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

type memoryImageStore struct {
	stored map[string][]byte
}

func (m *memoryImageStore) PutImage(_ context.Context, name, _ string, r io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.stored[name] = data
	return "/images/" + name, nil
}

func uploadRequest(t *testing.T, filename, contentType string, cookie *http.Cookie) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.AddCookie(cookie)
	return req
}

func TestUpload(t *testing.T) {
	store := &memoryImageStore{stored: map[string][]byte{}}
	s := setupApp(t, store)

	resp, err := s.app.Test(uploadRequest(t, "shoe.png", "image/png", s.admin), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body map[string]interface{}
	s.decode(resp, &body)
	assert.Contains(t, body["image"], "/images/")
	assert.Len(t, store.stored, 1)

	resp, err = s.app.Test(uploadRequest(t, "notes.txt", "text/plain", s.admin), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	disabled := setupApp(t, nil)
	resp, err = disabled.app.Test(uploadRequest(t, "shoe.png", "image/png", disabled.admin), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := setupApp(t, nil)

	resp := s.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]interface{}
	s.decode(resp, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, map[string]interface{}{"database": "up"}, health["components"])

	resp = s.do(http.MethodGet, "/api/nothing-here", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body map[string]interface{}
	s.decode(resp, &body)
	assert.Equal(t, "NotFoundError", body["error"])
}
