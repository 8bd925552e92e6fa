package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"photo-rating/internal/events"
	"photo-rating/internal/metrics"
	"photo-rating/internal/models"
	"photo-rating/internal/services"
	"photo-rating/internal/storage"
	"photo-rating/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app   *fiber.App
	store *store.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	st := store.NewMemoryStore()
	files, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	hub := events.NewHub(log)
	m := metrics.New()
	tokens := services.NewTokenIssuer("test-secret", time.Hour)

	app := NewServer(Deps{
		Users:       services.NewUserService(st, tokens, 10, log),
		Photos:      services.NewPhotoService(st, files, events.Multi{hub}, m, 1<<20, log),
		Hub:         hub,
		Store:       st,
		Metrics:     m,
		Logger:      log,
		UploadDir:   files.Dir(),
		MaxUploadMB: 1,
	})
	return &testServer{app: app, store: st}
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func jsonRequest(method, path, token string, payload any) *http.Request {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func uploadRequest(t *testing.T, token, gender, age, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("gender", gender))
	require.NoError(t, w.WriteField("age", age))
	part, err := w.CreateFormFile("photo", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake image"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/photos/upload", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return req
}

func (s *testServer) register(t *testing.T, email string) (string, int64) {
	t.Helper()
	code, body := s.do(t, jsonRequest(http.MethodPost, "/api/register", "", models.RegisterRequest{Email: email, Password: "pw"}))
	require.Equal(t, http.StatusCreated, code, body)
	user := body["user"].(map[string]any)
	assert.Equal(t, float64(10), user["points"])
	return body["token"].(string), int64(user["id"].(float64))
}

func TestPhotoRatingFlow(t *testing.T) {
	s := newTestServer(t)
	tokenA, _ := s.register(t, "a@example.com")
	tokenB, idB := s.register(t, "b@example.com")

	code, body := s.do(t, uploadRequest(t, tokenA, "female", "27", "me.png"))
	require.Equal(t, http.StatusCreated, code, body)
	photo := body["photo"].(map[string]any)
	photoID := photo["id"].(float64)
	assert.Equal(t, false, photo["isActive"])
	assert.True(t, strings.HasPrefix(photo["filePath"].(string), "/uploads/"))

	// the stored file is served back
	code, _ = s.do(t, httptest.NewRequest(http.MethodGet, photo["filePath"].(string), nil))
	assert.Equal(t, http.StatusOK, code)

	// inactive photos are not offered
	code, body = s.do(t, jsonRequest(http.MethodGet, "/api/photos/to-rate", tokenB, nil))
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["photos"])

	code, body = s.do(t, jsonRequest(http.MethodPost, "/api/photos/toggle-active", tokenA, models.ToggleActiveRequest{PhotoID: int64(photoID), IsActive: true}))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Photo status updated", body["message"])

	code, body = s.do(t, jsonRequest(http.MethodGet, "/api/photos/to-rate?gender=female&minAge=20&maxAge=30", tokenB, nil))
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["photos"], 1)

	code, body = s.do(t, jsonRequest(http.MethodPost, "/api/photos/rate", tokenB, models.RateRequest{PhotoID: int64(photoID)}))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(11), body["points"])

	code, body = s.do(t, jsonRequest(http.MethodPost, "/api/photos/rate", tokenB, models.RateRequest{PhotoID: int64(photoID)}))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "You have already rated this photo", body["message"])

	code, body = s.do(t, jsonRequest(http.MethodPost, "/api/photos/rate", tokenA, models.RateRequest{PhotoID: int64(photoID)}))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Cannot rate your own photo", body["message"])

	code, body = s.do(t, jsonRequest(http.MethodGet, "/api/me", tokenA, nil))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(9), body["user"].(map[string]any)["points"])

	code, body = s.do(t, jsonRequest(http.MethodGet, "/api/photos/my-photos", tokenA, nil))
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["photos"], 1)

	code, body = s.do(t, jsonRequest(http.MethodGet, "/api/stats/photo/1", tokenA, nil))
	require.Equal(t, http.StatusOK, code)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["total"])

	code, _ = s.do(t, jsonRequest(http.MethodGet, "/api/stats/photo/1", tokenB, nil))
	assert.Equal(t, http.StatusNotFound, code)

	b, err := s.store.GetUser(t.Context(), idB)
	require.NoError(t, err)
	assert.Equal(t, 11, b.Points)
}

func TestUploadValidation(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register(t, "a@example.com")

	code, body := s.do(t, uploadRequest(t, token, "", "27", "me.png"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Gender and age are required", body["message"])

	code, _ = s.do(t, uploadRequest(t, token, "female", "old", "me.png"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, uploadRequest(t, token, "female", "27", "me.exe"))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestToggleActive_InsufficientBalance(t *testing.T) {
	s := newTestServer(t)
	token, id := s.register(t, "a@example.com")

	code, body := s.do(t, uploadRequest(t, token, "male", "40", "me.jpg"))
	require.Equal(t, http.StatusCreated, code)
	photoID := int64(body["photo"].(map[string]any)["id"].(float64))

	// spend the balance by having others rate the photo
	for i := 0; i < 10; i++ {
		other, _ := s.register(t, "r"+string(rune('a'+i))+"@example.com")
		code, _ := s.do(t, jsonRequest(http.MethodPost, "/api/photos/rate", other, models.RateRequest{PhotoID: photoID}))
		require.Equal(t, http.StatusOK, code)
	}

	code, body = s.do(t, jsonRequest(http.MethodPost, "/api/photos/toggle-active", token, models.ToggleActiveRequest{PhotoID: photoID, IsActive: true}))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Not enough points to activate photo", body["message"])

	p, err := s.store.GetPhoto(t.Context(), photoID)
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	u, err := s.store.GetUser(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Points)
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "a@example.com")

	code, body := s.do(t, jsonRequest(http.MethodGet, "/api/photos/my-photos", "", nil))
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Authentication failed", body["message"])

	code, _ = s.do(t, jsonRequest(http.MethodGet, "/api/photos/my-photos", "garbage", nil))
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, jsonRequest(http.MethodPost, "/api/login", "", models.LoginRequest{Email: "a@example.com", Password: "nope"}))
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = s.do(t, jsonRequest(http.MethodPost, "/api/login", "", models.LoginRequest{Email: "a@example.com", Password: "pw"}))
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["token"])

	// token in the query string works too
	code, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/me?access_token="+body["token"].(string), nil))
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, jsonRequest(http.MethodPost, "/api/register", "", models.RegisterRequest{Email: "a@example.com", Password: "pw"}))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestForgotPassword(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "a@example.com")

	code, _ := s.do(t, jsonRequest(http.MethodPost, "/api/forgot-password", "", models.ForgotPasswordRequest{}))
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := s.do(t, jsonRequest(http.MethodPost, "/api/forgot-password", "", models.ForgotPasswordRequest{Email: "x@example.com"}))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", body["message"])

	code, body = s.do(t, jsonRequest(http.MethodPost, "/api/forgot-password", "", models.ForgotPasswordRequest{Email: "a@example.com"}))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Password reset link has been sent to your email", body["message"])
}

func TestBadQueryAndParams(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register(t, "a@example.com")

	code, _ := s.do(t, jsonRequest(http.MethodGet, "/api/photos/to-rate?minAge=abc", token, nil))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, jsonRequest(http.MethodGet, "/api/photos/to-rate?gender=robot", token, nil))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, jsonRequest(http.MethodGet, "/api/stats/photo/zero", token, nil))
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := s.do(t, jsonRequest(http.MethodPost, "/api/photos/rate", token, map[string]any{}))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Photo ID is required", body["message"])
}

func TestHealthStatusAndMetrics(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "connected", body["database"])

	code, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Hello from API!", body["message"])

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "photorate_ratings_total")
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUpgradeRequired, code)
}
