package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"fridgechef/internal/recipe"
	"fridgechef/internal/recommend"
)

// mockRecommender is a mock of the Recommender.
type mockRecommender struct {
	validateError  error
	recommendError error
	receivedRaw    []byte
	receivedWindow time.Duration
	receivedCount  int
}

func (m *mockRecommender) ValidateFridgePayload(ctx context.Context, raw []byte) (recommend.Fridge, error) {
	m.receivedRaw = raw
	if m.validateError != nil {
		return nil, m.validateError
	}
	return recommend.Fridge{"мясо": 200}, nil
}

func (m *mockRecommender) Recommend(ctx context.Context, fridge recommend.Fridge) ([]recommend.Recommendation, error) {
	if m.recommendError != nil {
		return nil, m.recommendError
	}
	return []recommend.Recommendation{{Name: "Салат «Русский»", Quantity: 0.5}}, nil
}

func (m *mockRecommender) LastRecommended(ctx context.Context, window time.Duration) (*recommend.LastRecommended, error) {
	m.receivedWindow = window
	return &recommend.LastRecommended{Recipes: []string{"Омлет"}}, nil
}

func (m *mockRecommender) MostPopular(ctx context.Context, count int) (*recommend.Popular, error) {
	m.receivedCount = count
	return &recommend.Popular{Components: []map[string]int64{{"яйцо": 3}}}, nil
}

// mockHealthChecker is a mock of the HealthChecker.
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Ping(ctx context.Context) error {
	return m.err
}

func newTestRouter(rec *mockRecommender, health *mockHealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(NewHandler(rec, health), nil)
}

func serve(r *gin.Engine, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestIndex(t *testing.T) {
	r := newTestRouter(&mockRecommender{}, &mockHealthChecker{})

	rr := serve(r, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/recipes/possible")
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
}

func TestPossibleRecipes(t *testing.T) {
	rec := &mockRecommender{}
	r := newTestRouter(rec, &mockHealthChecker{})

	rr := serve(r, http.MethodPost, "/recipes/possible", []byte(`{"мясо":200}`))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"name":"Салат «Русский»","quantity":0.5}]`, rr.Body.String())
	assert.Equal(t, `{"мясо":200}`, string(rec.receivedRaw))
}

func TestPossibleRecipes_ValidationError(t *testing.T) {
	rec := &mockRecommender{validateError: recipe.NewDecodeError()}
	r := newTestRouter(rec, &mockHealthChecker{})

	rr := serve(r, http.MethodPost, "/recipes/possible", []byte(`Hello`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to decode JSON."}`, rr.Body.String())
}

func TestPossibleRecipes_BodyTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &mockRecommender{}
	h := NewHandler(rec, &mockHealthChecker{})
	h.MaxBodyBytes = 16
	r := NewRouter(h, nil)

	rr := serve(r, http.MethodPost, "/recipes/possible", []byte(`{"мясо": 200, "огурец": 1, "картофель": 10}`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to decode JSON."}`, rr.Body.String())
	assert.Nil(t, rec.receivedRaw)
}

func TestPossibleRecipes_StoreErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"timeout", context.DeadlineExceeded, http.StatusRequestTimeout},
		{"integrity", &recipe.NotFoundError{Kind: "recipe", Name: "Борщ"}, http.StatusInternalServerError},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&mockRecommender{recommendError: tt.err}, &mockHealthChecker{})

			rr := serve(r, http.MethodPost, "/recipes/possible", []byte(`{"мясо":200}`))

			assert.Equal(t, tt.code, rr.Code)
			assert.NotContains(t, rr.Body.String(), "disk full")
		})
	}
}

func TestLastRecipes(t *testing.T) {
	rec := &mockRecommender{}
	r := newTestRouter(rec, &mockHealthChecker{})

	rr := serve(r, http.MethodGet, "/recipes/last", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"last_recommended_recipes":["Омлет"]}`, rr.Body.String())
	assert.Equal(t, time.Hour, rec.receivedWindow)

	rr = serve(r, http.MethodGet, "/recipes/last?window=60", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, time.Minute, rec.receivedWindow)

	rr = serve(r, http.MethodGet, "/recipes/last?window=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(r, http.MethodGet, "/recipes/last?window=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPopularComponents(t *testing.T) {
	rec := &mockRecommender{}
	r := newTestRouter(rec, &mockHealthChecker{})

	rr := serve(r, http.MethodGet, "/components/popular", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"most_popular_components":[{"яйцо":3}]}`, rr.Body.String())
	assert.Equal(t, 10, rec.receivedCount)

	rr = serve(r, http.MethodGet, "/components/popular?count=3", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, rec.receivedCount)

	rr = serve(r, http.MethodGet, "/components/popular?count=0x", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&mockRecommender{}, &mockHealthChecker{})
	rr := serve(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	r = newTestRouter(&mockRecommender{}, &mockHealthChecker{err: errors.New("closed")})
	rr = serve(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(&mockRecommender{}, &mockHealthChecker{})
	serve(r, http.MethodGet, "/recipes/last", nil)

	rr := serve(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "fridgechef_http_request_duration_seconds")
}
