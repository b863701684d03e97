package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ppiankov/clientscore/internal/gateway"
	"github.com/ppiankov/clientscore/internal/model"
	"github.com/ppiankov/clientscore/internal/store"
)

// MockService implements Service for testing
type MockService struct {
	ClientFunc  func(ctx context.Context, id int64) (*model.ClientView, error)
	ListFunc    func(ctx context.Context, page, size int) ([]model.ClientSummary, error)
	PredictFunc func(ctx context.Context, id int64) (*model.ClientWithScore, error)
	ExplainFunc func(ctx context.Context, id int64) (model.Explanation, error)
}

func (m *MockService) Client(ctx context.Context, id int64) (*model.ClientView, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *MockService) List(ctx context.Context, page, size int) ([]model.ClientSummary, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, page, size)
	}
	return []model.ClientSummary{}, nil
}

func (m *MockService) Predict(ctx context.Context, id int64) (*model.ClientWithScore, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *MockService) Explain(ctx context.Context, id int64) (model.Explanation, error) {
	if m.ExplainFunc != nil {
		return m.ExplainFunc(ctx, id)
	}
	return nil, store.ErrNotFound
}

func newTestServer(mock *MockService) *Server {
	gin.SetMode(gin.TestMode)
	return NewServer(mock, nil, model.ServerConfig{})
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse error body %q: %v", w.Body.String(), err)
	}
	return body["error"]
}

func TestHandleHealth(t *testing.T) {
	w := doRequest(newTestServer(&MockService{}), http.MethodGet, "/healthz")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestHandleList(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantStatus   int
		wantPage     int
		wantSize     int
		expectCalled bool
	}{
		{"defaults", "", http.StatusOK, 0, 50, true},
		{"explicit", "?page=2&size=10", http.StatusOK, 2, 10, true},
		{"bad page", "?page=abc", http.StatusBadRequest, 0, 0, false},
		{"bad size", "?size=1.5", http.StatusBadRequest, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mock := &MockService{
				ListFunc: func(ctx context.Context, page, size int) ([]model.ClientSummary, error) {
					called = true
					if page != tt.wantPage || size != tt.wantSize {
						t.Errorf("Expected page=%d size=%d, got page=%d size=%d", tt.wantPage, tt.wantSize, page, size)
					}
					return []model.ClientSummary{{ID: 1, Display: "1 | 34 лет | Moscow"}}, nil
				},
			}

			w := doRequest(newTestServer(mock), http.MethodGet, "/api/clients"+tt.query)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if called != tt.expectCalled {
				t.Errorf("Expected service called=%v, got %v", tt.expectCalled, called)
			}
		})
	}
}

func TestHandleList_InvalidPageFromStore(t *testing.T) {
	mock := &MockService{
		ListFunc: func(ctx context.Context, page, size int) ([]model.ClientSummary, error) {
			return nil, store.ErrInvalidPage
		},
	}

	w := doRequest(newTestServer(mock), http.MethodGet, "/api/clients?page=-1")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleClient(t *testing.T) {
	mock := &MockService{
		ClientFunc: func(ctx context.Context, id int64) (*model.ClientView, error) {
			if id != 7 {
				return nil, store.ErrNotFound
			}
			attrs := model.NewAttributes(0)
			attrs.Set("segment", model.String("mass"))
			income := decimal.RequireFromString("85000.50")
			return &model.ClientView{ID: 7, Age: ptr(34), IncomeValue: &income, Features: attrs}, nil
		},
	}
	s := newTestServer(mock)

	w := doRequest(s, http.MethodGet, "/api/client/7")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if body["incomeValue"] != "85000.5" {
		t.Errorf("Expected decimal income as string, got %v", body["incomeValue"])
	}
	features, ok := body["features"].(map[string]any)
	if !ok || features["segment"] != "mass" {
		t.Errorf("Expected materialized features, got %v", body["features"])
	}
	if body["gender"] != nil {
		t.Errorf("Expected null gender, got %v", body["gender"])
	}

	w = doRequest(s, http.MethodGet, "/api/client/8")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if msg := errorBody(t, w); msg != store.ErrNotFound.Error() {
		t.Errorf("Expected not found message, got %q", msg)
	}
}

func TestHandleClient_InvalidID(t *testing.T) {
	for _, id := range []string{"abc", "1.5", "99999999999999999999"} {
		w := doRequest(newTestServer(&MockService{}), http.MethodGet, "/api/client/"+id)
		if w.Code != http.StatusBadRequest {
			t.Errorf("id %q: expected status 400, got %d", id, w.Code)
		}
	}
}

func TestHandlePredict(t *testing.T) {
	prob := 0.82
	decision := "APPROVE"

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"not found", fmt.Errorf("lookup: %w", store.ErrNotFound), http.StatusNotFound},
		{"gateway unavailable", &gateway.UnavailableError{Op: "predict", StatusCode: 503, Err: errors.New("down")}, http.StatusBadGateway},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockService{
				PredictFunc: func(ctx context.Context, id int64) (*model.ClientWithScore, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.ClientWithScore{
						Client:              model.ClientView{ID: id, Features: model.NewAttributes(0)},
						ApprovalProbability: &prob,
						Decision:            &decision,
					}, nil
				},
			}

			w := doRequest(newTestServer(mock), http.MethodPost, "/api/client/1/predict")
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}

			if tt.err == nil {
				var body struct {
					Client              model.ClientView `json:"client"`
					ApprovalProbability *float64         `json:"approvalProbability"`
					Decision            *string          `json:"decision"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatalf("Failed to parse response: %v", err)
				}
				if body.Client.ID != 1 || *body.ApprovalProbability != 0.82 || *body.Decision != "APPROVE" {
					t.Errorf("Unexpected body %s", w.Body.String())
				}
				return
			}
			if msg := errorBody(t, w); msg == "" {
				t.Error("Expected error message in body")
			}
		})
	}
}

func TestHandlePredict_HidesInternalErrors(t *testing.T) {
	mock := &MockService{
		PredictFunc: func(ctx context.Context, id int64) (*model.ClientWithScore, error) {
			return nil, errors.New("database password is hunter2")
		},
	}

	w := doRequest(newTestServer(mock), http.MethodPost, "/api/client/1/predict")
	if strings.Contains(w.Body.String(), "hunter2") {
		t.Errorf("Expected internal error details to stay in logs, got %s", w.Body.String())
	}
}

func TestHandlePredict_NullScore(t *testing.T) {
	mock := &MockService{
		PredictFunc: func(ctx context.Context, id int64) (*model.ClientWithScore, error) {
			return &model.ClientWithScore{Client: model.ClientView{ID: id, Features: model.NewAttributes(0)}}, nil
		},
	}

	w := doRequest(newTestServer(mock), http.MethodPost, "/api/client/3/predict")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"approvalProbability":null`) ||
		!strings.Contains(w.Body.String(), `"decision":null`) {
		t.Errorf("Expected explicit nulls, got %s", w.Body.String())
	}
}

func TestHandleExplain(t *testing.T) {
	mock := &MockService{
		ExplainFunc: func(ctx context.Context, id int64) (model.Explanation, error) {
			return model.Explanation{"base_value": json.Number("0.3")}, nil
		},
	}

	w := doRequest(newTestServer(mock), http.MethodPost, "/api/client/1/explain")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != `{"base_value":0.3}` {
		t.Errorf("Expected passthrough body, got %s", w.Body.String())
	}
}

func TestHandleExplain_Unavailable(t *testing.T) {
	mock := &MockService{
		ExplainFunc: func(ctx context.Context, id int64) (model.Explanation, error) {
			return nil, &gateway.UnavailableError{Op: "explain", Err: errors.New("not configured")}
		},
	}

	w := doRequest(newTestServer(mock), http.MethodPost, "/api/client/1/explain")
	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
}

func TestHandlePredict_WrongMethod(t *testing.T) {
	w := doRequest(newTestServer(&MockService{}), http.MethodGet, "/api/client/1/predict")
	if w.Code != http.StatusNotFound && w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected GET on predict to be rejected, got %d", w.Code)
	}
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(&MockService{}, nil, model.ServerConfig{MaxConnections: 2})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

// ptr returns a pointer to v
func ptr[T any](v T) *T { return &v }
