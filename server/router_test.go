package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cpi-server/server/handlers"

	"github.com/gorilla/mux"
)

// MockCpiHandler is a mock implementation of CpiRoutes.
type MockCpiHandler struct{}

func (h *MockCpiHandler) GetCpi(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "cpi"}`))
}

// MockPlotHandler is a mock implementation of PlotRoutes.
type MockPlotHandler struct{}

func (h *MockPlotHandler) GetPlotsNearby(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "plots nearby"}`))
}

func (h *MockPlotHandler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "pong"}`))
}

func TestRouter_RegisterRoutes(t *testing.T) {
	// Setup
	router := mux.NewRouter()
	appRouter := NewRouter(&MockCpiHandler{}, &MockPlotHandler{}, router, time.Second)
	appRouter.RegisterRoutes()
	handler := appRouter.Handler()

	// Test Cases
	tests := []struct {
		name       string
		method     string
		path       string
		statusCode int
		response   string
	}{
		{
			name:       "Plot CPI",
			method:     "GET",
			path:       "/api/plot?id=1",
			statusCode: http.StatusOK,
			response:   `{"message": "cpi"}`,
		},
		{
			name:       "Poly CPI",
			method:     "GET",
			path:       "/api/poly?xmin=-100&xmax=-99.99&ymin=40&ymax=40.01",
			statusCode: http.StatusOK,
			response:   `{"message": "cpi"}`,
		},
		{
			name:       "Get Plots Nearby",
			method:     "GET",
			path:       "/api/plots/nearby",
			statusCode: http.StatusOK,
			response:   `{"message": "plots nearby"}`,
		},
		{
			name:       "Ping Route",
			method:     "GET",
			path:       "/ping",
			statusCode: http.StatusOK,
			response:   `{"status": "pong"}`,
		},
		{
			name:       "Wrong Method",
			method:     "POST",
			path:       "/api/plot",
			statusCode: http.StatusMethodNotAllowed,
		},
		{
			name:       "Invalid Route",
			method:     "GET",
			path:       "/invalid",
			statusCode: http.StatusNotFound,
		},
	}

	// Run tests
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(test.method, test.path, nil)
			req.Header.Set("Origin", "http://example.com")
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			// Assert status code
			if rr.Code != test.statusCode {
				t.Errorf("Expected status %d, got %d", test.statusCode, rr.Code)
			}

			// Assert response body, if applicable
			if test.response != "" && rr.Body.String() != test.response {
				t.Errorf("Expected response %s, got %s", test.response, rr.Body.String())
			}

			if test.method == "GET" && rr.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Errorf("Expected CORS header *, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router := mux.NewRouter()
	appRouter := NewRouter(&MockCpiHandler{}, &MockPlotHandler{}, router, time.Second)
	appRouter.RegisterRoutes()

	rr := httptest.NewRecorder()
	appRouter.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/ping", nil))

	if rr.Header().Get(handlers.REQUEST_ID_HEADER) == "" {
		t.Errorf("Expected a generated %s header", handlers.REQUEST_ID_HEADER)
	}
}

func TestRouter_Preflight(t *testing.T) {
	router := mux.NewRouter()
	appRouter := NewRouter(&MockCpiHandler{}, &MockPlotHandler{}, router, time.Second)
	appRouter.RegisterRoutes()

	req := httptest.NewRequest("OPTIONS", "/api/plot", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rr := httptest.NewRecorder()
	appRouter.Handler().ServeHTTP(rr, req)

	if rr.Code >= 300 {
		t.Errorf("Expected a successful preflight, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected CORS header *, got %q", got)
	}
}
