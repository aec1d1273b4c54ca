package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Yulian302/lfusys-services-media/internal/health"
	"github.com/aws/aws-lambda-go/events"
	"github.com/gorilla/mux"
)

const (
	maxBodyBytes       = 1 << 20
	healthCheckTimeout = 500 * time.Millisecond
)

// NewRouter serves every API function over plain HTTP, translating requests
// into API Gateway proxy events.
func (h *Handler) NewRouter(checks []health.ReadinessCheck) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.healthz(checks)).Methods(http.MethodGet)

	for _, route := range h.Routes() {
		r.HandleFunc(route.Path, h.serve(route)).Methods(route.Method)
		r.HandleFunc(route.Path, h.preflight).Methods(http.MethodOptions)
	}

	return r
}

func (h *Handler) serve(route Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		req := events.APIGatewayProxyRequest{
			Resource:              route.Path,
			Path:                  r.URL.Path,
			HTTPMethod:            r.Method,
			Headers:               make(map[string]string, len(r.Header)),
			QueryStringParameters: make(map[string]string),
			PathParameters:        mux.Vars(r),
			Body:                  string(body),
		}
		for k := range r.Header {
			req.Headers[k] = r.Header.Get(k)
		}
		for k := range r.URL.Query() {
			req.QueryStringParameters[k] = r.URL.Query().Get(k)
		}

		res, err := route.Handle(r.Context(), req)
		if err != nil {
			h.logger.Error("handler returned error", "function", route.Function, "error", err)
			res, _ = h.fail(route.Function, err)
		}

		writeResponse(w, res)
	}
}

func (h *Handler) preflight(w http.ResponseWriter, _ *http.Request) {
	for k, v := range h.headers() {
		w.Header().Set(k, v)
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeResponse(w http.ResponseWriter, res events.APIGatewayProxyResponse) {
	for k, v := range res.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(res.StatusCode)
	_, _ = io.WriteString(w, res.Body)
}

func (h *Handler) healthz(checks []health.ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(len(checks)+1)*healthCheckTimeout)
		defer cancel()

		results, ok := health.RunChecks(ctx, checks, healthCheckTimeout)

		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
			h.logger.Warn("readiness check failed", "results", results)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ready":  ok,
			"checks": results,
		})
	}
}
