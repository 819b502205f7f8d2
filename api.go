package main

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"log/slog"
	"net/http"
)

const accessPath = "/access"

// AccessAPI exposes the access listing over API Gateway and, for local
// runs, a plain HTTP router.
type AccessAPI struct {
	reader AccessLister
}

func NewAccessAPI(reader AccessLister) *AccessAPI {
	return &AccessAPI{reader: reader}
}

// HandleAPIGatewayRequest serves GET /access. A failed listing is returned as
// an error so the platform reports it.
func (a *AccessAPI) HandleAPIGatewayRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.Path != accessPath && req.Resource != accessPath {
		return jsonResponse(http.StatusNotFound, map[string]string{"message": fmt.Sprintf("no route for %s", req.Path)})
	}
	if req.HTTPMethod != http.MethodGet {
		return jsonResponse(http.StatusMethodNotAllowed, map[string]string{"message": fmt.Sprintf("method %s not allowed", req.HTTPMethod)})
	}

	items, err := a.reader.ListAccess(ctx)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	return jsonResponse(http.StatusOK, items)
}

func (a *AccessAPI) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get(accessPath, a.getAccess)
	r.Handle("/metrics", promhttp.Handler())
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": fmt.Sprintf("no route for %s", r.URL.Path)})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": fmt.Sprintf("method %s not allowed", r.Method)})
	})

	return r
}

func (a *AccessAPI) getAccess(w http.ResponseWriter, r *http.Request) {
	items, err := a.reader.ListAccess(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "error listing access events", "request_id", middleware.GetReqID(r.Context()), "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("error writing response", "error", err)
	}
}

func jsonResponse(status int, v any) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("error encoding response: %w", err)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}
