package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"composehook/internal/deploy"
	"composehook/internal/security"
	"composehook/internal/stack"

	"github.com/go-chi/chi/v5"
)

const (
	// MaxPayloadBytes caps the deploy request body. The payload is two short
	// strings; anything near the cap is garbage.
	MaxPayloadBytes = 64 * 1024
)

// deployRequest is the webhook payload.
type deployRequest struct {
	Service string `json:"service"`
	Tag     string `json:"tag"`
}

// HandleDeploy handles deploy webhook requests.
//
// The sequence is fixed: auth has already been checked by RequireToken;
// here the body is validated, the service and tag are checked against the
// allow-lists, then the pull and restart run synchronously. The response
// reports the real outcome: 400 invalid input, 500 failed command, 200
// success.
func (s *Server) HandleDeploy(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		s.Metrics.Reject("content_type")
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Content-Type must be application/json"})
		return
	}

	// MaxBytesReader also covers chunked bodies, which carry no
	// Content-Length to check up front.
	r.Body = http.MaxBytesReader(w, r.Body, MaxPayloadBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.Metrics.Reject("payload_size")
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Payload too large"})
			return
		}
		s.Logger.Error("Failed to read request body", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read payload"})
		return
	}

	if len(body) == 0 {
		s.Metrics.Reject("empty_body")
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing request body"})
		return
	}

	var req deployRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.Logger.Warn("Failed to parse JSON payload", "error", err)
		s.Metrics.Reject("bad_json")
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON payload"})
		return
	}

	if req.Service == "" || req.Tag == "" {
		s.Metrics.Reject("missing_fields")
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Fields 'service' and 'tag' are required"})
		return
	}

	if err := security.ValidateServiceName(req.Service); err != nil {
		s.Logger.Warn("Invalid service name in deploy request", "service", req.Service, "error", err)
		s.Metrics.Reject("invalid_service")
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid service name: %v", err)})
		return
	}

	// Service allow-list: derived from the stacks directory
	st, err := s.Registry.Get(req.Service)
	if err != nil {
		s.Metrics.Reject("unknown_service")
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown service"})
		return
	}

	if err := security.ValidateTag(req.Tag); err != nil {
		s.Logger.Warn("Invalid tag in deploy request", "tag", req.Tag, "error", err)
		s.Metrics.Reject("invalid_tag")
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid tag: %v", err)})
		return
	}

	// Tag allow-list: the fixed global list plus per-stack extras
	if !s.Config.TagAllowed(req.Tag) && !st.TagAllowed(req.Tag) {
		s.Metrics.Reject("disallowed_tag")
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Tag not allowed"})
		return
	}

	s.Logger.Info("Deployment started", "service", st.Name, "tag", req.Tag, "image", st.ImageRef(req.Tag))

	start := time.Now()
	response, statusCode := s.Deploy(r.Context(), st, req.Tag)
	duration := time.Since(start).Seconds()

	record := deploy.Record{
		Stack:           st.Name,
		Image:           st.Image,
		Tag:             req.Tag,
		StartedAt:       start,
		DurationSeconds: duration,
	}

	if statusCode == http.StatusOK {
		record.Status = "success"
		s.Logger.Info("Deployment completed", "service", st.Name, "tag", req.Tag, "duration_s", duration)
	} else {
		record.Status = "failed"
		if errMsg, ok := response["error"].(string); ok {
			record.Error = errMsg
		}
		s.Logger.Error("Deployment failed", "service", st.Name, "tag", req.Tag, "response", response)
	}

	s.Status.Add(record)
	s.Metrics.ObserveDeploy(st.Name, record.Status, duration)

	s.respondJSON(w, statusCode, response)
}

// runDeployment is the default DeployFunc: it executes the real pull and
// restart for the stack.
func (s *Server) runDeployment(ctx context.Context, st *stack.Stack, tag string) (map[string]interface{}, int) {
	d := deploy.NewDeployment(st, tag, s.Config.PullTimeout, s.Config.RestartTimeout, s.Config.ExposeOutput)
	return d.Execute(ctx)
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":      "ok",
		"stacks":      s.Registry.List(),
		"stack_count": s.Registry.Count(),
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleStatusAll returns the latest deployment for every stack.
func (s *Server) HandleStatusAll(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"stacks": s.Status.LatestAll(),
	})
}

// HandleStatus returns deployment status for a single stack.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	stackName := chi.URLParam(r, "stackName")

	if err := security.ValidateServiceName(stackName); err != nil {
		s.Logger.Warn("Invalid stack name in status request", "stack", stackName, "error", err)
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid stack name: %v", err)})
		return
	}

	if _, err := s.Registry.Get(stackName); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown service"})
		return
	}

	response := map[string]interface{}{
		"stack":              stackName,
		"recent_deployments": s.Status.Recent(stackName),
	}
	if latest, ok := s.Status.Latest(stackName); ok {
		response["latest_deployment"] = latest
	}

	s.respondJSON(w, http.StatusOK, response)
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}
