package core

import "net/http"

// healthResponse is the JSON response body for the health check endpoint.
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
}

// HandleHealth reports process liveness unconditionally: the endpoint
// answers 200 whenever the HTTP listener is up, regardless of downstream
// dependency health. Field monitors use it to distinguish "service down"
// from "state store down", which surfaces per-request instead.
//
// This endpoint is public and is mounted at GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.Config != nil {
		resp.Service = s.Config.Service
		resp.Version = s.Config.Build.Version
	}
	JSON(w, r, http.StatusOK, resp)
}
