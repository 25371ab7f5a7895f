package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	endpoints := []endpointInfo{
		{"/api/v1/health", []string{"GET"}, "Server health and version"},
	}
	if s.live() {
		endpoints = append(endpoints,
			endpointInfo{"/api/v1/bounds", []string{"GET"}, "Current upper and lower makespan bounds"},
			endpointInfo{"/api/v1/solutions", []string{"GET"}, "Best solutions found so far, ascending makespan. Accepts ?limit=n&offset=n"},
			endpointInfo{"/api/v1/solutions/best", []string{"GET"}, "Best solution found so far"},
		)
	}
	if s.store != nil {
		endpoints = append(endpoints,
			endpointInfo{"/api/v1/runs", []string{"GET"}, "Persisted runs, newest first"},
			endpointInfo{"/api/v1/runs/{id}", []string{"GET"}, "Single run"},
			endpointInfo{"/api/v1/runs/{id}/solutions", []string{"GET"}, "Final solutions of a run"},
		)
	}
	if s.gatherer != nil {
		endpoints = append(endpoints, endpointInfo{"/metrics", []string{"GET"}, "Prometheus metrics"})
	}
	respondOK(w, reqID, discoveryResponse{
		Name:        "makespan API",
		Version:     "v1",
		Description: "Status of P||Cmax solver runs",
		Endpoints:   endpoints,
	})
}
