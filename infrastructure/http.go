package infrastructure

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/collabtext/otrelay/application"
)

// HTTPServer serves the collaborator endpoints: process health and a
// read-only view of a single document. Neither endpoint is part of the
// convergence-correctness core; both are thin reads against the Registry.
type HTTPServer struct {
	registry *application.Registry
}

// NewHTTPServer builds a *mux.Router with the two collaborator routes
// wired to registry.
func NewHTTPServer(registry *application.Registry) *mux.Router {
	s := &HTTPServer{registry: registry}
	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/documents/{id}", s.handleDocument).Methods(http.MethodGet)
	return r
}

type healthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	Timestamp string `json:"timestamp"`
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Documents: s.registry.Count(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

type documentResponse struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Version     uint64 `json:"version"`
	ActiveUsers int    `json:"active_users"`
}

func (s *HTTPServer) handleDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	doc, ok := s.registry.Get(id)
	if !ok {
		http.Error(w, "unknown document", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{
		ID:          id,
		Content:     doc.Content(),
		Version:     doc.Version(),
		ActiveUsers: doc.UserCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
