// Package controlplane exposes a read/command HTTP surface over a
// running pipeline's rule, trigger, and batch state. It is pure
// operational visibility: nothing here feeds back into packet
// processing, and a deployment that never starts this server behaves
// identically to one that does.
//
// Grounded on this codebase's gorilla/mux handler shape
// (PathPrefix+Subrouter, HandleFunc+Methods chains, a ServeHTTP that
// just delegates to the router) and its JSON error-response
// convention.
package controlplane

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/k4hvh/madbridge/internal/batch"
	"github.com/k4hvh/madbridge/internal/rules"
	"github.com/k4hvh/madbridge/internal/trigger"
)

// Server is the HTTP handler for the control plane. It satisfies
// http.Handler so callers can wrap it in their own http.Server (or TLS
// listener) however they see fit.
type Server struct {
	router *mux.Router
	store  *rules.Store
	batch  *batch.Manager
	engine *trigger.Engine
	auth   *Authenticator // nil disables bearer-token enforcement
}

// New builds a Server backed by store, batchMgr, and triggerEngine. auth
// may be nil, in which case every route is open.
func New(store *rules.Store, batchMgr *batch.Manager, triggerEngine *trigger.Engine, auth *Authenticator) *Server {
	s := &Server{
		router: mux.NewRouter(),
		store:  store,
		batch:  batchMgr,
		engine: triggerEngine,
		auth:   auth,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	if s.auth != nil {
		api.Use(s.auth.Middleware)
	}

	api.HandleFunc("/rules", s.listRules).Methods(http.MethodGet)
	api.HandleFunc("/rules/{name}/enable", s.setRuleEnabled(true)).Methods(http.MethodPost)
	api.HandleFunc("/rules/{name}/disable", s.setRuleEnabled(false)).Methods(http.MethodPost)
	api.HandleFunc("/batches", s.listBatches).Methods(http.MethodGet)
	api.HandleFunc("/activations", s.listActivations).Methods(http.MethodGet)

	s.router.HandleFunc("/healthz", s.healthCheck).Methods(http.MethodGet)
}

// ServeHTTP satisfies http.Handler by delegating to the mux router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ruleStatus struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	names := s.store.Names()
	out := make([]ruleStatus, 0, len(names))
	for _, name := range names {
		cr, ok := s.store.ByName(name)
		if !ok {
			continue
		}
		out = append(out, ruleStatus{Name: name, Enabled: cr.Enabled()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) setRuleEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		var err error
		if enabled {
			err = s.store.Enable(name)
		} else {
			err = s.store.Disable(name)
		}
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, ruleStatus{Name: name, Enabled: enabled})
	}
}

type batchGroupView struct {
	Key            string    `json:"key"`
	BatchID        string    `json:"batch_id"`
	Members        int       `json:"members"`
	Threshold      int       `json:"threshold"`
	Packets        int       `json:"packets"`
	Direction      string    `json:"direction"`
	TimeoutForward bool      `json:"timeout_forward"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Server) listBatches(w http.ResponseWriter, r *http.Request) {
	groups := s.batch.Snapshot()
	out := make([]batchGroupView, 0, len(groups))
	for _, g := range groups {
		out = append(out, batchGroupView{
			Key:            g.Key,
			BatchID:        string(g.BatchID),
			Members:        g.MemberCount,
			Threshold:      g.Threshold,
			Packets:        g.PacketCount,
			Direction:      string(g.Direction),
			TimeoutForward: g.TimeoutForward,
			CreatedAt:      g.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type activationView struct {
	RuleName  string    `json:"rule_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) listActivations(w http.ResponseWriter, r *http.Request) {
	expirations := s.engine.Activations()
	out := make([]activationView, 0, len(expirations))
	for name, deadline := range expirations {
		out = append(out, activationView{RuleName: name, ExpiresAt: deadline})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
