// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Toolset is the set of tools a worker exposes. Implementations own their
// own execution semantics (shelling out, touching the filesystem, ...); the
// server only frames requests and responses around them.
type Toolset interface {
	List() []Tool
	Call(r *http.Request, name string, arguments map[string]any) CallToolResult
}

// Server serves the tool protocol's single /mcp endpoint plus a root health
// check the supervisor polls during startup.
type Server struct {
	tools  Toolset
	access *zap.SugaredLogger
}

// NewServer builds a Server around tools, with a zap access logger
// matching the teacher's own use of *zap.SugaredLogger for HTTP routers.
func NewServer(tools Toolset) *Server {
	access, err := zap.NewProduction()
	if err != nil {
		access = zap.NewNop()
	}
	return &Server{tools: tools, access: access.Sugar()}
}

// Handler builds the chi router: GET / for readiness, POST /mcp for the
// tool protocol envelope.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/mcp", s.handleMCP)

	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		s.access.Infow("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}

func (s *Server) handleMCP(w http.ResponseWriter, req *http.Request) {
	var in request
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		writeResponse(w, response{Error: &responseError{Code: codeParseError, Message: err.Error()}})
		return
	}

	switch in.Method {
	case "tools/list":
		result := ToolsListResult{Tools: s.tools.List()}
		writeResult(w, in.ID, result)
	case "tools/call":
		var params toolsCallParams
		if err := json.Unmarshal(in.Params, &params); err != nil {
			writeResponse(w, response{ID: in.ID, Error: &responseError{Code: codeInternalError, Message: "invalid params: " + err.Error()}})
			return
		}
		result := s.tools.Call(req, params.Name, params.Arguments)
		writeResult(w, in.ID, result)
	default:
		writeResponse(w, response{ID: in.ID, Error: &responseError{Code: codeMethodNotFound, Message: "method not found: " + in.Method}})
	}
}

func writeResult(w http.ResponseWriter, id int, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		writeResponse(w, response{ID: id, Error: &responseError{Code: codeInternalError, Message: err.Error()}})
		return
	}
	writeResponse(w, response{ID: id, Result: raw})
}

func writeResponse(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
