package server

import (
	"net/http"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/kitchen/pkg/buildinfo"
	"github.com/matzehuels/kitchen/pkg/dashboard"
	"github.com/matzehuels/kitchen/pkg/nodemap"
)

func (s *Server) query(r *http.Request) dashboard.Query {
	return dashboard.ParseQuery(r.URL.Query(), s.dash.Config.Repo)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	data, err := s.dash.List(r.Context(), s.query(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, r, http.StatusOK, data)
}

func (s *Server) handleVirt(w http.ResponseWriter, r *http.Request) {
	data, err := s.dash.Virt(r.Context(), s.query(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, r, http.StatusOK, data)
}

// graphResponse adds browser-facing URLs to the graph view.
type graphResponse struct {
	*dashboard.GraphData
	ImageURL  string `json:"image_url,omitempty"`
	RenderURL string `json:"render_url,omitempty"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	q := s.query(r)
	data, err := s.dash.Graph(r.Context(), q, r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	resp := graphResponse{GraphData: data}
	if data.Image != "" {
		resp.ImageURL = "/static/" + path.Base(data.Image)
		resp.RenderURL = "/graph/" + nodemap.FileName(data.Format) + "?" + data.Filter.Values().Encode()
	}
	s.respondJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleGraphImage(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	art, err := s.dash.GraphImage(r.Context(), s.query(r), format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	switch art.Format {
	case nodemap.FormatPNG:
		w.Header().Set("Content-Type", "image/png")
	default:
		w.Header().Set("Content-Type", "image/svg+xml")
	}
	cache := "miss"
	if art.Cached {
		cache = "hit"
	}
	w.Header().Set("X-Kitchen-Cache", cache)
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(art.Data)
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	extended := r.URL.Query().Get("extended") != ""
	nodes, err := s.dash.Nodes(r.Context(), extended)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, r, http.StatusOK, nodes)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.dash.Node(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, r, http.StatusOK, n)
}

func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.dash.Roles(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, r, http.StatusOK, roles)
}

func (s *Server) handlePlugin(w http.ResponseWriter, r *http.Request) {
	data, err := s.dash.Plugin(r.Context(), r, chi.URLParam(r, "name"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, r, http.StatusOK, data)
}

// Health is the body of /healthz.
type Health struct {
	Status   string     `json:"status"`
	Version  string     `json:"version"`
	LoadedAt time.Time  `json:"loaded_at"`
	SyncedAt *time.Time `json:"synced_at,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.dash.LoadedAt(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	h := Health{Status: "ok", Version: buildinfo.Version, LoadedAt: loaded}
	if s.opts.SyncdateFile != "" {
		if fi, err := os.Stat(s.opts.SyncdateFile); err == nil {
			t := fi.ModTime()
			h.SyncedAt = &t
		}
	}
	s.respondJSON(w, r, http.StatusOK, h)
}
