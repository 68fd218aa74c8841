package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/packhouse/packhouse/pkg/cache"
	"github.com/packhouse/packhouse/pkg/catalog"
	"github.com/packhouse/packhouse/pkg/command"
	pherrors "github.com/packhouse/packhouse/pkg/errors"
	"github.com/packhouse/packhouse/pkg/manifest"
	"github.com/packhouse/packhouse/pkg/render"
	"github.com/packhouse/packhouse/pkg/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHierarchy serves the catalog as a nested tree (?view=tree) or
// as the flat view-model for lazy-loading UIs (default).
func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	m, err := s.catalog(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if r.URL.Query().Get("view") == "tree" {
		s.writeJSON(w, http.StatusOK, catalog.BuildTree(m))
		return
	}
	s.writeJSON(w, http.StatusOK, catalog.BuildViewModel(m))
}

// graphBody is the JSON form of the catalog graph.
type graphBody struct {
	Roots    []string               `json:"roots"`
	HasCycle bool                   `json:"has_cycle"`
	Contains []catalog.ContainsEdge `json:"contains"`
	Depends  []catalog.DependsEdge  `json:"depends"`
}

// handleGraph serves the dependency graph as JSON (default), DOT, SVG
// or PNG via ?format=.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	m, err := s.catalog(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	g := catalog.BuildGraph(m.PackList())

	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		s.writeJSON(w, http.StatusOK, graphBody{
			Roots:    g.Roots,
			HasCycle: g.HasCycle,
			Contains: g.ContainsEdges,
			Depends:  g.DependsEdges,
		})
		return
	}

	opts := render.Options{
		Pages:    r.URL.Query().Get("pages") == "true",
		Versions: true,
	}
	dot := render.ToDOT(g, opts)

	switch format {
	case "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = w.Write([]byte(dot))
	case "svg":
		svg, err := render.RenderSVG(dot)
		if err != nil {
			s.writeError(w, pherrors.Wrap(pherrors.ErrCodeInternal, err, "render graph"))
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
	case "png":
		png, err := render.RenderPNG(dot)
		if err != nil {
			s.writeError(w, pherrors.Wrap(pherrors.ErrCodeInternal, err, "render graph"))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	default:
		s.writeError(w, pherrors.New(pherrors.ErrCodeInvalidInput, "unknown format: %q", format))
	}
}

// handleResolve expands ?packs=a,b into the full dependency closure.
// With ?locks=true the response annotates each pack as requested or
// locked.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	m, err := s.catalog(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var requested []string
	if raw := r.URL.Query().Get("packs"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				requested = append(requested, id)
			}
		}
	}

	g := catalog.BuildGraph(m.PackList())
	if r.URL.Query().Get("locks") == "true" {
		s.writeJSON(w, http.StatusOK, catalog.ResolveWithLocksOn(g, requested))
		return
	}
	s.writeJSON(w, http.StatusOK, catalog.ResolveOn(g, requested))
}

// sessionRequest is the body of POST /api/session.
type sessionRequest struct {
	Command string         `json:"command"`
	UserID  string         `json:"user_id"`
	RepoURL string         `json:"repo_url,omitempty"`
	Ref     string         `json:"ref,omitempty"`
	RefID   string         `json:"ref_id,omitempty"`
	Params  command.Params `json:"params,omitempty"`
}

// sessionResponse returns the resulting state plus warnings. Hash is
// duplicated at the top level so clients can echo it back on apply
// without digging into the state.
type sessionResponse struct {
	State    *session.State `json:"state"`
	Hash     string         `json:"hash"`
	Warnings []string       `json:"warnings,omitempty"`
}

// handleSession runs one session command: load the prior state, fetch
// the catalog when the command needs it, dispatch, and persist the
// result when the handler asks for it.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, pherrors.Wrap(pherrors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if req.UserID == "" {
		s.writeError(w, pherrors.New(pherrors.ErrCodeMissingField, "user_id is required"))
		return
	}

	cmd, err := command.ParseCommand(req.Command)
	if err != nil {
		s.writeError(w, err)
		return
	}

	cc := command.Context{
		UserID:  req.UserID,
		RepoURL: req.RepoURL,
		Ref:     req.Ref,
		RefID:   req.RefID,
	}
	if cc.RefID == "" {
		cc.RefID = RefID(req.RepoURL, req.Ref)
	}

	ctx := r.Context()
	prior, err := s.store.Get(ctx, cc.UserID, cc.RefID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var m *manifest.Manifest
	switch cmd {
	case command.CommandInit, command.CommandRefresh, command.CommandClear:
		m, err = s.provider.Manifest(ctx, cc.RepoURL, cc.Ref)
		if err != nil {
			s.writeError(w, err)
			return
		}
	}

	result, err := s.engine.Handle(ctx, cmd, prior, m, req.Params, cc)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if result.Save {
		if err := s.store.Set(ctx, result.State); err != nil {
			s.writeError(w, err)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, sessionResponse{
		State:    result.State,
		Hash:     result.State.Hash,
		Warnings: result.Warnings,
	})
}

// catalog fetches the manifest for a read-only catalog request.
func (s *Server) catalog(r *http.Request) (*manifest.Manifest, error) {
	q := r.URL.Query()
	return s.provider.Manifest(r.Context(), q.Get("repo"), q.Get("ref"))
}

// RefID derives a stable catalog-ref identifier from a repository URL
// and ref name.
func RefID(repoURL, ref string) string {
	if repoURL == "" && ref == "" {
		return "local"
	}
	return cache.Hash([]byte(repoURL + "\n" + ref))[:12]
}
