package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mvibes/tagstats/api"
)

func (s *Server) routes(router chi.Router) {
	router.Get("/health", s.handleHealth)

	router.Route("/chats/{chatID}", func(r chi.Router) {
		r.Get("/tags", s.handleAllTags)
		r.Get("/tags/top", s.handleTopTags)
		r.Get("/tags/{tag}", s.handleTag)
		r.Get("/users/{userID}", s.handleUser)
		r.Get("/contributors/top", s.handleContributors(false))
		r.Get("/contributors/bottom", s.handleContributors(true))
		r.Get("/services", s.handleServices)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rsp := &api.Response{}
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "Health check failed", "error", err)
		rsp.SetError("database_unavailable", "database is not reachable")
		s.respond(w, r, rsp, http.StatusInternalServerError)
		return
	}
	rsp.SetData(map[string]string{"database": "ok"})
	s.respond(w, r, rsp, http.StatusOK)
}

func (s *Server) handleAllTags(w http.ResponseWriter, r *http.Request) {
	rsp := &api.Response{}

	chatID, ok := s.chatID(w, r, rsp)
	if !ok {
		return
	}

	tags, err := s.store.AllTags(r.Context(), chatID)
	if err != nil {
		s.fail(w, r, rsp, err)
		return
	}
	rsp.SetData(map[string]any{"tags": tags})
	s.respond(w, r, rsp, http.StatusOK)
}

func (s *Server) handleTopTags(w http.ResponseWriter, r *http.Request) {
	rsp := &api.Response{}

	chatID, ok := s.chatID(w, r, rsp)
	if !ok {
		return
	}

	rows, err := s.store.TopTags(r.Context(), chatID, queryLimit(r, 10))
	if err != nil {
		s.fail(w, r, rsp, err)
		return
	}
	rsp.SetData(map[string]any{"tags": rows})
	s.respond(w, r, rsp, http.StatusOK)
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	rsp := &api.Response{}

	chatID, ok := s.chatID(w, r, rsp)
	if !ok {
		return
	}
	tag := "#" + chi.URLParam(r, "tag")

	links, err := s.store.LinksByTag(r.Context(), chatID, tag)
	if err != nil {
		s.fail(w, r, rsp, err)
		return
	}
	if links == nil {
		rsp.SetError("unknown_tag", "no links recorded for that tag")
		s.respond(w, r, rsp, http.StatusNotFound)
		return
	}

	author, err := s.store.FirstAuthorOfTag(r.Context(), chatID, tag)
	if err != nil {
		s.fail(w, r, rsp, err)
		return
	}
	contributor, err := s.store.TopContributorOfTag(r.Context(), chatID, tag)
	if err != nil {
		s.fail(w, r, rsp, err)
		return
	}

	rsp.SetData(map[string]any{
		"links":           links,
		"first_author":    author,
		"top_contributor": contributor,
	})
	s.respond(w, r, rsp, http.StatusOK)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	rsp := &api.Response{}

	chatID, ok := s.chatID(w, r, rsp)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		rsp.SetError("bad_request", "userID must be an integer")
		s.respond(w, r, rsp, http.StatusBadRequest)
		return
	}

	tags, err := s.store.TagsByAuthor(r.Context(), chatID, userID)
	if err != nil {
		s.fail(w, r, rsp, err)
		return
	}
	links, err := s.store.LinksByAuthor(r.Context(), chatID, userID)
	if err != nil {
		s.fail(w, r, rsp, err)
		return
	}
	foreign, err := s.store.ForeignTagEvents(r.Context(), chatID, userID)
	if err != nil {
		s.fail(w, r, rsp, err)
		return
	}

	rsp.SetData(map[string]any{
		"tags":               tags,
		"links":              links,
		"foreign_tag_events": foreign,
	})
	s.respond(w, r, rsp, http.StatusOK)
}

func (s *Server) handleContributors(bottom bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rsp := &api.Response{}

		chatID, ok := s.chatID(w, r, rsp)
		if !ok {
			return
		}
		limit := queryLimit(r, 5)

		var err error
		var rows any
		if bottom {
			rows, err = s.store.BottomContributors(r.Context(), chatID, limit)
		} else {
			rows, err = s.store.TopContributors(r.Context(), chatID, limit)
		}
		if err != nil {
			s.fail(w, r, rsp, err)
			return
		}
		rsp.SetData(map[string]any{"contributors": rows})
		s.respond(w, r, rsp, http.StatusOK)
	}
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	rsp := &api.Response{}

	chatID, ok := s.chatID(w, r, rsp)
	if !ok {
		return
	}

	rows, err := s.store.MusicServiceBreakdown(r.Context(), chatID)
	if err != nil {
		s.fail(w, r, rsp, err)
		return
	}
	rsp.SetData(map[string]any{"services": rows})
	s.respond(w, r, rsp, http.StatusOK)
}

func (s *Server) chatID(w http.ResponseWriter, r *http.Request, rsp *api.Response) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		rsp.SetError("bad_request", "chatID must be an integer")
		s.respond(w, r, rsp, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, rsp *api.Response, err error) {
	s.logger.ErrorContext(r.Context(), "Stats query failed", "path", r.URL.Path, "error", err)
	rsp.SetError("query_failed", "failed to run the requested query")
	s.respond(w, r, rsp, http.StatusInternalServerError)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, rsp *api.Response, code int) {
	rsp.Status = "ok"
	if rsp.Error != nil {
		rsp.Status = "error"
	}
	render.Status(r, code)
	render.JSON(w, r, rsp)
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 100 {
		return fallback
	}
	return limit
}
