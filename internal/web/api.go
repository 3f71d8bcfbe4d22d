package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/tubeview/internal/platform/api"
	"github.com/example/tubeview/internal/platform/httpserver"
	"github.com/example/tubeview/internal/player"
)

type videosResponse struct {
	Source string `json:"source"`
	Videos any    `json:"videos"`
}

func (h *Handler) handleVideos(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "subscriptions"
	}
	query := r.URL.Query().Get("q")

	switch source {
	case "subscriptions":
		if !h.sessions.SignedIn(r) {
			api.Unauthorized(w, "AUTH_MISSING", "Sign in to list subscriptions", rid)
			return
		}
	case "search":
		if strings.TrimSpace(query) == "" {
			api.BadRequest(w, "MISSING_QUERY", "source=search requires q", rid, nil)
			return
		}
	case "trending":
	default:
		api.BadRequest(w, "BAD_SOURCE", "source must be subscriptions, search or trending", rid, nil)
		return
	}

	videos, err := h.listVideos(r.Context(), source, query)
	if err != nil {
		h.log.Warn("api listing failed", zap.String("source", source), zap.Error(err))
		api.FetchFailed(w, "Upstream video service failed", rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, videosResponse{Source: source, Videos: videos})
}

func (h *Handler) handleWatchStateList(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, h.store.GetAll())
}

func (h *Handler) handleWatchStateRemove(w http.ResponseWriter, r *http.Request) {
	h.store.Remove(chi.URLParam(r, "videoID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWatchStateClear(w http.ResponseWriter, r *http.Request) {
	h.store.Clear()
	w.WriteHeader(http.StatusNoContent)
}

type queueNextResponse struct {
	Next    int    `json:"next"`
	VideoID string `json:"videoId"`
	Done    bool   `json:"done"`
}

func (h *Handler) handleQueueNext(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())

	list := r.URL.Query().Get("ids")
	if list == "" {
		api.BadRequest(w, "MISSING_IDS", "ids is required", rid, nil)
		return
	}
	ids := strings.Split(list, ",")
	current, err := strconv.Atoi(r.URL.Query().Get("current"))
	if err != nil {
		api.BadRequest(w, "BAD_CURRENT", "current must be an index into ids", rid, nil)
		return
	}

	next, ok := player.Advance(ids, current, h.store)
	if !ok {
		api.WriteJSON(w, http.StatusOK, queueNextResponse{Done: true})
		return
	}
	api.WriteJSON(w, http.StatusOK, queueNextResponse{Next: next, VideoID: ids[next]})
}
