// Package web serves the viewer pages and the JSON API behind them. Pages
// are rendered server-side from embedded templates; the watch page carries
// the shim script that relays player traffic to the WebSocket endpoint.
package web

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	session "github.com/example/tubeview/internal/platform/auth"
	"github.com/example/tubeview/internal/player"
	"github.com/example/tubeview/internal/watchstate"
	"github.com/example/tubeview/internal/youtube"
)

// VideoSource is the listing surface of the youtube client.
type VideoSource interface {
	SubscriptionFeed(ctx context.Context) ([]youtube.Video, error)
	Search(ctx context.Context, query string, n int) ([]youtube.Video, error)
	Trending(ctx context.Context, n int) ([]youtube.Video, error)
}

const listingSize = 25

type Handler struct {
	store    *watchstate.Store
	source   VideoSource
	sessions *session.Sessions
	tmpl     *template.Template
	log      *zap.Logger
}

func NewHandler(store *watchstate.Store, source VideoSource, sessions *session.Sessions, log *zap.Logger) (*Handler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Handler{
		store:    store,
		source:   source,
		sessions: sessions,
		tmpl:     tmpl,
		log:      log.Named("web"),
	}, nil
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/watch/{videoID}", h.handleWatch)
	r.Get("/auth/signin", h.handleSignin)
	r.Get("/auth/error", h.handleAuthError)
	r.Get("/privacy", h.handlePrivacy)
	r.Get("/terms", h.handleTerms)

	r.Get("/api/videos", h.handleVideos)
	r.Get("/api/watchstate", h.handleWatchStateList)
	r.Get("/api/queue/next", h.handleQueueNext)
	r.Group(func(r chi.Router) {
		r.Use(session.RequireUser(h.sessions))
		r.Delete("/api/watchstate", h.handleWatchStateClear)
		r.Delete("/api/watchstate/{videoID}", h.handleWatchStateRemove)
	})
}

type pageData struct {
	Title      string
	SignedIn   bool
	Query      string
	Videos     []youtube.Video
	Queue      string
	Progress   map[string]watchstate.Record
	FetchError string
	// watch page
	VideoID string
	Speeds  []float64
	NextURL string
	// auxiliary pages
	Redirect string
	Reason   string
}

func (h *Handler) page(r *http.Request, title string) pageData {
	return pageData{Title: title, SignedIn: h.sessions.SignedIn(r)}
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, "Home")

	source := r.URL.Query().Get("source")
	if source == "" {
		if data.SignedIn {
			source = "subscriptions"
		} else {
			source = "trending"
		}
	}
	if source == "subscriptions" && !data.SignedIn {
		http.Redirect(w, r, "/auth/signin", http.StatusFound)
		return
	}
	data.Query = r.URL.Query().Get("q")

	videos, err := h.listVideos(r.Context(), source, data.Query)
	if err != nil {
		h.log.Warn("listing failed", zap.String("source", source), zap.Error(err))
		data.FetchError = "The upstream video service did not respond. Try again in a moment."
	} else {
		data.Videos = videos
		data.Queue = joinIDs(videos)
		data.Progress = h.store.GetAll()
	}

	if err := h.render(w, "index", data); err != nil {
		h.log.Error("render index", zap.Error(err))
	}
}

func (h *Handler) listVideos(ctx context.Context, source, query string) ([]youtube.Video, error) {
	switch source {
	case "subscriptions":
		return h.source.SubscriptionFeed(ctx)
	case "search":
		if strings.TrimSpace(query) == "" {
			return []youtube.Video{}, nil
		}
		return h.source.Search(ctx, query, listingSize)
	default:
		return h.source.Trending(ctx, listingSize)
	}
}

func (h *Handler) handleWatch(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	data := h.page(r, "Watch")
	data.VideoID = videoID
	data.Speeds = player.SpeedLadder
	data.NextURL = h.nextInQueue(r, videoID)

	if err := h.render(w, "watch", data); err != nil {
		h.log.Error("render watch", zap.Error(err))
	}
}

// joinIDs flattens a listing into the comma-separated queue the watch page
// links carry.
func joinIDs(videos []youtube.Video) string {
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
	}
	return strings.Join(ids, ",")
}

// nextInQueue resolves the "Next" link when the watch page was opened from a
// listing that passed its session queue along.
func (h *Handler) nextInQueue(r *http.Request, videoID string) string {
	list := r.URL.Query().Get("list")
	if list == "" {
		return ""
	}
	ids := strings.Split(list, ",")
	current, err := strconv.Atoi(r.URL.Query().Get("idx"))
	if err != nil || current < 0 || current >= len(ids) || ids[current] != videoID {
		return ""
	}
	next, ok := player.Advance(ids, current, h.store)
	if !ok {
		return ""
	}
	q := url.Values{}
	q.Set("list", list)
	q.Set("idx", strconv.Itoa(next))
	return "/watch/" + ids[next] + "?" + q.Encode()
}

func (h *Handler) handleSignin(w http.ResponseWriter, r *http.Request) {
	if h.sessions.SignedIn(r) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	data := h.page(r, "Sign in")
	if red := r.URL.Query().Get("redirect"); strings.HasPrefix(red, "/") {
		data.Redirect = red
	}
	if err := h.render(w, "signin", data); err != nil {
		h.log.Error("render signin", zap.Error(err))
	}
}

var errorReasons = map[string]string{
	"not_configured":  "Google sign-in is not configured on this server.",
	"denied":          "Google reported that access was denied.",
	"bad_state":       "The sign-in link expired or was tampered with.",
	"missing_code":    "Google did not return an authorization code.",
	"exchange_failed": "Exchanging the authorization code with Google failed.",
	"userinfo_failed": "Google did not return your account details.",
	"storage_failed":  "The credential could not be stored.",
	"session_failed":  "A session could not be created.",
}

func (h *Handler) handleAuthError(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, "Sign-in failed")
	data.Reason = errorReasons[r.URL.Query().Get("reason")]
	if data.Reason == "" {
		data.Reason = "Something went wrong during sign-in."
	}
	if err := h.render(w, "autherror", data); err != nil {
		h.log.Error("render auth error", zap.Error(err))
	}
}

func (h *Handler) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	if err := h.render(w, "privacy", h.page(r, "Privacy")); err != nil {
		h.log.Error("render privacy", zap.Error(err))
	}
}

func (h *Handler) handleTerms(w http.ResponseWriter, r *http.Request) {
	if err := h.render(w, "terms", h.page(r, "Terms")); err != nil {
		h.log.Error("render terms", zap.Error(err))
	}
}
