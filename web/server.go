package web

import (
	"bytes"
	"errors"
	"image/png"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	montage "github.com/mfay/montage"
	"github.com/mfay/montage/cache"
	"github.com/mfay/montage/media"
)

// Server is the HTTP surface over a running backend. The store and hash
// cache are optional; their routes report failure when absent.
type Server struct {
	backend   *montage.Backend
	store     cache.FrameStore
	hashCache *cache.FrameHashCache
	router    chi.Router
}

func NewServer(b *montage.Backend, store cache.FrameStore, hashCache *cache.FrameHashCache) *Server {
	s := &Server{
		backend:   b,
		store:     store,
		hashCache: hashCache,
	}

	r := chi.NewRouter()
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/frame/{hash}", s.handleFrame)
	r.Post("/api/render/frame", s.handleRenderFrame)
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.backend.Status()

	busy := 0
	for _, b := range st.Workers {
		if b {
			busy++
		}
	}

	body := map[string]any{
		"attached":        st.Attached,
		"queue_len":       st.QueueLen,
		"pending_updates": st.PendingUpdates,
		"workers":         len(st.Workers),
		"workers_busy":    busy,
	}
	if s.hashCache != nil {
		body["cached_frames"] = s.hashCache.Len()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeErr(w, http.StatusNotFound, "no_store", "no frame store configured")
		return
	}

	hash, err := strconv.ParseUint(chi.URLParam(r, "hash"), 16, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_hash", "hash must be hex")
		return
	}

	f, err := s.store.Load(r.Context(), media.FrameHash(hash))
	if errors.Is(err, cache.ErrFrameNotFound) {
		writeErr(w, http.StatusNotFound, "not_found", "no frame for that hash")
		return
	}
	if err != nil {
		montage.Logger().Warn("frame load failed", "component", "web", "error", err)
		writeErr(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	writePNG(w, f)
}

type renderFrameRequest struct {
	Time string `json:"time"`
}

func (s *Server) handleRenderFrame(w http.ResponseWriter, r *http.Request) {
	var req renderFrameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	t, err := media.ParseRational(req.Time)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_time", err.Error())
		return
	}

	ticket := s.backend.RenderFrame(t)
	if ticket == nil {
		writeErr(w, http.StatusConflict, "no_subject", "no graph attached")
		return
	}

	// The request context doubles as the wait bound: a client hanging up
	// cancels its render.
	res, err := ticket.Wait(r.Context())
	if errors.Is(err, r.Context().Err()) && err != nil {
		ticket.Cancel()
		writeErr(w, http.StatusGatewayTimeout, "timeout", "render did not finish in time")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}

	writePNG(w, res.Frame)
}

func writePNG(w http.ResponseWriter, f *media.Frame) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, f.ToImage()); err != nil {
		writeErr(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}
