package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/stocklens/stocklens/internal/errors"
	"github.com/stocklens/stocklens/internal/imaging"
	"github.com/stocklens/stocklens/internal/session"
	"github.com/stocklens/stocklens/internal/speech"
)

// SessionHeader identifies the caller's session. It is echoed on every
// response, carrying a fresh id when the request had none.
const SessionHeader = "X-Session-ID"

// ImageField is the multipart field holding an upload.
const ImageField = "image"

// multipartOverhead covers form boundaries and headers around the image bytes.
const multipartOverhead = 1 << 20

// SessionResponse wraps a state snapshot.
type SessionResponse struct {
	SessionID string        `json:"session_id"`
	State     session.State `json:"state"`
}

// SpeakRequest selects the text to read: either literal text or a metadata
// field. Blank text is accepted and ignored.
type SpeakRequest struct {
	Text  string `json:"text,omitempty"`
	Field string `json:"field,omitempty"`
}

// SpeakResponse reports whether playback started. Playing is false when the
// request was ignored (nothing to read, or a playback already in flight).
type SpeakResponse struct {
	SessionID string           `json:"session_id"`
	Playing   bool             `json:"playing"`
	Playback  *speech.Playback `json:"playback,omitempty"`
}

// SessionHandler serves the /v1 session API.
type SessionHandler struct {
	Sessions       *session.Store
	Clips          *speech.ClipStore
	MaxUploadBytes int64
}

// Register mounts the session and clip routes on r.
func (h *SessionHandler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/session", h.GetSession)
		r.Post("/session/image", h.UploadImage)
		r.Delete("/session/image", h.ClearImage)
		r.Post("/session/analyze", h.Analyze)
		r.Post("/session/speak", h.Speak)
		r.Get("/clips/{id}", h.Clip)
	})
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) *session.Session {
	sess, _ := h.Sessions.Get(r.Header.Get(SessionHeader))
	w.Header().Set(SessionHeader, sess.ID)
	return sess
}

func (h *SessionHandler) maxUpload() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return imaging.DefaultMaxBytes
}

// GetSession returns the current state.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	respondJSON(w, http.StatusOK, SessionResponse{SessionID: sess.ID, State: sess.Snapshot()})
}

// UploadImage replaces the session's image with the multipart upload.
func (h *SessionHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	limit := h.maxUpload()

	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	file, header, err := r.FormFile(ImageField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, r, fmt.Errorf("%w: request body over %d bytes", imaging.ErrTooLarge, tooLarge.Limit))
			return
		}
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err,
			fmt.Sprintf("multipart field %q with an image file is required", ImageField)))
		return
	}
	defer func() { _ = file.Close() }()

	// Read one byte past the limit so imaging.Load can report the overflow.
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "read image: "+err.Error()))
		return
	}

	asset, err := imaging.Load(header.Filename, data, imaging.Options{MaxBytes: limit})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, SessionResponse{SessionID: sess.ID, State: sess.Select(asset)})
}

// ClearImage removes the image and its results.
func (h *SessionHandler) ClearImage(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	respondJSON(w, http.StatusOK, SessionResponse{SessionID: sess.ID, State: sess.Clear()})
}

// Analyze classifies the selected image and returns the resulting state.
func (h *SessionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	state, err := sess.Analyze(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, SessionResponse{SessionID: sess.ID, State: state})
}

// Speak reads text or a metadata field aloud. The returned playback location
// is the clip URL the client should fetch.
func (h *SessionHandler) Speak(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	var req SpeakRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "invalid speak request"))
		return
	}

	text, err := speakText(req, sess.Snapshot())
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, err.Error()))
		return
	}

	playback, err := sess.Speak(r.Context(), text)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, SpeakResponse{SessionID: sess.ID, Playing: playback != nil, Playback: playback})
}

func speakText(req SpeakRequest, state session.State) (string, error) {
	field := strings.ToLower(strings.TrimSpace(req.Field))
	if field == "" {
		return req.Text, nil
	}
	if req.Text != "" {
		return "", errors.New(`"text" and "field" are mutually exclusive`)
	}

	if field != "title" && field != "description" {
		return "", fmt.Errorf("unknown field %q (want title or description)", req.Field)
	}
	if state.Metadata == nil {
		return "", nil
	}
	if field == "title" {
		return state.Metadata.Title, nil
	}
	return state.Metadata.Description, nil
}

// Clip serves a synthesized clip once, then forgets it.
func (h *SessionHandler) Clip(w http.ResponseWriter, r *http.Request) {
	if h.Clips == nil {
		respondWithError(w, r, apperrors.NewNotFoundError("clip not found"))
		return
	}
	wav, ok := h.Clips.Fetch(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, r, apperrors.NewNotFoundError("clip not found or already fetched"))
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}
