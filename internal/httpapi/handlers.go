package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"ancestord/internal/ancestor"
	"ancestord/internal/conversation"
	"ancestord/pkg/types"
)

var validate = validator.New()

type handlers struct {
	svc  Service
	opts Options
}

// askGet answers a single question.
//
//	@Summary		Ask Ancestor (query string)
//	@Tags			ancestor
//	@Produce		json
//	@Produce		audio/mpeg
//	@Param			q		query		string	true	"User question"
//	@Param			audio	query		bool	false	"Return synthesized speech instead of JSON"
//	@Success		200		{object}	types.AskResponse
//	@Failure		400		{object}	types.ErrorResponse
//	@Router			/ancestor [get]
func (h *handlers) askGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSONError(w, http.StatusBadRequest, "q is required")
		return
	}
	audio := false
	if v := r.URL.Query().Get("audio"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "audio must be a boolean")
			return
		}
		audio = b
	}
	res, ok := h.ask(w, r, ancestor.Request{Question: q, WantAudio: audio})
	if !ok {
		return
	}
	if audio && res.Audio != "" {
		w.Header().Set("Content-Type", audioContentType(res.Audio))
		http.ServeFile(w, r, res.Audio)
		return
	}
	writeJSON(w, http.StatusOK, types.AskResponse{Response: res.Text})
}

// askPost answers the latest user turn of a conversation.
//
//	@Summary		Ask Ancestor
//	@Tags			ancestor
//	@Accept			json
//	@Produce		json
//	@Param			request	body		types.AskRequest	true	"Conversation"
//	@Success		200		{object}	types.AskResponse
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		415		{object}	types.ErrorResponse
//	@Failure		429		{object}	types.ErrorResponse
//	@Router			/ancestor [post]
func (h *handlers) askPost(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAsk(w, r)
	if !ok {
		return
	}
	res, ok := h.ask(w, r, req)
	if !ok {
		return
	}
	resp := types.AskResponse{Response: res.Text}
	if req.WantAudio {
		resp.TTSFile = res.Audio
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) ask(w http.ResponseWriter, r *http.Request, req ancestor.Request) (ancestor.Result, bool) {
	start := time.Now()
	ctx, cancel := requestContext(r)
	defer cancel()
	reqLog(r, LevelInfo).Bool("audio", req.WantAudio).Msg("ask start")
	res, err := h.svc.Ask(ctx, req)
	if err != nil {
		if shuttingDown(r) {
			return res, false
		}
		status := statusFor(err)
		writeJSONError(w, status, err.Error())
		reqLog(r, LevelInfo).Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("ask end")
		return res, false
	}
	reqLog(r, LevelInfo).Int("status", http.StatusOK).Dur("dur", time.Since(start)).
		Bool("audio", res.Audio != "").Msg("ask end")
	return res, true
}

// askStream streams the reply as it is generated.
//
//	@Summary		Ask Ancestor (streamed)
//	@Description	Plain text by default: each write is the text added since the previous one.
//	@Description	With format=ndjson every line is a types.StreamChunk and the last one has done=true.
//	@Tags			ancestor
//	@Accept			json
//	@Produce		plain
//	@Produce		x-ndjson
//	@Param			request	body		types.AskRequest	true	"Conversation"
//	@Param			format	query		string				false	"text (default) or ndjson"
//	@Success		200		{string}	string
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		415		{object}	types.ErrorResponse
//	@Failure		429		{object}	types.ErrorResponse
//	@Router			/ancestor/stream [post]
func (h *handlers) askStream(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "text" && format != "ndjson" {
		writeJSONError(w, http.StatusBadRequest, "format must be text or ndjson")
		return
	}
	req, ok := decodeAsk(w, r)
	if !ok {
		return
	}
	// speech is not produced on the stream route
	req.WantAudio = false

	start := time.Now()
	ctx, cancel := requestContext(r)
	defer cancel()
	seq, err := h.svc.AskStream(ctx, req)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	reqLog(r, LevelInfo).Str("format", format).Msg("stream start")

	ndjson := format == "ndjson"
	if ndjson {
		w.Header().Set("Content-Type", "application/x-ndjson")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flush := func() {}
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	enc := json.NewEncoder(w)

	var prev string
	var writeErr error
	for snap := range seq {
		delta := snap
		if strings.HasPrefix(snap, prev) {
			delta = snap[len(prev):]
		}
		prev = snap
		if delta == "" {
			continue
		}
		if ndjson {
			writeErr = enc.Encode(types.StreamChunk{Text: snap, Delta: delta})
		} else {
			_, writeErr = w.Write([]byte(delta))
		}
		if writeErr != nil {
			break
		}
		flush()
		streamBytesTotal.Add(float64(len(delta)))
		reqLog(r, LevelDebug).Str("delta", delta).Msg("stream>")
	}
	if ndjson && writeErr == nil && ctx.Err() == nil {
		_ = enc.Encode(types.StreamChunk{Done: true})
		flush()
	}
	ev := reqLog(r, LevelInfo).Dur("dur", time.Since(start)).Int("chars", len(prev))
	if writeErr != nil {
		ev = ev.Err(writeErr)
	}
	ev.Msg("stream end")
}

// decodeAsk validates a JSON ask body and turns it into a service request.
func decodeAsk(w http.ResponseWriter, r *http.Request) (ancestor.Request, bool) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return ancestor.Request{}, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body types.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return ancestor.Request{}, false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return ancestor.Request{}, false
	}
	if err := validate.Struct(body); err != nil {
		writeJSONError(w, http.StatusBadRequest, validationMessage(err))
		return ancestor.Request{}, false
	}
	msgs := make([]conversation.Message, 0, len(body.Messages))
	for _, m := range body.Messages {
		msgs = append(msgs, conversation.Message{Role: conversation.Role(m.Role), Content: m.Content})
	}
	return ancestor.Request{Messages: msgs, WantAudio: body.TTS, MaxTokens: body.MaxTokens}, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
	}
}

func audioContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".ogg", ".opus":
		return "audio/ogg"
	default:
		return "audio/mpeg"
	}
}
