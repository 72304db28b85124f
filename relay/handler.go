// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/phrasepeer/phrasepeer/lib/netutil"
	"github.com/phrasepeer/phrasepeer/lib/ref"
	"github.com/phrasepeer/phrasepeer/rendezvous"
	"github.com/phrasepeer/phrasepeer/signaling"
)

// Actions accepted in the "action" form field.
const (
	ActionPostOffer  = "post-offer"
	ActionGetOffer   = "get-offer"
	ActionPostAnswer = "post-answer"
	ActionGetAnswer  = "get-answer"
	ActionClear      = "clear"
)

// Error strings in failure responses that do not come from signaling.
const (
	ReasonUnknownAction    = "unknown action"
	ReasonBadWait          = "bad wait"
	ReasonBadRequest       = "bad request"
	ReasonTooLarge         = "request too large"
	ReasonMethodNotAllowed = "method not allowed"
	ReasonInternal         = "internal error"
)

// DefaultMaxBody bounds request bodies when HandlerConfig.MaxBody is
// zero.
const DefaultMaxBody int64 = 64 << 10

type okResponse struct {
	OK bool `json:"ok"`
}

type offerResponse struct {
	OK    bool                   `json:"ok"`
	Offer *rendezvous.Descriptor `json:"offer"`
}

type answerResponse struct {
	OK     bool                   `json:"ok"`
	Answer *rendezvous.Descriptor `json:"answer"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// MaxBody bounds request bodies in bytes. Defaults to DefaultMaxBody.
	MaxBody int64

	// MaxWait caps the "wait" parameter of get-offer and get-answer.
	// Zero disables long polling; the parameter is then ignored.
	MaxWait time.Duration

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// Handler is the relay endpoint. Every request is a form POST whose
// "action" field selects one signaling operation.
type Handler struct {
	service *signaling.Service
	maxBody int64
	maxWait time.Duration
	logger  *slog.Logger
}

// NewHandler returns a Handler serving service.
func NewHandler(service *signaling.Service, config HandlerConfig) *Handler {
	if config.Logger == nil {
		panic("relay.Handler: Logger is required")
	}
	maxBody := config.MaxBody
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	return &Handler{
		service: service,
		maxBody: maxBody,
		maxWait: config.MaxWait,
		logger:  config.Logger,
	}
}

func (h *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		writer.Header().Set("Allow", http.MethodPost)
		h.writeError(writer, http.StatusMethodNotAllowed, ReasonMethodNotAllowed)
		return
	}

	request.Body = http.MaxBytesReader(writer, request.Body, h.maxBody)
	if err := h.parseForm(request); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(writer, http.StatusRequestEntityTooLarge, ReasonTooLarge)
			return
		}
		h.logger.Debug("unparseable relay request", "error", err)
		h.writeError(writer, http.StatusBadRequest, ReasonBadRequest)
		return
	}

	room, err := ref.ParseRoomID(request.PostFormValue("room"))
	if err != nil {
		h.writeError(writer, http.StatusBadRequest, signaling.ReasonBadRoom)
		return
	}

	ctx := request.Context()
	action := request.PostFormValue("action")
	switch action {
	case ActionPostOffer:
		var offer rendezvous.Descriptor
		if !decodeDescriptor(request.PostFormValue("offer"), &offer) {
			h.writeError(writer, http.StatusBadRequest, signaling.ReasonBadOffer)
			return
		}
		h.writeResult(writer, action, okResponse{OK: true}, h.service.PostOffer(ctx, room, offer))

	case ActionGetOffer, ActionGetAnswer:
		kind := rendezvous.KindOffer
		if action == ActionGetAnswer {
			kind = rendezvous.KindAnswer
		}
		wait, ok := h.parseWait(request.PostFormValue("wait"))
		if !ok {
			h.writeError(writer, http.StatusBadRequest, ReasonBadWait)
			return
		}
		descriptor, err := h.read(ctx, room, kind, wait)
		if kind == rendezvous.KindOffer {
			h.writeResult(writer, action, offerResponse{OK: true, Offer: descriptor}, err)
		} else {
			h.writeResult(writer, action, answerResponse{OK: true, Answer: descriptor}, err)
		}

	case ActionPostAnswer:
		var answer rendezvous.Descriptor
		if !decodeDescriptor(request.PostFormValue("answer"), &answer) {
			h.writeError(writer, http.StatusBadRequest, signaling.ReasonBadAnswer)
			return
		}
		h.writeResult(writer, action, okResponse{OK: true}, h.service.PostAnswer(ctx, room, answer))

	case ActionClear:
		h.writeResult(writer, action, okResponse{OK: true}, h.service.Clear(ctx, room))

	default:
		h.writeError(writer, http.StatusBadRequest, ReasonUnknownAction)
	}
}

// parseForm accepts both url-encoded and multipart bodies. Browsers
// posting FormData send the latter.
func (h *Handler) parseForm(request *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(request.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return request.ParseMultipartForm(h.maxBody)
	}
	return request.ParseForm()
}

// parseWait reads the optional long-poll duration in milliseconds,
// capped at maxWait. An absent value, or a relay with long polling
// disabled, yields zero.
func (h *Handler) parseWait(raw string) (time.Duration, bool) {
	if raw == "" {
		return 0, true
	}
	milliseconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || milliseconds < 0 {
		return 0, false
	}
	wait := time.Duration(milliseconds) * time.Millisecond
	if milliseconds > int64(h.maxWait/time.Millisecond) {
		wait = h.maxWait
	}
	return wait, true
}

// read returns the stored descriptor of kind, waiting up to wait for
// one to be posted when the room has none yet.
func (h *Handler) read(ctx context.Context, room ref.RoomID, kind rendezvous.Kind, wait time.Duration) (*rendezvous.Descriptor, error) {
	if wait > 0 {
		watchCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		if descriptor, ok := <-h.service.Watch(watchCtx, room, kind); ok {
			return &descriptor, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if kind == rendezvous.KindOffer {
		return h.service.GetOffer(ctx, room)
	}
	return h.service.GetAnswer(ctx, room)
}

func (h *Handler) writeResult(writer http.ResponseWriter, action string, success any, err error) {
	if err == nil {
		h.write(writer, http.StatusOK, success)
		return
	}
	var status interface{ HTTPStatus() int }
	if errors.As(err, &status) {
		h.writeError(writer, status.HTTPStatus(), err.Error())
		return
	}
	h.logger.Error("relay action failed", "action", action, "error", err)
	h.writeError(writer, http.StatusInternalServerError, ReasonInternal)
}

func (h *Handler) writeError(writer http.ResponseWriter, status int, reason string) {
	h.write(writer, status, errorResponse{OK: false, Error: reason})
}

func (h *Handler) write(writer http.ResponseWriter, status int, body any) {
	if err := netutil.WriteJSON(writer, status, body); err != nil {
		h.logger.Debug("writing relay response failed", "error", err)
	}
}

// decodeDescriptor parses a JSON descriptor field. Shape checks beyond
// valid JSON are left to the signaling service.
func decodeDescriptor(raw string, descriptor *rendezvous.Descriptor) bool {
	if raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), descriptor) == nil
}
