package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ugram-notify/internal/domain"
	"github.com/ugram-notify/internal/pkg/validate"
)

// Producer queues notifications for delivery.
type Producer interface {
	NotifyLike(postOwnerID string, like domain.Like)
	NotifyComment(postOwnerID string, comment domain.Comment)
}

// LikeRequest asks for postOwnerId to be told about like.
type LikeRequest struct {
	PostOwnerID string      `json:"postOwnerId" validate:"required"`
	Like        domain.Like `json:"like" validate:"required"`
}

// CommentRequest asks for postOwnerId to be told about comment.
type CommentRequest struct {
	PostOwnerID string         `json:"postOwnerId" validate:"required"`
	Comment     domain.Comment `json:"comment" validate:"required"`
}

// NotificationHandler lets other Ugram services hand interactions to the
// dispatcher. Responses only confirm the request was accepted; delivery stays
// best-effort.
type NotificationHandler struct {
	producer Producer
}

func NewNotificationHandler(producer Producer) *NotificationHandler {
	return &NotificationHandler{producer: producer}
}

func (h *NotificationHandler) Like(w http.ResponseWriter, r *http.Request) {
	var req LikeRequest
	if !decode(w, r, &req) {
		return
	}
	h.producer.NotifyLike(req.PostOwnerID, req.Like)
	writeJSON(w, http.StatusAccepted, MessageEnvelope{Message: "queued"})
}

func (h *NotificationHandler) Comment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if !decode(w, r, &req) {
		return
	}
	h.producer.NotifyComment(req.PostOwnerID, req.Comment)
	writeJSON(w, http.StatusAccepted, MessageEnvelope{Message: "queued"})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		if errors.Is(err, domain.ErrBadRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return false
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return false
	}
	return true
}
