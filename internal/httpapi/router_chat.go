package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dwizi/playbot/internal/commands"
	"github.com/dwizi/playbot/internal/dispatch"
)

type chatRequest struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

func (r *router) handleChat(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if r.deps.Commands == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "command service is unavailable"})
		return
	}
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	var payload chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBody)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	channelID := strings.TrimSpace(payload.ChannelID)
	if channelID == "" {
		channelID = "api"
	}
	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		userID = channelID
	}

	var output commands.MessageOutput
	err := r.dispatch(req.Context(), requestID, func(ctx context.Context) error {
		var handleErr error
		output, handleErr = r.deps.Commands.HandleMessage(ctx, commands.MessageInput{
			Connector: "api",
			ChannelID: channelID,
			UserID:    userID,
			Text:      text,
		})
		return handleErr
	})
	if errors.Is(err, dispatch.ErrQueueFull) {
		r.writeError(w, err, requestID)
		return
	}
	if err != nil {
		output = commands.MessageOutput{Handled: true, Reply: r.deps.Commands.ErrorReply(err, "request_id", requestID)}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"handled": output.Handled,
		"reply":   output.Reply,
	})
}
