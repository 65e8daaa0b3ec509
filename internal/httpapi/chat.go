package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/gordonpn/portfolio-api/internal/chat"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (handlers *Handlers) chatReply(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		methodNotAllowed(writer, http.MethodPost, map[string]string{"error": chat.ErrMethodNotAllowed.Reason})
		return
	}

	var payload chatRequest
	request.Body = http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		handlers.logger.Warn("chat request body unreadable", zap.Error(err))
		writeChatError(writer, chat.ErrGenerateFailed)
		return
	}

	reply, err := handlers.chat.Reply(request.Context(), payload.Message)
	if err != nil {
		writeChatError(writer, err)
		return
	}

	writeJSON(writer, http.StatusOK, map[string]string{"reply": reply})
}

func (handlers *Handlers) models(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		methodNotAllowed(writer, http.MethodGet, map[string]string{"error": chat.ErrMethodNotAllowed.Reason})
		return
	}

	models, err := handlers.chat.Models(request.Context())
	if err != nil {
		writeChatError(writer, err)
		return
	}

	writeJSON(writer, http.StatusOK, map[string]any{"models": models})
}

func writeChatError(writer http.ResponseWriter, err error) {
	var chatErr *chat.Error
	if !errors.As(err, &chatErr) {
		chatErr = chat.ErrGenerateFailed
	}
	writeJSON(writer, chatErr.Status, map[string]string{"error": chatErr.Reason})
}
