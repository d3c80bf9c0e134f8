package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/let-userName-Brian/exempla-ai/internal/application/dto"
	"github.com/let-userName-Brian/exempla-ai/internal/port/inbound"
)

// ChatHandler answers questions about a dataset.
type ChatHandler struct {
	chatService  inbound.ChatService
	errorHandler ErrorHandler
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService inbound.ChatService, errorHandler ErrorHandler) *ChatHandler {
	if chatService == nil {
		panic("chatService cannot be nil")
	}
	if errorHandler == nil {
		panic("errorHandler cannot be nil")
	}
	return &ChatHandler{
		chatService:  chatService,
		errorHandler: errorHandler,
	}
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "application/json") {
		h.errorHandler.HandleValidationError(w, r,
			NewValidationError("content-type", "Content-Type must be application/json"))
		return
	}

	var request dto.ChatRequest
	if err := decodeJSON(r, &request); err != nil {
		h.errorHandler.HandleValidationError(w, r, err)
		return
	}
	if request.DatasetID <= 0 {
		h.errorHandler.HandleValidationError(w, r,
			NewValidationErrorWithValue("dataset_id", "dataset_id must be a positive integer",
				strconv.FormatInt(request.DatasetID, 10)))
		return
	}
	if strings.TrimSpace(request.UserPrompt) == "" {
		h.errorHandler.HandleValidationError(w, r, NewValidationError("user_prompt", "user_prompt is required"))
		return
	}

	response, err := h.chatService.Chat(r.Context(), request)
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
	}
}
