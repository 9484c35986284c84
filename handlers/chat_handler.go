package handlers

import (
	"net/http"
	"strconv"

	"livebid/config"
	"livebid/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type ChatHandler struct {
	app         *pocketbase.PocketBase
	chatService *services.ChatService
	cfg         *config.Config
}

func NewChatHandler(app *pocketbase.PocketBase, chatService *services.ChatService, cfg *config.Config) *ChatHandler {
	return &ChatHandler{
		app:         app,
		chatService: chatService,
		cfg:         cfg,
	}
}

// SendMessage - Post a chat line to the stream
func (h *ChatHandler) SendMessage(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	channel := e.Request.PathValue("channel")

	var req struct {
		Text string `json:"text"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	name := e.Auth.GetString("name")
	if name == "" {
		name = e.Auth.GetString("username")
	}

	message, err := h.chatService.SendMessage(e.Request.Context(), channel, e.Auth.Id, name, req.Text)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, message)
}

// ListMessages - Recent chat history, oldest first
func (h *ChatHandler) ListMessages(e *core.RequestEvent) error {
	channel := e.Request.PathValue("channel")

	limit := h.cfg.ChatHistoryLimit
	if raw := e.Request.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	messages, err := h.chatService.ListRecent(e.Request.Context(), channel, limit)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"messages": messages,
		"total":    len(messages),
	})
}
