package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/internal/service"
)

// ChatHandler handles conversation and message HTTP endpoints
type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// GetConversations godoc
// @Summary List conversations of the current user
// @Description Newest first, each with last message preview and unread count
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.ConversationResponse
// @Router /conversations [get]
func (h *ChatHandler) GetConversations(c *gin.Context) {
	me := currentIdentity(c)

	conversations, err := h.chatService.ListConversations(c.Request.Context(), me.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversations)
}

// CreateConversation godoc
// @Summary Create a group or find-or-create a 1:1 conversation
// @Description The caller is always a participant. 1:1 requests return the existing conversation with 200.
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateConversationRequest true "Create conversation request"
// @Success 201 {object} model.ConversationResponse
// @Success 200 {object} model.ConversationResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/create [post]
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	var req model.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	me := currentIdentity(c)
	conv, created, err := h.chatService.CreateConversation(c.Request.Context(), me.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, conv)
}

// GetConversation godoc
// @Summary Get a conversation
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {object} model.ConversationResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id} [get]
func (h *ChatHandler) GetConversation(c *gin.Context) {
	convID, ok := parseID(c, "id")
	if !ok {
		return
	}

	me := currentIdentity(c)
	conv, err := h.chatService.GetConversation(c.Request.Context(), convID, me.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// RenameConversation godoc
// @Summary Rename a group conversation
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param body body model.RenameConversationRequest true "New name"
// @Success 200 {object} model.ConversationResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id} [patch]
func (h *ChatHandler) RenameConversation(c *gin.Context) {
	convID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req model.RenameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	me := currentIdentity(c)
	conv, err := h.chatService.RenameConversation(c.Request.Context(), convID, me.ID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// MarkAsRead godoc
// @Summary Mark a conversation as read
// @Description Advances the caller's read progress and broadcasts conversation.read
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {object} model.ReadResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/read [post]
func (h *ChatHandler) MarkAsRead(c *gin.Context) {
	convID, ok := parseID(c, "id")
	if !ok {
		return
	}

	me := currentIdentity(c)
	at, err := h.chatService.MarkRead(c.Request.Context(), convID, me.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.ReadResponse{Status: "ok", LastReadAt: at.UTC()})
}

// GetMessages godoc
// @Summary List messages, newest first
// @Description Cursor pagination. Non-participants receive an empty page.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param cursor query string false "Opaque cursor from next_cursor"
// @Param page_size query int false "Page size (default 30, max 100)"
// @Success 200 {object} model.MessagePage
// @Failure 400 {object} model.ErrorResponse
// @Router /conversations/{id}/messages [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	convID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req model.MessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	me := currentIdentity(c)
	page, err := h.chatService.ListMessages(c.Request.Context(), convID, me.ID, req.Cursor, req.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// SendMessage godoc
// @Summary Send a message
// @Description Persists the message and broadcasts message.new to connected participants
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param body body model.SendMessageRequest true "Message"
// @Success 201 {object} model.MessageResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	convID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	me := currentIdentity(c)
	msg, err := h.chatService.SendMessage(c.Request.Context(), convID, me.ID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg.ToResponse())
}

// DeleteMessage godoc
// @Summary Delete one of your messages
// @Description Soft delete; the message disappears from listings
// @Tags Messages
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param messageId path int true "Message ID"
// @Success 204
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /conversations/{id}/messages/{messageId} [delete]
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	convID, ok := parseID(c, "id")
	if !ok {
		return
	}
	msgID, ok := parseID(c, "messageId")
	if !ok {
		return
	}

	me := currentIdentity(c)
	if err := h.chatService.DeleteMessage(c.Request.Context(), convID, msgID, me.ID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
