package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tkdhub/chatcore/internal/config"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/internal/service"
	"github.com/tkdhub/chatcore/internal/ws"
	"github.com/tkdhub/chatcore/pkg/apperror"
)

// WSHandler handles realtime connections scoped to one conversation
type WSHandler struct {
	chatService *service.ChatService
	authService *service.AuthService
	broadcaster ws.Broadcaster
	cfg         config.WSConfig
	upgrader    websocket.Upgrader
}

func NewWSHandler(chatService *service.ChatService, authService *service.AuthService, broadcaster ws.Broadcaster, cfg config.WSConfig) *WSHandler {
	h := &WSHandler{
		chatService: chatService,
		authService: authService,
		broadcaster: broadcaster,
		cfg:         cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts every origin when none are configured
func (h *WSHandler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// HandleWebSocket godoc
// @Summary Realtime conversation stream
// @Description Connect with ws://host/ws/conversations/{id}?token=<jwt>. Failed checks close with 403 and no detail.
// @Tags Realtime
// @Param id path int true "Conversation ID"
// @Param token query string true "Bearer credential"
// @Success 101
// @Failure 403
// @Router /ws/conversations/{id} [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	convID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || convID <= 0 {
		h.reject(c, 0, apperror.ErrConversationNotFound)
		return
	}
	ctx := c.Request.Context()
	session := ws.NewSession(convID)
	defer session.Close(h.broadcaster)

	identity, err := h.authService.AuthenticateCredential(ctx, c.Query("token"))
	if err != nil {
		h.reject(c, convID, err)
		return
	}
	if err := session.Authorize(identity); err != nil {
		h.reject(c, convID, err)
		return
	}

	_, decision, err := h.chatService.AuthorizeSubscription(ctx, convID, identity.ID)
	if err != nil {
		h.reject(c, convID, err)
		return
	}
	if !decision.Allowed {
		h.reject(c, convID, decision.Reason)
		return
	}

	// Upgrade HTTP to WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(conn, identity.ID, h.cfg)

	if err := session.Subscribe(h.broadcaster, client); err != nil {
		log.Printf("❌ WS subscribe failed: %v", err)
		conn.Close()
		return
	}
	if err := session.Activate(); err != nil {
		log.Printf("❌ WS activate failed: %v", err)
		conn.Close()
		return
	}

	log.Printf("✅ WS Connected: user=%d conversation=%d conn=%s", identity.ID, convID, client.ID)

	// a client closed by the hub or by WritePump ends the session right away,
	// even while ReadPump is still inside a dispatch
	go func() {
		<-client.Done()
		session.Close(h.broadcaster)
	}()

	go client.WritePump()
	client.ReadPump(func(data []byte) {
		h.dispatch(session, client, data)
	})

	log.Printf("👋 WS Disconnected: user=%d conversation=%d conn=%s", identity.ID, convID, client.ID)
}

func (h *WSHandler) reject(c *gin.Context, convID int64, reason error) {
	log.Printf("🚫 WS rejected for conversation %d: %v", convID, reason)
	if ws.SilentCloseOnAuthFailure {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	respondError(c, reason)
}

// dispatch handles one inbound frame. Frames are processed in arrival order.
func (h *WSHandler) dispatch(session *ws.Session, client *ws.Client, data []byte) {
	if !session.Active() {
		return
	}
	identity := session.Identity()
	ctx := ws.WithOrigin(session.Context(), client.ID)

	var frame model.InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.unknownFrame(client, "malformed frame")
		return
	}

	switch frame.Action {
	case model.WSActionMessage:
		content := ""
		if frame.Content != nil {
			content = *frame.Content
		}
		if _, err := h.chatService.SendMessage(ctx, session.ConversationID, identity.ID, content); err != nil {
			if errors.Is(err, apperror.ErrEmptyMessage) {
				return
			}
			h.sendError(client, err)
		}

	case model.WSActionRead:
		if _, err := h.chatService.MarkRead(ctx, session.ConversationID, identity.ID); err != nil {
			h.sendError(client, err)
		}

	case model.WSActionTypingStart, model.WSActionTypingStop:
		if err := h.chatService.BroadcastTyping(ctx, session.ConversationID, identity.ID, frame.Action); err != nil {
			h.sendError(client, err)
		}

	default:
		h.unknownFrame(client, "unknown action")
	}
}

func (h *WSHandler) unknownFrame(client *ws.Client, detail string) {
	if ws.DropUnknownActions {
		return
	}
	h.enqueue(client, model.NewErrorEvent(detail))
}

// sendError answers only the offending connection
func (h *WSHandler) sendError(client *ws.Client, err error) {
	if apperror.HTTPStatus(err) >= http.StatusInternalServerError {
		log.Printf("❌ WS action failed on %s: %v", client.ID, err)
		h.enqueue(client, model.NewErrorEvent("internal error"))
		return
	}
	detail := err.Error()
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		detail = appErr.Message
	}
	h.enqueue(client, model.NewErrorEvent(detail))
}

func (h *WSHandler) enqueue(client *ws.Client, event *model.ChatEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ WS encode error: %v", err)
		return
	}
	if !client.Enqueue(data) {
		client.Close()
	}
}
