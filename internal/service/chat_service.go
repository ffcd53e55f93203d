package service

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/tkdhub/chatcore/internal/config"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/internal/repository"
	"github.com/tkdhub/chatcore/pkg/apperror"
)

// ListingPolicy decides how message listing answers a non-participant
type ListingPolicy int

const (
	// ListingEmpty returns an empty page, hiding whether the conversation exists
	ListingEmpty ListingPolicy = iota
	// ListingForbidden returns ErrNotParticipant
	ListingForbidden
)

// NonParticipantListing applies to every message listing entry point (REST and any future one)
const NonParticipantListing = ListingEmpty

// ChatService handles conversations, messages and the realtime events they emit
type ChatService struct {
	convs       ConversationStore
	msgs        MessageStore
	rels        RelationshipStore
	users       UserStore
	pub         Publisher
	pageSize    int
	maxPageSize int
	now         func() time.Time
}

func NewChatService(
	convs ConversationStore,
	msgs MessageStore,
	rels RelationshipStore,
	users UserStore,
	pub Publisher,
	cfg config.ChatConfig,
) *ChatService {
	s := &ChatService{
		convs:       convs,
		msgs:        msgs,
		rels:        rels,
		users:       users,
		pub:         pub,
		pageSize:    cfg.PageSize,
		maxPageSize: cfg.MaxPageSize,
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
	if s.pageSize <= 0 {
		s.pageSize = 30
	}
	if s.maxPageSize < s.pageSize {
		s.maxPageSize = s.pageSize
	}
	return s
}

// ==================== Authorization ====================

// AuthorizeParticipant allows only members of the conversation
func (s *ChatService) AuthorizeParticipant(ctx context.Context, conversationID, userID int64) (Decision, error) {
	ok, err := s.convs.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return Decision{}, apperror.ErrPersistence(err)
	}
	if !ok {
		return Deny(apperror.ErrNotParticipant), nil
	}
	return Allow(), nil
}

// AuthorizeInteraction checks membership and, for 1:1 conversations, the block
// gate between userID and the other participant. It always reads fresh state.
func (s *ChatService) AuthorizeInteraction(ctx context.Context, conv *model.Conversation, userID int64) (Decision, error) {
	d, err := s.AuthorizeParticipant(ctx, conv.ID, userID)
	if err != nil || !d.Allowed {
		return d, err
	}
	if conv.IsGroup {
		return Allow(), nil
	}

	otherID, ok, err := s.convs.OtherParticipantID(ctx, conv.ID, userID)
	if err != nil {
		return Decision{}, apperror.ErrPersistence(err)
	}
	if !ok {
		return Allow(), nil
	}
	blocked, err := s.rels.IsEitherBlocking(ctx, userID, otherID)
	if err != nil {
		return Decision{}, apperror.ErrPersistence(err)
	}
	if blocked {
		return Deny(apperror.ErrBlocked), nil
	}
	return Allow(), nil
}

// AuthorizeSubscription is the connect-time check for a realtime session
func (s *ChatService) AuthorizeSubscription(ctx context.Context, conversationID, userID int64) (*model.Conversation, Decision, error) {
	d, err := s.AuthorizeParticipant(ctx, conversationID, userID)
	if err != nil || !d.Allowed {
		return nil, d, err
	}
	conv, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, Decision{}, err
	}
	d, err = s.AuthorizeInteraction(ctx, conv, userID)
	return conv, d, err
}

// ==================== Conversations ====================

// ListConversations returns every conversation of the user, newest first,
// with last message preview and unread count
func (s *ChatService) ListConversations(ctx context.Context, userID int64) ([]model.ConversationResponse, error) {
	convs, err := s.convs.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperror.ErrPersistence(err)
	}
	return s.buildResponses(ctx, convs, userID)
}

// GetConversation returns one conversation; non-participants are denied
func (s *ChatService) GetConversation(ctx context.Context, conversationID, userID int64) (*model.ConversationResponse, error) {
	d, err := s.AuthorizeParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	conv, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, conv, userID)
}

// CreateConversation creates a group or finds-or-creates a 1:1 conversation.
// The creator is always included; unknown user ids are dropped. created is
// false when an existing 1:1 conversation is returned.
func (s *ChatService) CreateConversation(ctx context.Context, creatorID int64, req model.CreateConversationRequest) (*model.ConversationResponse, bool, error) {
	requested := append([]int64{creatorID}, req.Users...)
	userIDs, err := s.users.ExistingIDs(ctx, requested)
	if err != nil {
		return nil, false, apperror.ErrPersistence(err)
	}
	if len(userIDs) < 2 {
		return nil, false, apperror.ErrTooFewParticipants
	}

	if !req.IsGroup {
		if len(userIDs) != 2 {
			return nil, false, apperror.ErrDirectNeedsTwo
		}
		otherID := userIDs[0]
		if otherID == creatorID {
			otherID = userIDs[1]
		}
		return s.GetOrCreateOneToOne(ctx, creatorID, otherID)
	}

	name, err := validGroupName(req.Name)
	if err != nil {
		return nil, false, err
	}
	conv := &model.Conversation{Name: name, IsGroup: true}
	if err := s.convs.Create(ctx, conv, userIDs); err != nil {
		return nil, false, apperror.ErrPersistence(err)
	}
	log.Printf("💬 Group %d created by user %d (%d participants)", conv.ID, creatorID, len(userIDs))

	resp, err := s.buildResponse(ctx, conv, creatorID)
	return resp, true, err
}

// GetOrCreateOneToOne returns the single 1:1 conversation between a and b,
// creating it on first use. Fails with ErrBlocked if either blocks the other.
func (s *ChatService) GetOrCreateOneToOne(ctx context.Context, userA, userB int64) (*model.ConversationResponse, bool, error) {
	if userA == userB {
		return nil, false, apperror.ErrDirectNeedsTwo
	}

	blocked, err := s.rels.IsEitherBlocking(ctx, userA, userB)
	if err != nil {
		return nil, false, apperror.ErrPersistence(err)
	}
	if blocked {
		return nil, false, apperror.ErrBlocked
	}

	key := model.PairKey(userA, userB)
	conv, err := s.convs.FindByPairKey(ctx, key)
	if err == nil {
		resp, err := s.buildResponse(ctx, conv, userA)
		return resp, false, err
	}
	if !repository.IsNotFound(err) {
		return nil, false, apperror.ErrPersistence(err)
	}

	conv = &model.Conversation{PairKey: &key}
	if err := s.convs.Create(ctx, conv, []int64{userA, userB}); err != nil {
		if !repository.IsUniqueViolation(err) {
			return nil, false, apperror.ErrPersistence(err)
		}
		// a concurrent request created the pair first
		conv, err = s.convs.FindByPairKey(ctx, key)
		if err != nil {
			return nil, false, apperror.ErrPersistence(err)
		}
		resp, err := s.buildResponse(ctx, conv, userA)
		return resp, false, err
	}
	log.Printf("💬 Direct conversation %d created for pair %s", conv.ID, key)

	resp, err := s.buildResponse(ctx, conv, userA)
	return resp, true, err
}

// RenameConversation changes the name of a group
func (s *ChatService) RenameConversation(ctx context.Context, conversationID, userID int64, name string) (*model.ConversationResponse, error) {
	name, err := validGroupName(name)
	if err != nil {
		return nil, err
	}
	d, err := s.AuthorizeParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	conv, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsGroup {
		return nil, apperror.ErrRenameDirect
	}
	if err := s.convs.Rename(ctx, conversationID, name); err != nil {
		return nil, apperror.ErrPersistence(err)
	}
	conv.Name = name
	return s.buildResponse(ctx, conv, userID)
}

// MarkRead advances the caller's read progress and broadcasts conversation.read
func (s *ChatService) MarkRead(ctx context.Context, conversationID, userID int64) (time.Time, error) {
	stored, found, err := s.convs.MarkRead(ctx, conversationID, userID)
	if err != nil {
		return time.Time{}, apperror.ErrPersistence(err)
	}
	if !found {
		return time.Time{}, apperror.ErrNotParticipant
	}

	s.publish(ctx, conversationID, model.NewReadEvent(userID, stored))
	return stored, nil
}

// ==================== Messages ====================

// SendMessage persists a message and, only after it is stored, broadcasts message.new
func (s *ChatService) SendMessage(ctx context.Context, conversationID, senderID int64, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ErrEmptyMessage
	}

	conv, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, apperror.ErrConversationNotFound) {
			// same answer as an existing conversation the sender is not in
			return nil, apperror.ErrNotParticipant
		}
		return nil, err
	}
	d, err := s.AuthorizeInteraction(ctx, conv, senderID)
	if err != nil {
		return nil, err
	}
	if err := d.Err(); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	}
	if err := s.msgs.Create(ctx, msg); err != nil {
		return nil, apperror.ErrPersistence(err)
	}

	s.publish(ctx, conversationID, model.NewMessageEvent(msg))
	return msg, nil
}

// ListMessages returns one page of visible messages, newest first.
// pageSize <= 0 selects the default; larger than the maximum is clamped.
func (s *ChatService) ListMessages(ctx context.Context, conversationID, userID int64, cursorToken string, pageSize int) (*model.MessagePage, error) {
	page := &model.MessagePage{Results: []model.MessageResponse{}}

	var cursor *repository.Cursor
	if cursorToken != "" {
		c, err := repository.DecodeCursor(cursorToken)
		if err != nil {
			return nil, apperror.ErrInvalidCursor
		}
		cursor = &c
	}

	d, err := s.AuthorizeParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		if NonParticipantListing == ListingEmpty {
			return page, nil
		}
		return nil, d.Reason
	}

	limit := s.clampPageSize(pageSize)
	msgs, err := s.msgs.ListPage(ctx, conversationID, cursor, limit+1)
	if err != nil {
		return nil, apperror.ErrPersistence(err)
	}
	if len(msgs) > limit {
		msgs = msgs[:limit]
		last := msgs[limit-1]
		next := repository.CursorAt(last.CreatedAt, last.ID).Encode()
		page.NextCursor = &next
	}
	for i := range msgs {
		page.Results = append(page.Results, msgs[i].ToResponse())
	}
	return page, nil
}

// DeleteMessage soft-deletes a message of the caller
func (s *ChatService) DeleteMessage(ctx context.Context, conversationID, messageID, userID int64) error {
	msg, err := s.msgs.FindByID(ctx, messageID)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperror.ErrMessageNotFound
		}
		return apperror.ErrPersistence(err)
	}
	if msg.ConversationID != conversationID || msg.IsDeleted {
		return apperror.ErrMessageNotFound
	}
	if msg.SenderID != userID {
		return apperror.ErrNotMessageSender
	}
	if err := s.msgs.SoftDelete(ctx, messageID); err != nil {
		return apperror.ErrPersistence(err)
	}
	return nil
}

// BroadcastTyping emits an ephemeral typing.start or typing.stop event
func (s *ChatService) BroadcastTyping(ctx context.Context, conversationID, userID int64, event string) error {
	d, err := s.AuthorizeParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if err := d.Err(); err != nil {
		return err
	}
	s.publish(ctx, conversationID, model.NewTypingEvent(event, userID, s.now()))
	return nil
}

// ==================== Helpers ====================

func (s *ChatService) clampPageSize(n int) int {
	switch {
	case n <= 0:
		return s.pageSize
	case n > s.maxPageSize:
		return s.maxPageSize
	default:
		return n
	}
}

// validGroupName trims name and enforces the stored column bounds
func validGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.ErrGroupNameRequired
	}
	if utf8.RuneCountInString(name) > model.MaxConversationNameLength {
		return "", apperror.ErrGroupNameTooLong
	}
	return name, nil
}

func (s *ChatService) loadConversation(ctx context.Context, id int64) (*model.Conversation, error) {
	conv, err := s.convs.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.ErrConversationNotFound
		}
		return nil, apperror.ErrPersistence(err)
	}
	return conv, nil
}

// publish delivers after persistence; a failed broadcast never undoes the write
func (s *ChatService) publish(ctx context.Context, conversationID int64, event *model.ChatEvent) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, model.GroupName(conversationID), event); err != nil {
		log.Printf("⚠️  Broadcast %s to conversation %d failed: %v", event.Event, conversationID, err)
	}
}

func (s *ChatService) buildResponse(ctx context.Context, conv *model.Conversation, userID int64) (*model.ConversationResponse, error) {
	resps, err := s.buildResponses(ctx, []model.Conversation{*conv}, userID)
	if err != nil {
		return nil, err
	}
	return &resps[0], nil
}

// buildResponses batch-loads participants, previews and unread counts
func (s *ChatService) buildResponses(ctx context.Context, convs []model.Conversation, userID int64) ([]model.ConversationResponse, error) {
	resps := make([]model.ConversationResponse, 0, len(convs))
	if len(convs) == 0 {
		return resps, nil
	}

	ids := make([]int64, len(convs))
	for i := range convs {
		ids[i] = convs[i].ID
	}

	parts, err := s.convs.ListParticipants(ctx, ids)
	if err != nil {
		return nil, apperror.ErrPersistence(err)
	}
	last, err := s.msgs.LastMessages(ctx, ids)
	if err != nil {
		return nil, apperror.ErrPersistence(err)
	}
	unread, err := s.msgs.CountUnread(ctx, ids, userID)
	if err != nil {
		return nil, apperror.ErrPersistence(err)
	}

	byConv := make(map[int64][]model.ParticipantResponse, len(convs))
	for _, p := range parts {
		byConv[p.ConversationID] = append(byConv[p.ConversationID], model.ParticipantResponse{
			UserID:     p.UserID,
			Username:   p.User.Username,
			LastReadAt: p.LastReadAt,
		})
	}

	for _, c := range convs {
		resp := model.ConversationResponse{
			ID:           c.ID,
			Name:         c.Name,
			IsGroup:      c.IsGroup,
			CreatedAt:    c.CreatedAt,
			Participants: byConv[c.ID],
			UnreadCount:  unread[c.ID],
		}
		if resp.Participants == nil {
			resp.Participants = []model.ParticipantResponse{}
		}
		if m, ok := last[c.ID]; ok {
			preview := m.ToResponse()
			resp.LastMessage = &preview
		}
		resps = append(resps, resp)
	}
	return resps, nil
}
