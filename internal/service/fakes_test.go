package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/internal/repository"
	"gorm.io/gorm"
)

// memStore is an in-memory implementation of every store the services use
type memStore struct {
	mu       sync.Mutex
	users    map[int64]*model.User
	convs    map[int64]*model.Conversation
	parts    map[int64]map[int64]*model.ConversationParticipant // conv -> user
	msgs     []*model.Message
	blocks   map[[2]int64]bool
	friends  map[[2]int64]bool
	requests map[int64]*model.FriendRequest
	nextID   int64
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*model.User{},
		convs:    map[int64]*model.Conversation{},
		parts:    map[int64]map[int64]*model.ConversationParticipant{},
		blocks:   map[[2]int64]bool{},
		friends:  map[[2]int64]bool{},
		requests: map[int64]*model.FriendRequest{},
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.users[id] = &model.User{ID: id, Username: name, Role: model.RoleStudent}
	return id
}

func notFound(op string) error {
	return errors.Wrap(gorm.ErrRecordNotFound, op)
}

// ---- ConversationStore ----

func (m *memStore) Create(ctx context.Context, conv *model.Conversation, userIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv.PairKey != nil {
		for _, c := range m.convs {
			if c.PairKey != nil && *c.PairKey == *conv.PairKey {
				return errors.Wrap(gorm.ErrDuplicatedKey, "convRepo.Create")
			}
		}
	}
	conv.ID = m.id()
	conv.CreatedAt = m.clock
	stored := *conv
	m.convs[conv.ID] = &stored
	m.parts[conv.ID] = map[int64]*model.ConversationParticipant{}
	for _, uid := range userIDs {
		m.parts[conv.ID][uid] = &model.ConversationParticipant{
			ID: m.id(), ConversationID: conv.ID, UserID: uid, LastReadAt: model.NeverRead,
		}
	}
	return nil
}

func (m *memStore) FindByID(ctx context.Context, id int64) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, notFound("convRepo.FindByID")
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) FindByPairKey(ctx context.Context, key string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.convs {
		if c.PairKey != nil && *c.PairKey == key {
			cp := *c
			return &cp, nil
		}
	}
	return nil, notFound("convRepo.FindByPairKey")
}

func (m *memStore) IsParticipant(ctx context.Context, convID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.parts[convID][userID]
	return ok, nil
}

func (m *memStore) OtherParticipantID(ctx context.Context, convID, userID int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for uid := range m.parts[convID] {
		if uid != userID {
			return uid, true, nil
		}
	}
	return 0, false, nil
}

func (m *memStore) ListParticipants(ctx context.Context, convIDs []int64) ([]model.ConversationParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ConversationParticipant
	for _, cid := range convIDs {
		for _, p := range m.parts[cid] {
			cp := *p
			cp.User = *m.users[p.UserID]
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConversationID != out[j].ConversationID {
			return out[i].ConversationID < out[j].ConversationID
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (m *memStore) ListForUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Conversation
	for cid, ps := range m.parts {
		if _, ok := ps[userID]; ok {
			out = append(out, *m.convs[cid])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) MarkRead(ctx context.Context, convID, userID int64) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parts[convID][userID]
	if !ok {
		return time.Time{}, false, nil
	}
	m.clock = m.clock.Add(time.Millisecond)
	if at := m.clock; at.After(p.LastReadAt) {
		p.LastReadAt = at
	}
	return p.LastReadAt, true, nil
}

func (m *memStore) Rename(ctx context.Context, convID int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.convs[convID]; ok && c.IsGroup {
		c.Name = name
	}
	return nil
}

// ---- UserStore ----

func (m *memStore) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int64]bool{}
	out := []int64{}
	for _, id := range ids {
		if _, ok := m.users[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// memUsers adapts memStore to UserStore (FindByID clashes with the conversation one)
type memUsers struct{ *memStore }

func (u memUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	usr, ok := u.users[id]
	if !ok {
		return nil, notFound("userRepo.FindByID")
	}
	cp := *usr
	return &cp, nil
}

// ---- MessageStore ----

type memMessages struct{ *memStore }

func (m memMessages) Create(ctx context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Millisecond)
	msg.ID = m.id()
	msg.CreatedAt = m.clock
	msg.Sender = *m.users[msg.SenderID]
	cp := *msg
	m.msgs = append(m.msgs, &cp)
	return nil
}

func (m memMessages) FindByID(ctx context.Context, id int64) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.msgs {
		if msg.ID == id {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, notFound("msgRepo.FindByID")
}

func (m memMessages) ListPage(ctx context.Context, convID int64, cursor *repository.Cursor, limit int) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Message
	for _, msg := range m.msgs {
		if msg.ConversationID != convID || msg.IsDeleted {
			continue
		}
		if cursor != nil && !(msg.CreatedAt.Before(cursor.CreatedAt) ||
			(msg.CreatedAt.Equal(cursor.CreatedAt) && msg.ID < cursor.ID)) {
			continue
		}
		out = append(out, *msg)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memMessages) LastMessages(ctx context.Context, convIDs []int64) (map[int64]*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]*model.Message{}
	for _, msg := range m.msgs {
		if msg.IsDeleted {
			continue
		}
		for _, cid := range convIDs {
			if msg.ConversationID == cid {
				if cur, ok := out[cid]; !ok || msg.ID > cur.ID {
					cp := *msg
					out[cid] = &cp
				}
			}
		}
	}
	return out, nil
}

func (m memMessages) CountUnread(ctx context.Context, convIDs []int64, userID int64) (map[int64]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]int64{}
	for _, cid := range convIDs {
		p, ok := m.parts[cid][userID]
		if !ok {
			continue
		}
		for _, msg := range m.msgs {
			if msg.ConversationID == cid && !msg.IsDeleted && msg.CreatedAt.After(p.LastReadAt) {
				out[cid]++
			}
		}
	}
	return out, nil
}

func (m memMessages) SoftDelete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.msgs {
		if msg.ID == id {
			msg.IsDeleted = true
		}
	}
	return nil
}

func (m *memStore) messageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}

// ---- RelationshipStore ----

func (m *memStore) IsEitherBlocking(ctx context.Context, a, b int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocks[[2]int64{a, b}] || m.blocks[[2]int64{b, a}], nil
}

func (m *memStore) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u1, u2 := model.NormalizePair(a, b)
	return m.friends[[2]int64{u1, u2}], nil
}

func (m *memStore) CreateBlock(ctx context.Context, blocker, blocked int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[[2]int64{blocker, blocked}] = true
	return nil
}

func (m *memStore) DeleteBlock(ctx context.Context, blocker, blocked int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocks, [2]int64{blocker, blocked})
	return nil
}

func (m *memStore) AcceptFriendRequest(ctx context.Context, requestID, actorID int64) (*model.Friendship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return nil, notFound("relRepo.AcceptFriendRequest")
	}
	if req.ToUserID != actorID {
		return nil, errors.Wrap(repository.ErrFriendRequestNotForActor, "relRepo.AcceptFriendRequest")
	}
	if req.Status != model.FriendRequestPending {
		return nil, errors.Wrap(repository.ErrFriendRequestNotPending, "relRepo.AcceptFriendRequest")
	}
	req.Status = model.FriendRequestAccepted
	u1, u2 := model.NormalizePair(req.FromUserID, req.ToUserID)
	m.friends[[2]int64{u1, u2}] = true
	return &model.Friendship{ID: m.id(), User1ID: u1, User2ID: u2}, nil
}

// ---- Publisher ----

type published struct {
	group string
	event *model.ChatEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(ctx context.Context, group string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{group: group, event: event.(*model.ChatEvent)})
	return nil
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

// tick advances the shared fake clock; services under test use it as now
func (m *memStore) tick() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}
