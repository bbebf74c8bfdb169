package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/marketchat/internal/data"
)

// memDB backs the in-memory stores used by the handler and end-to-end tests.
type memDB struct {
	mu       sync.Mutex
	clock    time.Time
	convs    map[bson.ObjectID]data.Conversation
	msgs     []data.Message
	users    map[string]data.Identity
	listings map[string]data.ListingSummary
	notes    []data.Notification
}

func newMemDB() *memDB {
	return &memDB{
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		convs:    map[bson.ObjectID]data.Conversation{},
		users:    map[string]data.Identity{},
		listings: map[string]data.ListingSummary{},
	}
}

func (m *memDB) stores() stores {
	return stores{
		conversations: memConversations{m},
		messages:      memMessages{m},
		users:         memDirectory{m},
		listings:      memDirectory{m},
		notifications: memNotifications{m},
	}
}

// tick advances the fake clock; callers hold mu.
func (m *memDB) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memDB) addUser(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := bson.NewObjectID()
	m.users[id.Hex()] = data.Identity{ID: id, Username: name}
	return id.Hex()
}

func (m *memDB) addListing(title, sellerID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := bson.NewObjectID()
	m.listings[id.Hex()] = data.ListingSummary{ID: id, SellerID: sellerID, Title: title, Price: 250}
	return id.Hex()
}

func (m *memDB) addConversation(listing, buyer, seller string) string {
	c, _ := memConversations{m}.FindOrCreate(context.Background(), listing, buyer, seller)
	return c.ID.Hex()
}

func (m *memDB) messagesOf(conv string) []data.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []data.Message
	for _, msg := range m.msgs {
		if msg.ConversationID.Hex() == conv {
			out = append(out, msg)
		}
	}
	return out
}

type memConversations struct{ db *memDB }

func (s memConversations) ListForUser(_ context.Context, userID string) ([]*data.Conversation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*data.Conversation
	for _, c := range s.db.convs {
		if c.HasParticipant(userID) {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivityAt.After(out[j].LastActivityAt) })
	return out, nil
}

func (s memConversations) GetByID(_ context.Context, id bson.ObjectID) (*data.Conversation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.convs[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	return &c, nil
}

func (s memConversations) FindOrCreate(_ context.Context, listingID, buyerID, sellerID string) (*data.Conversation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.convs {
		if c.ListingID == listingID && c.BuyerID == buyerID {
			return &c, nil
		}
	}
	now := s.db.tick()
	c := data.Conversation{
		ID: bson.NewObjectID(), ListingID: listingID, BuyerID: buyerID, SellerID: sellerID,
		LastActivityAt: now, CreatedAt: now,
	}
	s.db.convs[c.ID] = c
	return &c, nil
}

type memMessages struct{ db *memDB }

func (s memMessages) SaveMessage(_ context.Context, conversationID bson.ObjectID, senderID, body string) (*data.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	msg := data.Message{
		ID: bson.NewObjectID(), ConversationID: conversationID, SenderID: senderID, Body: body, CreatedAt: s.db.tick(),
	}
	s.db.msgs = append(s.db.msgs, msg)
	if c, ok := s.db.convs[conversationID]; ok {
		c.LastActivityAt = msg.CreatedAt
		s.db.convs[conversationID] = c
	}
	return &msg, nil
}

func (s memMessages) ListForConversation(_ context.Context, conversationID bson.ObjectID) ([]*data.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*data.Message
	for _, msg := range s.db.msgs {
		if msg.ConversationID == conversationID {
			out = append(out, &msg)
		}
	}
	return out, nil
}

func (s memMessages) Latest(ctx context.Context, conversationID bson.ObjectID) (*data.Message, error) {
	all, _ := s.ListForConversation(ctx, conversationID)
	if len(all) == 0 {
		return nil, nil
	}
	return all[len(all)-1], nil
}

func (s memMessages) CountUnread(_ context.Context, conversationID bson.ObjectID, excludeSender string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, msg := range s.db.msgs {
		if msg.ConversationID == conversationID && !msg.Read && msg.SenderID != excludeSender {
			n++
		}
	}
	return n, nil
}

func (s memMessages) MarkRead(_ context.Context, conversationID bson.ObjectID, viewerID string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for i := range s.db.msgs {
		msg := &s.db.msgs[i]
		if msg.ConversationID == conversationID && !msg.Read && msg.SenderID != viewerID {
			msg.Read = true
			n++
		}
	}
	return n, nil
}

type memDirectory struct{ db *memDB }

func (s memDirectory) BatchGetIdentities(_ context.Context, ids []string) (map[string]*data.Identity, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := map[string]*data.Identity{}
	for _, id := range ids {
		if u, ok := s.db.users[id]; ok {
			out[id] = &u
		}
	}
	return out, nil
}

func (s memDirectory) BatchGetSummaries(_ context.Context, ids []string) (map[string]*data.ListingSummary, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := map[string]*data.ListingSummary{}
	for _, id := range ids {
		if l, ok := s.db.listings[id]; ok {
			out[id] = &l
		}
	}
	return out, nil
}

type memNotifications struct{ db *memDB }

func (s memNotifications) Create(_ context.Context, recipientID, title, body string) (*data.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n := data.Notification{
		ID: bson.NewObjectID(), RecipientID: recipientID, Title: title, Body: body, CreatedAt: s.db.tick(),
	}
	s.db.notes = append(s.db.notes, n)
	return &n, nil
}

func (s memNotifications) ListForUser(_ context.Context, recipientID string, limit int64) ([]*data.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*data.Notification
	for i := len(s.db.notes) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if n := s.db.notes[i]; n.RecipientID == recipientID {
			out = append(out, &n)
		}
	}
	return out, nil
}

func (s memNotifications) MarkRead(_ context.Context, id bson.ObjectID, recipientID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i := range s.db.notes {
		if s.db.notes[i].ID == id && s.db.notes[i].RecipientID == recipientID {
			s.db.notes[i].Read = true
			return nil
		}
	}
	return data.ErrNotFound
}

func (s memNotifications) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for i := range s.db.notes {
		if s.db.notes[i].RecipientID == recipientID && !s.db.notes[i].Read {
			s.db.notes[i].Read = true
			n++
		}
	}
	return n, nil
}
