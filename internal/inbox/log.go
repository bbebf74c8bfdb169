package inbox

import (
	"slices"
	"sort"
)

// MessageLog is the ordered message list of one thread. Ids are unique, so a
// record arriving both as a send response and as a push event is kept once.
// It is not safe for concurrent use.
type MessageLog struct {
	threadID string
	messages []Message
	ids      map[string]struct{}
}

// NewMessageLog returns an empty log that accepts only threadID's messages.
func NewMessageLog(threadID string) *MessageLog {
	return &MessageLog{
		threadID: threadID,
		ids:      make(map[string]struct{}),
	}
}

// ThreadID returns the thread the log belongs to.
func (l *MessageLog) ThreadID() string { return l.threadID }

// Append inserts m in creation order. It reports false and leaves the log
// unchanged when m belongs to another thread or its id is already present.
func (l *MessageLog) Append(m Message) bool {
	if m.ConversationID != l.threadID {
		return false
	}
	if _, dup := l.ids[m.ID]; dup {
		return false
	}
	l.ids[m.ID] = struct{}{}

	// Equal timestamps keep arrival order.
	i := sort.Search(len(l.messages), func(i int) bool {
		return l.messages[i].CreatedAt.After(m.CreatedAt)
	})
	l.messages = slices.Insert(l.messages, i, m)
	return true
}

// Merge appends every message of batch and returns how many were new.
func (l *MessageLog) Merge(batch []Message) int {
	n := 0
	for _, m := range batch {
		if l.Append(m) {
			n++
		}
	}
	return n
}

// Contains reports whether a message with id is in the log.
func (l *MessageLog) Contains(id string) bool {
	_, ok := l.ids[id]
	return ok
}

// Len returns the number of messages in the log.
func (l *MessageLog) Len() int { return len(l.messages) }

// Messages returns a copy of the log, oldest first.
func (l *MessageLog) Messages() []Message {
	return slices.Clone(l.messages)
}

// MarkReadFrom flags every message not sent by viewerID as read.
func (l *MessageLog) MarkReadFrom(viewerID string) {
	for i := range l.messages {
		if l.messages[i].SenderID != viewerID {
			l.messages[i].Read = true
		}
	}
}
