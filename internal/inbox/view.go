package inbox

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/PaulBabatuyi/marketchat/internal/logging"
	"github.com/PaulBabatuyi/marketchat/internal/metrics"
	"github.com/PaulBabatuyi/marketchat/internal/normalize"
)

const (
	// DefaultRequestTimeout bounds calls the view makes on its own behalf.
	DefaultRequestTimeout = 10 * time.Second

	// NotificationTitle is the title of the notification sent to the
	// counterpart of every message.
	NotificationTitle = "New message"
	previewRunes      = 80
)

// UpdateKind says which part of the view changed.
type UpdateKind int

const (
	UpdateMessages UpdateKind = iota + 1
	UpdateDirectory
)

// Update is passed to Options.OnUpdate.
type Update struct {
	Kind     UpdateKind
	ThreadID string
}

// Options configure a View. The zero value is usable.
type Options struct {
	Logger               *zerolog.Logger
	DirectoryConcurrency int
	// RequestTimeout bounds read marking after a live event and the
	// notification sent after a message.
	RequestTimeout time.Duration
	// OnUpdate runs after the open thread's log or the directory changed. It
	// is called without the view's lock held, possibly from a feed goroutine.
	OnUpdate func(Update)
}

// View is one user's message screen: the thread directory, at most one open
// thread with its live subscription, and the composer.
//
// The view is Unattached until Open succeeds and Attached to exactly one
// thread afterwards. Every subscription carries the generation it was
// opened under; events whose generation is no longer current are dropped.
type View struct {
	backend   Backend
	viewerID  string
	directory *DirectoryBuilder
	log       zerolog.Logger
	timeout   time.Duration
	onUpdate  func(Update)

	// nav serializes Open, CloseThread and Close.
	nav sync.Mutex

	mu         sync.Mutex
	closed     bool
	threads    []ThreadSummary
	open       *openThread
	generation uint64

	pending sync.WaitGroup
}

type openThread struct {
	log        *MessageLog
	sub        Subscription
	generation uint64
}

// NewView returns an Unattached view for viewerID.
func NewView(backend Backend, viewerID string, opts Options) *View {
	log := logging.Logger
	if opts.Logger != nil {
		log = *opts.Logger
	}
	log = log.With().Str("viewer_id", viewerID).Logger()
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	return &View{
		backend:   backend,
		viewerID:  viewerID,
		directory: NewDirectoryBuilder(backend, opts.DirectoryConcurrency, log),
		log:       log,
		timeout:   opts.RequestTimeout,
		onUpdate:  opts.OnUpdate,
	}
}

// ViewerID returns the user the view belongs to.
func (v *View) ViewerID() string { return v.viewerID }

// LoadDirectory rebuilds the thread directory. On failure the previous
// directory is kept and nothing partial is exposed.
func (v *View) LoadDirectory(ctx context.Context) ([]ThreadSummary, error) {
	if v.isClosed() {
		return nil, ErrClosed
	}
	threads, err := v.directory.Build(ctx, v.viewerID)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.threads = threads
	out := slices.Clone(threads)
	v.mu.Unlock()

	v.emit(Update{Kind: UpdateDirectory})
	return out, nil
}

// Directory returns the last loaded directory.
func (v *View) Directory() []ThreadSummary {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.threads)
}

// Open attaches the view to threadID: it releases the previous subscription,
// subscribes to the thread, loads its history and marks it read. A failed
// subscription leaves the thread open without live updates. A failed history
// load leaves the view Unattached.
func (v *View) Open(ctx context.Context, threadID string) error {
	v.nav.Lock()
	defer v.nav.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	prev := v.detachLocked()
	v.generation++
	ot := &openThread{log: NewMessageLog(threadID), generation: v.generation}
	v.open = ot
	v.mu.Unlock()
	release(prev)

	// Subscribe before loading so nothing written in between is missed; the
	// log drops whatever arrives on both paths.
	sub, err := v.backend.SubscribeMessages(ctx, threadID, func(m Message) {
		v.receive(ot.generation, m)
	})
	if err != nil {
		v.log.Warn().Err(err).Str("conversation_id", threadID).Msg("live updates unavailable")
	} else {
		v.mu.Lock()
		ot.sub = sub
		v.mu.Unlock()
	}

	history, err := v.backend.ListMessages(ctx, threadID)
	if err != nil {
		v.mu.Lock()
		dropped := v.detachLocked()
		v.mu.Unlock()
		release(dropped)
		return fmt.Errorf("load messages: %w", err)
	}

	v.mu.Lock()
	ot.log.Merge(history)
	v.mu.Unlock()
	v.emit(Update{Kind: UpdateMessages, ThreadID: threadID})

	v.markRead(ctx, ot.generation, threadID)
	return nil
}

// StartConversation finds or creates the viewer's conversation with sellerID
// about listingID and opens it.
func (v *View) StartConversation(ctx context.Context, listingID, sellerID string) (Conversation, error) {
	if v.isClosed() {
		return Conversation{}, ErrClosed
	}
	conv, err := v.backend.StartConversation(ctx, listingID, v.viewerID, sellerID)
	if err != nil {
		return Conversation{}, fmt.Errorf("start conversation: %w", err)
	}
	if err := v.Open(ctx, conv.ID); err != nil {
		return conv, err
	}
	return conv, nil
}

// CloseThread returns the view to Unattached.
func (v *View) CloseThread() {
	v.nav.Lock()
	defer v.nav.Unlock()

	v.mu.Lock()
	sub := v.detachLocked()
	v.mu.Unlock()
	release(sub)
}

// Close releases the open thread and waits for pending notifications.
func (v *View) Close() {
	v.nav.Lock()
	defer v.nav.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	sub := v.detachLocked()
	v.mu.Unlock()
	release(sub)

	v.pending.Wait()
}

// OpenThread returns the id of the open thread.
func (v *View) OpenThread() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.open == nil {
		return "", false
	}
	return v.open.log.ThreadID(), true
}

// Live reports whether the open thread receives push events.
func (v *View) Live() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open != nil && v.open.sub != nil
}

// Messages returns the open thread's log, oldest first.
func (v *View) Messages() []Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.open == nil {
		return nil
	}
	return v.open.log.Messages()
}

// Send writes body to threadID and shows the stored record immediately. The
// counterpart is notified in the background; that step never fails Send.
// On error nothing is appended and the caller keeps its input.
func (v *View) Send(ctx context.Context, threadID, body string) (Message, error) {
	body = normalize.Body(body)
	if body == "" {
		return Message{}, ErrEmptyMessage
	}
	if v.isClosed() {
		return Message{}, ErrClosed
	}

	msg, err := v.backend.SendMessage(ctx, threadID, v.viewerID, body)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	v.mu.Lock()
	isOpen := v.open != nil && v.open.log.ThreadID() == threadID
	var gen uint64
	if isOpen {
		gen = v.open.generation
		v.open.log.Append(msg)
	}
	v.bumpLocked(msg)
	if !v.closed {
		v.pending.Add(1)
		go func() {
			defer v.pending.Done()
			v.notifyCounterpart(msg)
		}()
	}
	v.mu.Unlock()

	if isOpen {
		v.emit(Update{Kind: UpdateMessages, ThreadID: threadID})
		v.markRead(ctx, gen, threadID)
	}
	return msg, nil
}

// receive applies one push event delivered to the subscription opened under
// generation gen.
func (v *View) receive(gen uint64, m Message) {
	v.mu.Lock()
	ot := v.open
	if v.closed || ot == nil || ot.generation != gen || m.ConversationID != ot.log.ThreadID() {
		v.mu.Unlock()
		metrics.StaleEventsDropped.Inc()
		v.log.Debug().Str("message_id", m.ID).Msg("dropped stale live event")
		return
	}
	if !ot.log.Append(m) {
		v.mu.Unlock()
		metrics.EchoesDropped.Inc()
		return
	}
	v.bumpLocked(m)
	v.mu.Unlock()

	v.emit(Update{Kind: UpdateMessages, ThreadID: m.ConversationID})
	if m.SenderID != v.viewerID {
		ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
		defer cancel()
		v.markRead(ctx, gen, m.ConversationID)
	}
}

// markRead flags the thread read for the viewer and clears its badge, as long
// as threadID is still open under generation gen. Errors are logged; the next
// trigger retries.
func (v *View) markRead(ctx context.Context, gen uint64, threadID string) {
	if !v.isOpenUnder(gen, threadID) {
		v.log.Debug().Str("conversation_id", threadID).Msg("thread left before marking read")
		return
	}
	if err := v.backend.MarkRead(ctx, threadID, v.viewerID); err != nil {
		v.log.Warn().Err(err).Str("conversation_id", threadID).Msg("mark read failed")
		return
	}

	v.mu.Lock()
	if v.isOpenUnderLocked(gen, threadID) {
		v.open.log.MarkReadFrom(v.viewerID)
	}
	if i := v.indexLocked(threadID); i >= 0 {
		v.threads[i].Unread = 0
		v.threads[i].UnreadUnavailable = false
	}
	v.mu.Unlock()

	v.emit(Update{Kind: UpdateDirectory, ThreadID: threadID})
}

func (v *View) isOpenUnder(gen uint64, threadID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.isOpenUnderLocked(gen, threadID)
}

func (v *View) isOpenUnderLocked(gen uint64, threadID string) bool {
	return !v.closed && v.open != nil && v.open.generation == gen && v.open.log.ThreadID() == threadID
}

func (v *View) notifyCounterpart(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	log := v.log.With().
		Str("conversation_id", msg.ConversationID).
		Str("message_id", msg.ID).
		Logger()

	recipient, listing, err := v.resolveThread(ctx, msg.ConversationID)
	if err != nil {
		log.Warn().Err(err).Msg("new message notification skipped")
		return
	}
	body := fmt.Sprintf("About %q: %s", listing, normalize.Preview(msg.Body, previewRunes))
	if err := v.backend.SendNotification(ctx, recipient, NotificationTitle, body); err != nil {
		log.Warn().Err(err).Str("recipient_id", recipient).Msg("new message notification failed")
	}
}

// resolveThread returns the counterpart id and listing title of threadID,
// from the directory when it has the thread.
func (v *View) resolveThread(ctx context.Context, threadID string) (string, string, error) {
	v.mu.Lock()
	if i := v.indexLocked(threadID); i >= 0 {
		s := v.threads[i]
		v.mu.Unlock()
		return s.Counterpart.ID, s.Listing.Title, nil
	}
	v.mu.Unlock()

	conv, err := v.backend.GetConversation(ctx, threadID)
	if err != nil {
		return "", "", fmt.Errorf("get conversation: %w", err)
	}
	title := UnknownListing
	listings, err := v.backend.BatchGetListingSummaries(ctx, []string{conv.ListingID})
	if err != nil {
		v.log.Debug().Err(err).Str("listing_id", conv.ListingID).Msg("listing lookup failed")
	} else if l, ok := listings[conv.ListingID]; ok {
		title = l.Title
	}
	return conv.Counterpart(v.viewerID), title, nil
}

// bumpLocked moves the thread's preview and last activity forward to m and
// re-sorts the directory.
func (v *View) bumpLocked(m Message) {
	i := v.indexLocked(m.ConversationID)
	if i < 0 {
		return
	}
	s := &v.threads[i]
	if s.LastMessage != nil && s.LastMessage.CreatedAt.After(m.CreatedAt) {
		return
	}
	last := m
	s.LastMessage = &last
	s.PreviewUnavailable = false
	if m.CreatedAt.After(s.LastActivityAt) {
		s.LastActivityAt = m.CreatedAt
	}
	sortSummaries(v.threads)
}

func (v *View) indexLocked(threadID string) int {
	return slices.IndexFunc(v.threads, func(s ThreadSummary) bool {
		return s.ConversationID == threadID
	})
}

// detachLocked clears the open thread and invalidates its subscription's
// generation. The returned subscription must be released after unlocking.
func (v *View) detachLocked() Subscription {
	if v.open == nil {
		return nil
	}
	sub := v.open.sub
	v.open = nil
	v.generation++
	return sub
}

func (v *View) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *View) emit(u Update) {
	if v.onUpdate != nil {
		v.onUpdate(u)
	}
}

func release(sub Subscription) {
	if sub != nil {
		sub.Release()
	}
}
