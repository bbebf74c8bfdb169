package inbox

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/PaulBabatuyi/marketchat/internal/logging"
)

// DefaultNotificationLimit is how many notifications the bell loads.
const DefaultNotificationLimit = 20

// BellOptions configure a Bell. The zero value is usable.
type BellOptions struct {
	Logger         *zerolog.Logger
	Limit          int
	RequestTimeout time.Duration
	// OnChange runs after every successful reload, without the bell's lock.
	OnChange func(BellState)
}

// BellState is what the badge renders.
type BellState struct {
	Items  []Notification
	Unread int
}

// Bell keeps the signed-in user's recent notifications and unread count
// current. It lives for one authenticated session: Start on sign-in, Stop on
// sign-out.
type Bell struct {
	source   NotificationSource
	userID   string
	limit    int
	timeout  time.Duration
	log      zerolog.Logger
	onChange func(BellState)

	// reload serializes loads so an older result never replaces a newer one.
	reload sync.Mutex

	mu      sync.Mutex
	state   BellState
	sub     Subscription
	started bool
	stopped bool
}

// NewBell returns a bell for userID. Call Start to load and subscribe.
func NewBell(source NotificationSource, userID string, opts BellOptions) *Bell {
	log := logging.Logger
	if opts.Logger != nil {
		log = *opts.Logger
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultNotificationLimit
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	return &Bell{
		source:   source,
		userID:   userID,
		limit:    opts.Limit,
		timeout:  opts.RequestTimeout,
		log:      log.With().Str("user_id", userID).Logger(),
		onChange: opts.OnChange,
	}
}

var errBellStarted = errors.New("bell already started")

// Start subscribes to the user's notification feed and loads the current
// list. A failed subscription is logged and the bell works without pushes.
func (b *Bell) Start(ctx context.Context) error {
	b.mu.Lock()
	switch {
	case b.stopped:
		b.mu.Unlock()
		return ErrClosed
	case b.started:
		b.mu.Unlock()
		return errBellStarted
	}
	b.started = true
	b.mu.Unlock()

	sub, err := b.source.SubscribeNotifications(ctx, b.userID, b.pushed)
	if err != nil {
		b.log.Warn().Err(err).Msg("notification feed unavailable")
	} else {
		b.mu.Lock()
		stopped := b.stopped
		if !stopped {
			b.sub = sub
		}
		b.mu.Unlock()
		if stopped {
			sub.Release()
			return ErrClosed
		}
	}

	return b.Reload(ctx)
}

// Reload fetches the most recent notifications and recomputes the badge.
func (b *Bell) Reload(ctx context.Context) error {
	b.reload.Lock()
	defer b.reload.Unlock()

	items, err := b.source.ListNotifications(ctx, b.userID, b.limit)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}
	state := BellState{
		Items:  items,
		Unread: lo.CountBy(items, func(n Notification) bool { return !n.Read }),
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return ErrClosed
	}
	b.state = state
	b.mu.Unlock()

	if b.onChange != nil {
		b.onChange(cloneState(state))
	}
	return nil
}

// MarkRead flags one notification read and reloads.
func (b *Bell) MarkRead(ctx context.Context, notificationID string) error {
	if err := b.source.MarkNotificationRead(ctx, notificationID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return b.Reload(ctx)
}

// MarkAllRead flags every notification of the user read and reloads.
func (b *Bell) MarkAllRead(ctx context.Context) error {
	if err := b.source.MarkAllNotificationsRead(ctx, b.userID); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return b.Reload(ctx)
}

// Snapshot returns a copy of the last loaded state.
func (b *Bell) Snapshot() BellState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneState(b.state)
}

// Stop releases the feed subscription. The bell cannot be restarted.
func (b *Bell) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()
	release(sub)
}

func (b *Bell) pushed(n Notification) {
	b.mu.Lock()
	stopped := b.stopped
	b.mu.Unlock()
	if stopped {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.Reload(ctx); err != nil && !errors.Is(err, ErrClosed) {
		b.log.Warn().Err(err).Str("notification_id", n.ID).Msg("notification reload failed")
	}
}

func cloneState(s BellState) BellState {
	return BellState{Items: slices.Clone(s.Items), Unread: s.Unread}
}
