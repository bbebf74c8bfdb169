package inbox

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/PaulBabatuyi/marketchat/internal/metrics"
)

// DefaultDirectoryConcurrency bounds the per-thread lookups in flight.
const DefaultDirectoryConcurrency = 8

// DirectoryBuilder assembles the thread directory of one user.
type DirectoryBuilder struct {
	source      DirectorySource
	concurrency int
	log         zerolog.Logger
}

// NewDirectoryBuilder returns a builder running at most concurrency
// per-thread lookups at once; zero or less means DefaultDirectoryConcurrency.
func NewDirectoryBuilder(source DirectorySource, concurrency int, log zerolog.Logger) *DirectoryBuilder {
	if concurrency <= 0 {
		concurrency = DefaultDirectoryConcurrency
	}
	return &DirectoryBuilder{source: source, concurrency: concurrency, log: log}
}

// Build returns one summary per conversation userID participates in, most
// recent activity first. The identity and listing lookups are all-or-nothing
// and fail the whole build with ErrDirectoryUnavailable. A failed latest
// message or unread lookup only degrades its own row.
func (b *DirectoryBuilder) Build(ctx context.Context, userID string) ([]ThreadSummary, error) {
	convs, err := b.source.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list conversations: %w", ErrDirectoryUnavailable, err)
	}
	if len(convs) == 0 {
		return []ThreadSummary{}, nil
	}

	counterpartIDs := lo.Uniq(lo.Map(convs, func(c Conversation, _ int) string {
		return c.Counterpart(userID)
	}))
	listingIDs := lo.Uniq(lo.Map(convs, func(c Conversation, _ int) string {
		return c.ListingID
	}))

	var (
		identities map[string]Identity
		listings   map[string]ListingSummary
	)
	batch, batchCtx := errgroup.WithContext(ctx)
	batch.Go(func() error {
		var err error
		identities, err = b.source.BatchGetIdentities(batchCtx, counterpartIDs)
		if err != nil {
			return fmt.Errorf("identities: %w", err)
		}
		return nil
	})
	batch.Go(func() error {
		var err error
		listings, err = b.source.BatchGetListingSummaries(batchCtx, listingIDs)
		if err != nil {
			return fmt.Errorf("listings: %w", err)
		}
		return nil
	})

	// Per-thread lookups share batchCtx so a failed batch cancels them.
	summaries := make([]ThreadSummary, len(convs))
	var perThread errgroup.Group
	perThread.SetLimit(b.concurrency)
	for i, conv := range convs {
		s := &summaries[i]
		s.ConversationID = conv.ID
		s.LastActivityAt = conv.LastActivityAt

		perThread.Go(func() error {
			latest, err := b.source.GetLatestMessage(batchCtx, conv.ID)
			if err != nil {
				b.enrichmentFailed("latest_message", conv.ID, err)
				s.PreviewUnavailable = true
				return nil
			}
			s.LastMessage = latest
			return nil
		})
		perThread.Go(func() error {
			n, err := b.source.CountUnread(batchCtx, conv.ID, userID)
			if err != nil {
				b.enrichmentFailed("unread_count", conv.ID, err)
				s.UnreadUnavailable = true
				return nil
			}
			s.Unread = n
			return nil
		})
	}
	// batch.Wait cancels batchCtx, so it has to come second.
	_ = perThread.Wait()
	if err := batch.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	for i, conv := range convs {
		s := &summaries[i]
		cp := conv.Counterpart(userID)
		if id, ok := identities[cp]; ok {
			s.Counterpart = id
		} else {
			s.Counterpart = Identity{ID: cp, Username: UnknownUsername}
		}
		if l, ok := listings[conv.ListingID]; ok {
			s.Listing = l
		} else {
			s.Listing = ListingSummary{ID: conv.ListingID, Title: UnknownListing}
		}
		if s.LastMessage != nil && s.LastMessage.CreatedAt.After(s.LastActivityAt) {
			s.LastActivityAt = s.LastMessage.CreatedAt
		}
	}

	sortSummaries(summaries)
	return summaries, nil
}

func (b *DirectoryBuilder) enrichmentFailed(lookup, conversationID string, err error) {
	metrics.DirectoryEnrichmentFailures.WithLabelValues(lookup).Inc()
	b.log.Warn().
		Err(err).
		Str("lookup", lookup).
		Str("conversation_id", conversationID).
		Msg("directory enrichment failed")
}

// sortSummaries orders by last activity, newest first, ties by id.
func sortSummaries(s []ThreadSummary) {
	sort.SliceStable(s, func(i, j int) bool {
		if !s[i].LastActivityAt.Equal(s[j].LastActivityAt) {
			return s[i].LastActivityAt.After(s[j].LastActivityAt)
		}
		return s[i].ConversationID < s[j].ConversationID
	})
}
