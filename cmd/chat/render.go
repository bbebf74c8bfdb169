package main

import (
	"fmt"
	"html"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/PaulBabatuyi/marketchat/internal/inbox"
	"github.com/PaulBabatuyi/marketchat/internal/normalize"
)

const tablePreviewRunes = 40

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func renderThreads(w io.Writer, threads []inbox.ThreadSummary, viewerID string, now time.Time) {
	if len(threads) == 0 {
		fmt.Fprintln(w, "No conversations yet.")
		return
	}
	table := newTable(w, []string{"Thread", "With", "Listing", "Last message", "Unread", "Active"})
	for _, t := range threads {
		table.Append([]string{
			t.ConversationID,
			t.Counterpart.Username,
			listingLabel(t.Listing),
			lastMessageLabel(t, viewerID),
			unreadLabel(t),
			ago(now, t.LastActivityAt),
		})
	}
	table.Render()
}

func renderNotifications(w io.Writer, state inbox.BellState, now time.Time) {
	fmt.Fprintf(w, "%d unread\n", state.Unread)
	if len(state.Items) == 0 {
		return
	}
	table := newTable(w, []string{"", "ID", "Title", "Body", "When"})
	for _, n := range state.Items {
		mark := ""
		if !n.Read {
			mark = "*"
		}
		table.Append([]string{
			mark,
			n.ID,
			n.Title,
			normalize.Preview(n.Body, tablePreviewRunes*2),
			ago(now, n.CreatedAt),
		})
	}
	table.Render()
}

func listingLabel(l inbox.ListingSummary) string {
	if l.Title == inbox.UnknownListing {
		return l.Title
	}
	return fmt.Sprintf("%s (%s)", l.Title, formatPrice(l.Price))
}

func lastMessageLabel(t inbox.ThreadSummary, viewerID string) string {
	switch {
	case t.PreviewUnavailable:
		return "?"
	case t.LastMessage == nil:
		return ""
	}
	body := normalize.Preview(displayBody(t.LastMessage.Body), tablePreviewRunes)
	if t.LastMessage.SenderID == viewerID {
		return "you: " + body
	}
	return body
}

func unreadLabel(t inbox.ThreadSummary) string {
	switch {
	case t.UnreadUnavailable:
		return "?"
	case t.Unread == 0:
		return ""
	}
	return strconv.Itoa(t.Unread)
}

// formatPrice renders a price held in minor units.
func formatPrice(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// displayBody undoes the escaping applied when the body was stored.
func displayBody(s string) string {
	return html.UnescapeString(s)
}

func ago(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
	return t.Local().Format("2006-01-02")
}

// transcript prints each message of a thread once, in log order.
type transcript struct {
	w        io.Writer
	viewerID string

	mu    sync.Mutex
	names map[string]string
	seen  map[string]bool
}

func newTranscript(w io.Writer, viewerID string) *transcript {
	return &transcript{
		w:        w,
		viewerID: viewerID,
		names:    map[string]string{viewerID: "you"},
		seen:     make(map[string]bool),
	}
}

func (t *transcript) setName(userID, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if userID != t.viewerID && name != "" {
		t.names[userID] = name
	}
}

// show prints the messages of log not printed before.
func (t *transcript) show(log []inbox.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range log {
		if t.seen[m.ID] {
			continue
		}
		t.seen[m.ID] = true
		name, ok := t.names[m.SenderID]
		if !ok {
			name = m.SenderID
		}
		fmt.Fprintf(t.w, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), name, displayBody(m.Body))
	}
}
