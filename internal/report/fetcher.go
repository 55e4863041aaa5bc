package report

import (
	"context"
	"log/slog"

	"github.com/coopco/salesbot/internal/bus"
	"github.com/coopco/salesbot/internal/salesapi"
	"github.com/coopco/salesbot/internal/session"
)

const (
	noReportMessage    = "No sales report found."
	fetchFailedMessage = "Failed to retrieve sales report."
)

// Fetcher retrieves sales reports for a chat and relays them as messages.
type Fetcher struct {
	api      *salesapi.Client
	sessions *session.Manager
	bus      *bus.MessageBus
}

func NewFetcher(api *salesapi.Client, sessions *session.Manager, msgBus *bus.MessageBus) *Fetcher {
	return &Fetcher{api: api, sessions: sessions, bus: msgBus}
}

// Send fetches the report for the given filter and publishes one formatted
// message per record to the chat. Empty results and failures each produce a
// single message; failures are logged and never retried.
func (f *Fetcher) Send(ctx context.Context, channel, chatID string, filter salesapi.Filter) {
	key := bus.ChatKey(channel, chatID)

	token, err := f.sessions.EnsureValidToken(ctx, key)
	if err != nil {
		slog.Error("report fetch: token refresh failed", "chat", key, "error", err)
		f.reply(channel, chatID, fetchFailedMessage, false)
		return
	}

	records, err := f.api.UsersReport(ctx, token, filter, "", "")
	if err != nil {
		slog.Error("report fetch failed", "chat", key, "filter", filter, "error", err)
		f.reply(channel, chatID, fetchFailedMessage, false)
		return
	}

	if len(records) == 0 {
		f.reply(channel, chatID, noReportMessage, false)
		return
	}
	for _, r := range records {
		f.reply(channel, chatID, Format(r), true)
	}
}

func (f *Fetcher) reply(channel, chatID, text string, markdown bool) {
	f.bus.PublishOutbound(bus.OutboundMessage{
		Channel:  channel,
		ChatID:   chatID,
		Content:  text,
		Markdown: markdown,
	})
}
