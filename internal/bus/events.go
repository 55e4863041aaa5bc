package bus

import "fmt"

// InboundMessage represents a text message received from any channel.
type InboundMessage struct {
	Channel  string            // source channel name (e.g. "telegram", "discord")
	SenderID string            // sender identifier
	ChatID   string            // chat/conversation identifier
	Content  string            // text content
	Metadata map[string]string // arbitrary metadata
}

// ChatKey returns the routing key identifying this message's conversation.
func (m InboundMessage) ChatKey() string {
	return ChatKey(m.Channel, m.ChatID)
}

// ChatKey builds the "channel:chatID" key used to address per-chat state.
func ChatKey(channel, chatID string) string {
	return fmt.Sprintf("%s:%s", channel, chatID)
}

// OutboundMessage represents a text message to be sent to a channel.
type OutboundMessage struct {
	Channel  string // target channel
	ChatID   string // target chat
	Content  string // text content
	Markdown bool   // render as Markdown where the channel supports it
}
