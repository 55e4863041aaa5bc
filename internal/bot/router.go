// Package bot routes incoming chat messages to the session, report, and
// scheduling services.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coopco/salesbot/internal/bus"
	"github.com/coopco/salesbot/internal/command"
	"github.com/coopco/salesbot/internal/report"
	"github.com/coopco/salesbot/internal/scheduler"
	"github.com/coopco/salesbot/internal/session"
)

const (
	promptLoginIDMessage  = "Please provide your login ID:"
	promptPasswordMessage = "Please provide your password:"

	alreadyLoggedInMessage = "You are already logged in. Please logout to login again."
	notLoggedInMessage     = "You are not logged in. Type 'login' to start the login process."
	loggedOutMessage       = "Logged out successfully."

	invalidCommandMessage    = "Invalid command. Type '/command' for help."
	invalidScheduleMessage   = `Invalid command. Use the format: "Schedule report {type} {HH:MM}".`
	invalidTaskNumberMessage = "Please provide a valid task number."

	noScheduledReportsMessage = "No scheduled reports."
)

const commandListMessage = `Available commands:
- "login" to log in
- "logout" to log out
- "Get sales report"
- "Get daily sales report"
- "Get weekly sales report"
- "Get monthly sales report"
- "Get quarterly sales report"
- "Schedule report {type} {HH:MM}" to schedule a report
- "Show scheduled reports" to view all scheduled reports
- "Delete scheduled report {task number}" to delete a scheduled report`

// Router consumes inbound messages, applies the credential-collection
// precedence rule, and dispatches parsed commands.
type Router struct {
	bus       *bus.MessageBus
	sessions  *session.Manager
	fetcher   *report.Fetcher
	scheduler *scheduler.Scheduler

	mu        sync.Mutex
	chatLocks map[string]*sync.Mutex
}

// Config holds all dependencies for Router.
type Config struct {
	Bus       *bus.MessageBus
	Sessions  *session.Manager
	Fetcher   *report.Fetcher
	Scheduler *scheduler.Scheduler
}

// NewRouter creates a Router from the given config.
func NewRouter(cfg Config) *Router {
	return &Router{
		bus:       cfg.Bus,
		sessions:  cfg.Sessions,
		fetcher:   cfg.Fetcher,
		scheduler: cfg.Scheduler,
		chatLocks: make(map[string]*sync.Mutex),
	}
}

// Run consumes inbound messages from the bus and processes each in a
// goroutine. Messages from the same chat are serialized; different chats
// proceed independently. Returns when ctx is cancelled.
func (r *Router) Run(ctx context.Context) error {
	for {
		msg, err := r.bus.ConsumeInbound(ctx)
		if err != nil {
			return err
		}
		go r.processMessage(ctx, msg)
	}
}

func (r *Router) processMessage(ctx context.Context, msg bus.InboundMessage) {
	lock := r.chatLock(msg.ChatKey())
	lock.Lock()
	defer lock.Unlock()
	r.handle(ctx, msg)
}

// chatLock returns the mutex serializing one chat's messages, so two rapid
// messages cannot interleave around the API suspension point.
func (r *Router) chatLock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.chatLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.chatLocks[key] = lock
	}
	return lock
}

func (r *Router) handle(ctx context.Context, msg bus.InboundMessage) {
	key := msg.ChatKey()

	cmd := command.Parse(msg.Content)

	// Control commands dispatch even mid-collection. Any other text fills the
	// pending credential field until both are captured; blank input re-prompts
	// for the same field.
	if !isControlCommand(cmd.Kind) {
		switch r.sessions.State(key) {
		case session.StateAwaitingLoginID:
			text := strings.TrimSpace(msg.Content)
			if text == "" {
				r.reply(msg, promptLoginIDMessage)
				return
			}
			if err := r.sessions.SubmitLoginID(key, text); err != nil {
				slog.Error("failed to record login ID", "chat", key, "error", err)
				r.reply(msg, invalidCommandMessage)
				return
			}
			r.reply(msg, promptPasswordMessage)
			return
		case session.StateAwaitingPassword:
			text := strings.TrimSpace(msg.Content)
			if text == "" {
				r.reply(msg, promptPasswordMessage)
				return
			}
			if err := r.sessions.SubmitPassword(key, text); err != nil {
				slog.Error("failed to record password", "chat", key, "error", err)
				r.reply(msg, invalidCommandMessage)
				return
			}
			// The session manager messages the chat with the outcome.
			if err := r.sessions.Login(ctx, key); err != nil {
				slog.Warn("login attempt failed", "chat", key, "error", err)
			}
			return
		}
	}

	switch cmd.Kind {
	case command.KindStart:
		r.reply(msg, greeting(time.Now()))
	case command.KindCommandList:
		r.reply(msg, commandListMessage)
	case command.KindLogin:
		if err := r.sessions.BeginLogin(key, msg.Channel, msg.ChatID); err != nil {
			if errors.Is(err, session.ErrAlreadyLoggedIn) {
				r.reply(msg, alreadyLoggedInMessage)
				return
			}
			slog.Error("failed to begin login", "chat", key, "error", err)
			return
		}
		r.reply(msg, promptLoginIDMessage)
	case command.KindLogout:
		if err := r.sessions.Logout(key); err != nil {
			r.reply(msg, "You are not logged in.")
			return
		}
		r.reply(msg, loggedOutMessage)
	case command.KindGetReport:
		if !r.requireLogin(msg, key) {
			return
		}
		r.fetcher.Send(ctx, msg.Channel, msg.ChatID, cmd.Filter)
	case command.KindScheduleReport:
		if !r.requireLogin(msg, key) {
			return
		}
		if err := r.scheduler.Add(key, msg.Channel, msg.ChatID, cmd.ReportType, cmd.TimeOfDay); err != nil {
			slog.Warn("failed to schedule report", "chat", key, "error", err)
			r.reply(msg, invalidScheduleMessage)
			return
		}
		r.reply(msg, fmt.Sprintf("Scheduled %s sales report at %s.", cmd.ReportType, cmd.TimeOfDay))
	case command.KindInvalidSchedule:
		r.reply(msg, invalidScheduleMessage)
	case command.KindShowScheduled:
		r.reply(msg, r.formatTasks(key))
	case command.KindDeleteScheduled:
		if _, err := r.scheduler.Remove(key, cmd.Position); err != nil {
			r.reply(msg, invalidTaskNumberMessage)
			return
		}
		r.reply(msg, fmt.Sprintf("Deleted scheduled report %d.", cmd.Position))
	case command.KindInvalidDelete:
		r.reply(msg, invalidTaskNumberMessage)
	default:
		r.reply(msg, invalidCommandMessage)
	}
}

// isControlCommand reports whether the command bypasses credential
// collection: /start, /command, login, and logout always dispatch.
func isControlCommand(k command.Kind) bool {
	switch k {
	case command.KindStart, command.KindCommandList, command.KindLogin, command.KindLogout:
		return true
	}
	return false
}

// requireLogin replies and returns false if the chat has no authenticated
// session.
func (r *Router) requireLogin(msg bus.InboundMessage, key string) bool {
	if r.sessions.State(key) != session.StateLoggedIn {
		r.reply(msg, notLoggedInMessage)
		return false
	}
	return true
}

// formatTasks renders the chat's scheduled reports with 1-based positions.
func (r *Router) formatTasks(key string) string {
	tasks := r.scheduler.List(key)
	if len(tasks) == 0 {
		return noScheduledReportsMessage
	}
	var b strings.Builder
	b.WriteString("Your scheduled reports:")
	for i, t := range tasks {
		fmt.Fprintf(&b, "\n%d. %s at %s", i+1, t.ReportType, t.TimeOfDay)
	}
	return b.String()
}

// greeting picks a salutation by local hour.
func greeting(now time.Time) string {
	var g string
	switch hour := now.Hour(); {
	case hour < 12:
		g = "Good Morning!"
	case hour < 18:
		g = "Good Afternoon!"
	default:
		g = "Good Evening!"
	}
	return g + " Welcome! Type 'login' to start the login process."
}

func (r *Router) reply(msg bus.InboundMessage, text string) {
	r.bus.PublishOutbound(bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: text,
	})
}
