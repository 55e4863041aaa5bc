package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coopco/salesbot/internal/bus"
	"github.com/coopco/salesbot/internal/report"
	"github.com/coopco/salesbot/internal/salesapi"
	"github.com/coopco/salesbot/internal/scheduler"
	"github.com/coopco/salesbot/internal/session"
)

type routerRig struct {
	router   *Router
	sessions *session.Manager
	sched    *scheduler.Scheduler

	mu       sync.Mutex
	messages []string
}

func newRouterRig(t *testing.T) *routerRig {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login_user":
			json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
		case "/api/sales/sales_users_report_list":
			json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{
				{
					"userName": "Alice", "userId": 1,
					"totalSaleBookingCounts": 3, "totalCampaignAmount": 100.0,
					"totalBaseAmount": 80.0, "totalGstAmount": 18.0,
					"totalRecordServiceAmount": 2.0, "totalRecordServiceCounts": 1,
					"totalRequestedAmount": 90.0, "totalApprovedAmount": 85.0,
				},
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	msgBus := bus.NewMessageBus(100)
	client := salesapi.NewClient(srv.URL, 0)
	sessions := session.NewManager(client, msgBus, time.Hour)
	t.Cleanup(sessions.Close)
	fetcher := report.NewFetcher(client, sessions, msgBus)
	sched := scheduler.New(func(channel, chatID string, reportType report.Type) {
		fetcher.Send(context.Background(), channel, chatID, reportType.Filter())
	})

	rig := &routerRig{
		router: NewRouter(Config{
			Bus:       msgBus,
			Sessions:  sessions,
			Fetcher:   fetcher,
			Scheduler: sched,
		}),
		sessions: sessions,
		sched:    sched,
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	msgBus.Subscribe("", func(msg bus.OutboundMessage) {
		rig.mu.Lock()
		rig.messages = append(rig.messages, msg.Content)
		rig.mu.Unlock()
	})
	go msgBus.DispatchOutbound(ctx)

	return rig
}

// say delivers one user message to the router and waits for the reply count
// to grow by at least wantReplies.
func (rig *routerRig) say(t *testing.T, text string, wantReplies int) []string {
	t.Helper()
	rig.mu.Lock()
	before := len(rig.messages)
	rig.mu.Unlock()

	rig.router.handle(context.Background(), bus.InboundMessage{
		Channel: "telegram", SenderID: "u1", ChatID: "1", Content: text,
	})

	deadline := time.After(time.Second)
	for {
		rig.mu.Lock()
		got := len(rig.messages) - before
		rig.mu.Unlock()
		if got >= wantReplies {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timeout: got %d replies to %q, want %d", got, text, wantReplies)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	rig.mu.Lock()
	defer rig.mu.Unlock()
	out := make([]string, len(rig.messages)-before)
	copy(out, rig.messages[before:])
	return out
}

func (rig *routerRig) login(t *testing.T) {
	t.Helper()
	rig.say(t, "login", 1)
	rig.say(t, "alice", 1)
	replies := rig.say(t, "secret", 1)
	if !strings.HasPrefix(replies[0], "Login successful!") {
		t.Fatalf("expected login success, got %q", replies[0])
	}
}

func TestStartGreeting(t *testing.T) {
	rig := newRouterRig(t)
	replies := rig.say(t, "/start", 1)
	if !strings.Contains(replies[0], "Welcome! Type 'login' to start the login process.") {
		t.Errorf("unexpected greeting %q", replies[0])
	}
	if !strings.HasPrefix(replies[0], "Good ") {
		t.Errorf("greeting should open with a salutation, got %q", replies[0])
	}
}

func TestCommandList(t *testing.T) {
	rig := newRouterRig(t)
	replies := rig.say(t, "/command", 1)
	if !strings.Contains(replies[0], `"Schedule report {type} {HH:MM}"`) {
		t.Errorf("unexpected command list %q", replies[0])
	}
}

func TestUnknownCommand(t *testing.T) {
	rig := newRouterRig(t)
	replies := rig.say(t, "what is the weather", 1)
	if replies[0] != "Invalid command. Type '/command' for help." {
		t.Errorf("unexpected reply %q", replies[0])
	}
}

func TestLoginFlow(t *testing.T) {
	rig := newRouterRig(t)

	replies := rig.say(t, "login", 1)
	if replies[0] != "Please provide your login ID:" {
		t.Fatalf("unexpected reply %q", replies[0])
	}
	replies = rig.say(t, "alice", 1)
	if replies[0] != "Please provide your password:" {
		t.Fatalf("unexpected reply %q", replies[0])
	}
	replies = rig.say(t, "secret", 1)
	if !strings.HasPrefix(replies[0], "Login successful!") {
		t.Fatalf("unexpected reply %q", replies[0])
	}
	if got := rig.sessions.State("telegram:1"); got != session.StateLoggedIn {
		t.Errorf("state = %v, want logged_in", got)
	}
}

func TestCredentialCollectionConsumesText(t *testing.T) {
	rig := newRouterRig(t)

	rig.say(t, "login", 1)
	// Mid-collection, non-control text is consumed as credentials, even when
	// it looks like a command.
	replies := rig.say(t, "schedule report daily 09:00", 1)
	if replies[0] != "Please provide your password:" {
		t.Fatalf("text should be captured as login ID, got reply %q", replies[0])
	}
	replies = rig.say(t, "get daily sales report", 1)
	if !strings.HasPrefix(replies[0], "Login successful!") {
		t.Fatalf("text should be captured as password, got reply %q", replies[0])
	}

	// The texts were credentials, not commands: no task was created and no
	// report was fetched.
	if got := rig.sched.List("telegram:1"); len(got) != 0 {
		t.Errorf("expected no scheduled tasks, got %d", len(got))
	}
	if got := rig.sessions.State("telegram:1"); got != session.StateLoggedIn {
		t.Errorf("state = %v, want logged_in", got)
	}
}

func TestControlCommandsDispatchMidCollection(t *testing.T) {
	rig := newRouterRig(t)

	rig.say(t, "login", 1)
	replies := rig.say(t, "/start", 1)
	if !strings.HasPrefix(replies[0], "Good ") {
		t.Fatalf("/start should greet mid-collection, got %q", replies[0])
	}
	if got := rig.sessions.State("telegram:1"); got != session.StateAwaitingLoginID {
		t.Fatalf("state = %v, want awaiting_login_id after /start", got)
	}

	replies = rig.say(t, "/command", 1)
	if !strings.HasPrefix(replies[0], "Available commands:") {
		t.Fatalf("/command should list commands mid-collection, got %q", replies[0])
	}

	replies = rig.say(t, "logout", 1)
	if replies[0] != "Logged out successfully." {
		t.Fatalf("logout should dispatch mid-collection, got %q", replies[0])
	}
	if got := rig.sessions.State("telegram:1"); got != session.StateLoggedOut {
		t.Errorf("state = %v, want logged_out", got)
	}
}

func TestLoginRestartsCollection(t *testing.T) {
	rig := newRouterRig(t)

	rig.say(t, "login", 1)
	rig.say(t, "alice", 1)
	// "login" always restarts collection, discarding the partial login ID.
	replies := rig.say(t, "login", 1)
	if replies[0] != "Please provide your login ID:" {
		t.Fatalf("login should restart collection, got %q", replies[0])
	}
	rig.say(t, "bob", 1)
	replies = rig.say(t, "secret", 1)
	if !strings.HasPrefix(replies[0], "Login successful!") {
		t.Fatalf("unexpected reply %q", replies[0])
	}
}

func TestBlankCredentialReprompts(t *testing.T) {
	rig := newRouterRig(t)

	rig.say(t, "login", 1)
	replies := rig.say(t, "   ", 1)
	if replies[0] != "Please provide your login ID:" {
		t.Fatalf("blank login ID should re-prompt, got %q", replies[0])
	}
	rig.say(t, "alice", 1)
	replies = rig.say(t, "   ", 1)
	if replies[0] != "Please provide your password:" {
		t.Fatalf("blank password should re-prompt, got %q", replies[0])
	}
	if got := rig.sessions.State("telegram:1"); got != session.StateAwaitingPassword {
		t.Fatalf("state = %v, want awaiting_password after blank input", got)
	}
	replies = rig.say(t, "secret", 1)
	if !strings.HasPrefix(replies[0], "Login successful!") {
		t.Fatalf("unexpected reply %q", replies[0])
	}
}

func TestLoginWhenAlreadyLoggedIn(t *testing.T) {
	rig := newRouterRig(t)
	rig.login(t)

	replies := rig.say(t, "login", 1)
	if replies[0] != "You are already logged in. Please logout to login again." {
		t.Errorf("unexpected reply %q", replies[0])
	}
}

func TestLogout(t *testing.T) {
	rig := newRouterRig(t)

	replies := rig.say(t, "logout", 1)
	if replies[0] != "You are not logged in." {
		t.Errorf("unexpected reply %q", replies[0])
	}

	rig.login(t)
	replies = rig.say(t, "logout", 1)
	if replies[0] != "Logged out successfully." {
		t.Errorf("unexpected reply %q", replies[0])
	}
	if got := rig.sessions.State("telegram:1"); got != session.StateLoggedOut {
		t.Errorf("state = %v, want logged_out", got)
	}
}

func TestGetReportRequiresLogin(t *testing.T) {
	rig := newRouterRig(t)
	replies := rig.say(t, "get daily sales report", 1)
	if replies[0] != "You are not logged in. Type 'login' to start the login process." {
		t.Errorf("unexpected reply %q", replies[0])
	}
}

func TestGetReportDelivers(t *testing.T) {
	rig := newRouterRig(t)
	rig.login(t)

	replies := rig.say(t, "get daily sales report", 1)
	if !strings.Contains(replies[0], "Sales User Report for Alice (User ID: 1)") {
		t.Errorf("unexpected reply %q", replies[0])
	}
}

func TestScheduleShowDelete(t *testing.T) {
	rig := newRouterRig(t)
	rig.login(t)

	replies := rig.say(t, "schedule report daily 09:00", 1)
	if replies[0] != "Scheduled daily sales report at 09:00." {
		t.Fatalf("unexpected reply %q", replies[0])
	}
	rig.say(t, "schedule report weekly 10:30", 1)

	replies = rig.say(t, "show scheduled reports", 1)
	want := "Your scheduled reports:\n1. daily at 09:00\n2. weekly at 10:30"
	if replies[0] != want {
		t.Fatalf("listing = %q, want %q", replies[0], want)
	}

	replies = rig.say(t, "delete scheduled report 1", 1)
	if replies[0] != "Deleted scheduled report 1." {
		t.Fatalf("unexpected reply %q", replies[0])
	}

	replies = rig.say(t, "show scheduled reports", 1)
	want = "Your scheduled reports:\n1. weekly at 10:30"
	if replies[0] != want {
		t.Errorf("listing after delete = %q, want %q", replies[0], want)
	}
}

func TestShowScheduledEmpty(t *testing.T) {
	rig := newRouterRig(t)
	replies := rig.say(t, "show scheduled reports", 1)
	if replies[0] != "No scheduled reports." {
		t.Errorf("unexpected reply %q", replies[0])
	}
}

func TestScheduleInvalid(t *testing.T) {
	rig := newRouterRig(t)
	rig.login(t)

	for _, text := range []string{
		"schedule report biweekly 09:00",
		"schedule report daily 9:00",
		"schedule report biweekly 9:00",
		"schedule report daily 25:00",
	} {
		replies := rig.say(t, text, 1)
		if replies[0] != `Invalid command. Use the format: "Schedule report {type} {HH:MM}".` {
			t.Errorf("%q: unexpected reply %q", text, replies[0])
		}
	}
	if got := rig.sched.List("telegram:1"); len(got) != 0 {
		t.Errorf("invalid schedules must not create tasks, got %d", len(got))
	}
}

func TestDeleteInvalid(t *testing.T) {
	rig := newRouterRig(t)
	rig.login(t)
	rig.say(t, "schedule report daily 09:00", 1)

	for _, text := range []string{
		"delete scheduled report abc",
		"delete scheduled report 0",
		"delete scheduled report -1",
		"delete scheduled report 5",
	} {
		replies := rig.say(t, text, 1)
		if replies[0] != "Please provide a valid task number." {
			t.Errorf("%q: unexpected reply %q", text, replies[0])
		}
	}
	if got := rig.sched.List("telegram:1"); len(got) != 1 {
		t.Errorf("invalid deletes must leave the list unchanged, got %d tasks", len(got))
	}
}

func TestGreeting(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{0, "Good Morning!"},
		{11, "Good Morning!"},
		{12, "Good Afternoon!"},
		{17, "Good Afternoon!"},
		{18, "Good Evening!"},
		{23, "Good Evening!"},
	}
	for _, tc := range cases {
		now := time.Date(2024, 1, 1, tc.hour, 0, 0, 0, time.Local)
		got := greeting(now)
		if !strings.HasPrefix(got, tc.want) {
			t.Errorf("greeting(hour=%d) = %q, want prefix %q", tc.hour, got, tc.want)
		}
	}
}
