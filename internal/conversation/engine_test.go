package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// manualScheduler captures delayed tasks so tests control when the typing
// delay elapses.
type manualScheduler struct {
	mu     sync.Mutex
	nextID int
	tasks  map[int]func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{tasks: make(map[int]func())}
}

func (s *manualScheduler) Schedule(_ time.Duration, fn func()) CancelFunc {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.tasks[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.tasks, id)
		s.mu.Unlock()
	}
}

func (s *manualScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *manualScheduler) fire() {
	s.mu.Lock()
	tasks := make([]func(), 0, len(s.tasks))
	for id, fn := range s.tasks {
		tasks = append(tasks, fn)
		delete(s.tasks, id)
	}
	s.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}
}

type fakeDelivery struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (d *fakeDelivery) Send(_ context.Context, contact, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, contact+"|"+message)
	return d.err
}

func (d *fakeDelivery) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func newTestEngine(t *testing.T, delivery Delivery) (*Engine, *manualScheduler) {
	t.Helper()
	sched := newManualScheduler()
	eng := New(delivery,
		WithScheduler(sched.Schedule),
		WithTypingDelay(func() time.Duration { return 700 * time.Millisecond }),
		WithClock(func() time.Time { return time.Date(2026, 2, 14, 15, 4, 0, 0, time.UTC) }),
	)
	t.Cleanup(eng.Close)
	return eng, sched
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSubmitContactTransitionsExactlyOnce(t *testing.T) {
	t.Parallel()
	eng, sched := newTestEngine(t, &fakeDelivery{})

	if eng.Phase() != PhaseAwaitingContact {
		t.Fatalf("expected initial phase AwaitingContact, got %v", eng.Phase())
	}
	if !eng.SubmitContact("  test@example.com  ") {
		t.Fatal("expected first SubmitContact to be accepted")
	}
	if eng.Phase() != PhaseChatting {
		t.Fatalf("expected phase Chatting, got %v", eng.Phase())
	}
	if eng.Contact() != "test@example.com" {
		t.Fatalf("expected trimmed contact, got %q", eng.Contact())
	}
	sched.fire()

	// Repeat calls are no-ops: no history change, contact unchanged.
	before := len(eng.Messages())
	if eng.SubmitContact("other@example.com") {
		t.Fatal("expected repeat SubmitContact to be rejected")
	}
	if len(eng.Messages()) != before {
		t.Fatalf("expected history unchanged, got %d messages", len(eng.Messages()))
	}
	if eng.Contact() != "test@example.com" {
		t.Fatalf("contact must be immutable once captured, got %q", eng.Contact())
	}
}

func TestBlankInputIsIgnored(t *testing.T) {
	t.Parallel()
	eng, _ := newTestEngine(t, &fakeDelivery{})

	for _, input := range []string{"", "   ", "\t\n"} {
		if eng.SubmitContact(input) {
			t.Fatalf("expected SubmitContact(%q) to be rejected", input)
		}
	}
	if eng.Phase() != PhaseAwaitingContact {
		t.Fatal("blank contact must not change phase")
	}
	if len(eng.Messages()) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(eng.Messages()))
	}

	eng.SubmitContact("someone@example.com")
	before := len(eng.Messages())
	for _, input := range []string{"", "   "} {
		if eng.SendMessage(context.Background(), input) {
			t.Fatalf("expected SendMessage(%q) to be rejected", input)
		}
	}
	if len(eng.Messages()) != before {
		t.Fatal("blank messages must not change history")
	}
}

func TestSendBeforeContactIsRejected(t *testing.T) {
	t.Parallel()
	eng, _ := newTestEngine(t, &fakeDelivery{})

	if eng.SendMessage(context.Background(), "hello") {
		t.Fatal("expected send before contact phase to be rejected")
	}
	if len(eng.Messages()) != 0 {
		t.Fatal("rejected send must not append")
	}
}

func TestDeliverySuccessMarksMessageDelivered(t *testing.T) {
	t.Parallel()
	delivery := &fakeDelivery{}
	eng, sched := newTestEngine(t, delivery)

	eng.SubmitContact("test@example.com")
	sched.fire()

	if !eng.SendMessage(context.Background(), "hello") {
		t.Fatal("expected send to be accepted")
	}
	waitFor(t, "message delivered", func() bool {
		msgs := eng.Messages()
		return len(msgs) == 3 && msgs[2].Delivered
	})

	msgs := eng.Messages()
	if msgs[2].Role != RoleUser || msgs[2].Text != "hello" {
		t.Fatalf("unexpected message at index 2: %+v", msgs[2])
	}

	// The scripted closing reply follows delivery.
	waitFor(t, "closing reply scheduled", func() bool { return sched.pending() == 1 })
	if !eng.IsTyping() {
		t.Fatal("expected typing indicator while closing reply is pending")
	}
	sched.fire()
	msgs = eng.Messages()
	if len(msgs) != 4 || msgs[3].Role != RoleBot || msgs[3].Text != BotClosing {
		t.Fatalf("expected closing bot reply, got %+v", msgs)
	}
	if eng.IsTyping() {
		t.Fatal("typing must clear after the reply lands")
	}
}

func TestDeliveryFailureStillGetsScriptedReply(t *testing.T) {
	t.Parallel()
	delivery := &fakeDelivery{err: errors.New("relay unreachable")}
	eng, sched := newTestEngine(t, delivery)

	eng.SubmitContact("test@example.com")
	sched.fire()
	eng.SendMessage(context.Background(), "hello")

	waitFor(t, "closing reply scheduled", func() bool { return sched.pending() == 1 })
	sched.fire()

	msgs := eng.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[2].Delivered {
		t.Fatal("failed delivery must leave delivered=false")
	}
	if msgs[3].Text != BotClosing {
		t.Fatalf("expected closing reply despite failure, got %q", msgs[3].Text)
	}
}

func TestSendWhileTypingIsRejected(t *testing.T) {
	t.Parallel()
	delivery := &fakeDelivery{}
	eng, sched := newTestEngine(t, delivery)

	eng.SubmitContact("test@example.com")
	// Contact ack still pending: typing is true.
	if !eng.IsTyping() {
		t.Fatal("expected typing while ack is pending")
	}
	if eng.SendMessage(context.Background(), "too eager") {
		t.Fatal("expected send while typing to be rejected")
	}
	if got := len(eng.Messages()); got != 1 {
		t.Fatalf("expected only the contact message, got %d", got)
	}
	if delivery.callCount() != 0 {
		t.Fatal("rejected send must not reach the relay")
	}
	sched.fire()
}

func TestEditMessageRemovesPairAndRepopulatesDraft(t *testing.T) {
	t.Parallel()
	delivery := &fakeDelivery{err: errors.New("down")}
	eng, sched := newTestEngine(t, delivery)

	eng.SubmitContact("test@example.com")
	sched.fire()
	eng.SendMessage(context.Background(), "first draft")
	waitFor(t, "closing reply scheduled", func() bool { return sched.pending() == 1 })
	sched.fire()

	// History: [contact, ack, "first draft" (undelivered), closing].
	if !eng.EditMessage(2) {
		t.Fatal("expected edit of undelivered user message to be accepted")
	}
	if eng.Draft() != "first draft" {
		t.Fatalf("expected draft repopulated, got %q", eng.Draft())
	}
	msgs := eng.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user message and paired bot reply removed, got %d entries", len(msgs))
	}
	if msgs[0].Text != "test@example.com" || msgs[1].Text != BotContactAck {
		t.Fatalf("unexpected remaining history: %+v", msgs)
	}
}

func TestEditMessageWithoutBotReplyRemovesOne(t *testing.T) {
	t.Parallel()
	delivery := &fakeDelivery{err: errors.New("down")}
	eng, sched := newTestEngine(t, delivery)

	eng.SubmitContact("test@example.com")
	sched.fire()
	eng.SendMessage(context.Background(), "tail message")
	waitFor(t, "delivery settled", func() bool { return sched.pending() == 1 })
	// Closing reply never fires: the user message stays the last entry.

	if !eng.EditMessage(2) {
		t.Fatal("expected edit to be accepted")
	}
	if got := len(eng.Messages()); got != 2 {
		t.Fatalf("expected single removal, got %d entries", got)
	}
}

func TestEditMessageRejectsBotAndDelivered(t *testing.T) {
	t.Parallel()
	delivery := &fakeDelivery{}
	eng, sched := newTestEngine(t, delivery)

	eng.SubmitContact("test@example.com")
	sched.fire()
	eng.SendMessage(context.Background(), "hello")
	waitFor(t, "message delivered", func() bool {
		msgs := eng.Messages()
		return len(msgs) == 3 && msgs[2].Delivered
	})
	waitFor(t, "closing reply scheduled", func() bool { return sched.pending() == 1 })
	sched.fire()

	if eng.EditMessage(1) {
		t.Fatal("editing a bot message must be a no-op")
	}
	if eng.EditMessage(2) {
		t.Fatal("editing a delivered message must be rejected")
	}
	if eng.EditMessage(-1) || eng.EditMessage(99) {
		t.Fatal("out-of-range edit must be a no-op")
	}
	if got := len(eng.Messages()); got != 4 {
		t.Fatalf("history must be unchanged, got %d entries", got)
	}
}

func TestContactScenario(t *testing.T) {
	t.Parallel()
	delivery := &fakeDelivery{}
	eng, sched := newTestEngine(t, delivery)

	eng.SubmitContact("test@example.com")
	msgs := eng.Messages()
	if len(msgs) != 1 || msgs[0].Role != RoleUser {
		t.Fatalf("expected 1 user message after contact, got %+v", msgs)
	}

	sched.fire()
	msgs = eng.Messages()
	if len(msgs) != 2 || msgs[1].Text != BotContactAck {
		t.Fatalf("expected contact ack, got %+v", msgs)
	}
	if eng.Phase() != PhaseChatting {
		t.Fatal("expected phase Chatting")
	}

	eng.SendMessage(context.Background(), "Can we talk about the Hoverloon project?")
	waitFor(t, "question delivered", func() bool {
		msgs := eng.Messages()
		return len(msgs) == 3 && msgs[2].Delivered
	})
	waitFor(t, "closing reply scheduled", func() bool { return sched.pending() == 1 })
	sched.fire()

	msgs = eng.Messages()
	want := []struct {
		role Role
		text string
	}{
		{RoleUser, "test@example.com"},
		{RoleBot, BotContactAck},
		{RoleUser, "Can we talk about the Hoverloon project?"},
		{RoleBot, BotClosing},
	}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i, w := range want {
		if msgs[i].Role != w.role || msgs[i].Text != w.text {
			t.Fatalf("message %d = %+v, want %v %q", i, msgs[i], w.role, w.text)
		}
	}
	if !msgs[2].Delivered {
		t.Fatal("expected question marked delivered")
	}
}

func TestCloseDropsPendingReply(t *testing.T) {
	t.Parallel()
	eng, sched := newTestEngine(t, &fakeDelivery{})

	eng.SubmitContact("test@example.com")
	eng.Close()
	sched.fire() // late timer callback after teardown

	if got := len(eng.Messages()); got != 1 {
		t.Fatalf("late callback must not mutate history, got %d entries", got)
	}
	if eng.SubmitContact("again@example.com") {
		t.Fatal("closed engine must reject transitions")
	}
	eng.Close() // Close is idempotent
}

func TestEventsAreEmittedInOrder(t *testing.T) {
	t.Parallel()
	sched := newManualScheduler()
	var mu sync.Mutex
	var types []string
	eng := New(&fakeDelivery{},
		WithScheduler(sched.Schedule),
		WithNotify(func(ev Event) {
			mu.Lock()
			types = append(types, ev.Type)
			mu.Unlock()
		}),
	)
	t.Cleanup(eng.Close)

	eng.SubmitContact("test@example.com")
	sched.fire()

	mu.Lock()
	defer mu.Unlock()
	want := []string{"append", "typing", "typing", "append"}
	if len(types) != len(want) {
		t.Fatalf("expected events %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event %d = %q, want %q (all: %v)", i, types[i], want[i], types)
		}
	}
}
