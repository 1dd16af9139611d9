// Package conversation drives the contact widget's two-phase scripted chat:
// collect a way to reach the visitor back, then relay whatever they type to
// the owner while a scripted bot keeps the exchange feeling alive.
package conversation

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleBot  Role = "bot"
	RoleUser Role = "user"
)

// Phase is the engine's conversational phase.
type Phase int

const (
	// PhaseAwaitingContact holds until a non-empty contact string is submitted.
	PhaseAwaitingContact Phase = iota
	// PhaseChatting is entered exactly once and kept for the session.
	PhaseChatting
)

// Scripted bot lines.
const (
	BotGreeting   = "Hey! Drop your email or number so Skyler can get back to you."
	BotContactAck = "Nice to meet you! What would you like to chat with Skyler about?"
	BotClosing    = "Thanks for reaching out! He'll get back to you soon."
)

// Message is one entry in the session's history. History is append-only
// except for EditMessage, which removes a contiguous suffix pair.
type Message struct {
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Time      string `json:"time"`
	Delivered bool   `json:"delivered,omitempty"`
	Seq       int    `json:"seq"`
}

// Delivery relays an outbound message to the owner's channel.
type Delivery interface {
	Send(ctx context.Context, contact, message string) error
}

// Event is pushed to the engine's subscriber on every observable change.
type Event struct {
	Type    string   `json:"type"` // "append", "delivered", "typing", "draft", "truncate"
	Message *Message `json:"message,omitempty"`
	Index   int      `json:"index,omitempty"`
	Typing  bool     `json:"typing,omitempty"`
	Draft   string   `json:"draft,omitempty"`
}

// CancelFunc cancels a scheduled task. Cancelling after the task fired is a
// no-op.
type CancelFunc func()

// Scheduler runs fn after d. The default wraps time.AfterFunc.
type Scheduler func(d time.Duration, fn func()) CancelFunc

// Engine owns one session's conversational state. All mutation happens under
// one mutex; timer and delivery callbacks arriving after Close are dropped.
type Engine struct {
	mu sync.Mutex

	phase    Phase
	contact  string
	draft    string
	messages []Message
	typing   bool
	closed   bool
	seq      int

	delivery    Delivery
	notify      func(Event)
	now         func() time.Time
	schedule    Scheduler
	typingDelay func() time.Duration
	cancelReply CancelFunc
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithScheduler overrides the delayed-task scheduler (tests).
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.schedule = s }
}

// WithTypingDelay overrides the randomized typing delay (tests).
func WithTypingDelay(fn func() time.Duration) Option {
	return func(e *Engine) { e.typingDelay = fn }
}

// WithNotify sets the event subscriber. Events fire synchronously on the
// mutating goroutine, after the mutation is applied.
func WithNotify(fn func(Event)) Option {
	return func(e *Engine) { e.notify = fn }
}

// New creates an engine with an empty history. The opening prompt
// (BotGreeting) is rendered statically by the widget and is not part of the
// conversational state.
func New(delivery Delivery, opts ...Option) *Engine {
	e := &Engine{
		phase:    PhaseAwaitingContact,
		delivery: delivery,
		notify:   func(Event) {},
		now:      time.Now,
		typingDelay: func() time.Duration {
			return 600*time.Millisecond + time.Duration(rand.Int63n(int64(400*time.Millisecond)))
		},
	}
	e.schedule = func(d time.Duration, fn func()) CancelFunc {
		t := time.AfterFunc(d, fn)
		return func() { t.Stop() }
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Phase returns the current conversational phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Contact returns the captured contact identifier, empty until submitted.
func (e *Engine) Contact() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.contact
}

// Draft returns the text EditMessage copied back for resubmission.
func (e *Engine) Draft() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// IsTyping reports whether a scripted reply is in flight.
func (e *Engine) IsTyping() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.typing
}

// Messages returns a snapshot of the history.
func (e *Engine) Messages() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// SubmitContact captures the visitor's contact string and moves the session
// into the chatting phase. Empty input and repeat calls are silent no-ops.
func (e *Engine) SubmitContact(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	e.mu.Lock()
	if e.closed || e.phase != PhaseAwaitingContact {
		e.mu.Unlock()
		return false
	}
	e.contact = trimmed
	e.phase = PhaseChatting
	e.appendLocked(RoleUser, trimmed)
	e.scheduleReplyLocked(BotContactAck)
	e.mu.Unlock()
	return true
}

// SendMessage appends a user message and relays it. Delivery runs in the
// background: success flips the message's delivered flag, failure is
// swallowed, and the scripted closing reply follows either way. Rejected
// (returns false) on empty input, before the contact phase, or while a
// scripted reply is in flight.
func (e *Engine) SendMessage(ctx context.Context, text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	e.mu.Lock()
	if e.closed || e.phase != PhaseChatting || e.typing {
		e.mu.Unlock()
		return false
	}
	contact := e.contact
	e.appendLocked(RoleUser, trimmed)
	e.setDraftLocked("")
	e.mu.Unlock()

	go e.deliver(ctx, contact, trimmed)
	return true
}

func (e *Engine) deliver(ctx context.Context, contact, text string) {
	err := e.delivery.Send(ctx, contact, text)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if err == nil {
		// Nearest user entry scanning backward is the one just sent.
		for i := len(e.messages) - 1; i >= 0; i-- {
			if e.messages[i].Role == RoleUser {
				e.messages[i].Delivered = true
				msg := e.messages[i]
				e.notifyLocked(Event{Type: "delivered", Index: i, Message: &msg})
				break
			}
		}
	} else {
		slog.Debug("contact message delivery failed", "error", err)
	}
	e.scheduleReplyLocked(BotClosing)
	e.mu.Unlock()
}

// EditMessage copies a user message's text back into the draft and removes
// it together with its paired bot reply, if one follows. Bot messages and
// already-delivered messages cannot be edited.
func (e *Engine) EditMessage(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || index < 0 || index >= len(e.messages) {
		return false
	}
	msg := e.messages[index]
	if msg.Role != RoleUser || msg.Delivered {
		return false
	}

	e.setDraftLocked(msg.Text)
	removeCount := 1
	if index+1 < len(e.messages) && e.messages[index+1].Role == RoleBot {
		removeCount = 2
	}
	e.messages = append(e.messages[:index], e.messages[index+removeCount:]...)
	e.notifyLocked(Event{Type: "truncate", Index: index})
	return true
}

// Close cancels the pending scripted reply and drops any late callbacks.
// Safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	cancel := e.cancelReply
	e.cancelReply = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (e *Engine) appendLocked(role Role, text string) {
	msg := Message{
		Role: role,
		Text: text,
		Time: e.now().Format("15:04"),
		Seq:  e.seq,
	}
	e.seq++
	e.messages = append(e.messages, msg)
	e.notifyLocked(Event{Type: "append", Index: len(e.messages) - 1, Message: &msg})
}

func (e *Engine) setDraftLocked(text string) {
	e.draft = text
	e.notifyLocked(Event{Type: "draft", Draft: text})
}

func (e *Engine) setTypingLocked(v bool) {
	e.typing = v
	e.notifyLocked(Event{Type: "typing", Typing: v})
}

// scheduleReplyLocked simulates the bot typing, then appends the scripted
// line. Only one reply is ever in flight; the cancel handle lets Close stop
// a pending one, and the fired callback re-checks liveness before mutating.
func (e *Engine) scheduleReplyLocked(text string) {
	e.setTypingLocked(true)
	e.cancelReply = e.schedule(e.typingDelay(), func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return
		}
		e.cancelReply = nil
		e.setTypingLocked(false)
		e.appendLocked(RoleBot, text)
	})
}

func (e *Engine) notifyLocked(ev Event) {
	e.notify(ev)
}
