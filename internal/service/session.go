package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vaultpass/passgen-go/internal/crypto"
	"github.com/vaultpass/passgen-go/internal/model"
)

var ErrUnknownEvent = errors.New("unknown session event")

// Feedback messages shown after a copy attempt.
const (
	MessageCopied     = "copied to clipboard"
	MessageCopyFailed = "copy failed, select the password manually"
	MessageNoPassword = "nothing to copy yet"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	Selection       crypto.Selection
	Length          int
	LoadingDelay    time.Duration
	FeedbackTimeout time.Duration
	AutoRegenerate  bool
}

// Session is the controller behind one connected control page. It keeps the
// current selection and length, decides between the ready and blocked states
// and runs the loading delay and feedback reversion as cancellable tasks.
// Every user action cancels whatever task is still pending.
//
// notify receives a full view after every change. It is called without the
// session lock held, possibly from a timer goroutine.
type Session struct {
	svc    *GeneratorService
	opts   SessionOptions
	notify func(model.SessionView)

	mu            sync.Mutex
	selection     crypto.Selection
	length        int
	password      string
	loading       bool
	message       string
	messageErr    bool
	epoch         uint64
	feedbackToken uint64
	seq           uint64
	loadTimer     *time.Timer
	feedbackTimer *time.Timer
	closed        bool
}

func NewSession(svc *GeneratorService, opts SessionOptions, notify func(model.SessionView)) *Session {
	if notify == nil {
		notify = func(model.SessionView) {}
	}
	s := &Session{
		svc:       svc,
		opts:      opts,
		notify:    notify,
		selection: opts.Selection,
	}
	length := opts.Length
	if length == 0 {
		length = svc.Limits().DefaultLength
	}
	s.length = s.clamp(length)
	return s
}

// Start pushes the initial view and generates the first password when the
// initial selection allows it.
func (s *Session) Start() {
	s.mu.Lock()
	s.generateLocked()
	v := s.pushLocked()
	s.mu.Unlock()
	s.notify(v)
}

// Handle dispatches a user event.
func (s *Session) Handle(ev model.SessionEvent) error {
	switch ev.Type {
	case model.EventToggle:
		c, err := crypto.ParseClass(ev.Class)
		if err != nil {
			s.reportError("unknown character type")
			return err
		}
		s.Toggle(c, ev.Enabled)
	case model.EventLength:
		s.SetLength(ev.Length)
	case model.EventGenerate:
		s.Generate()
	case model.EventCopied:
		s.Copied(ev.OK)
	default:
		s.reportError("unsupported action")
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	return nil
}

// Toggle adds or removes a class from the selection.
func (s *Session) Toggle(c crypto.CharacterClass, on bool) {
	s.update(func() {
		s.selection = s.selection.Set(c, on)
		s.afterChangeLocked()
	})
}

// SetLength changes the length, clamped into the service limits.
func (s *Session) SetLength(n int) {
	s.update(func() {
		s.length = s.clamp(n)
		s.afterChangeLocked()
	})
}

// Generate produces a new password, after the loading delay when one is
// configured. In the blocked state it only shows the placeholder.
func (s *Session) Generate() {
	s.update(s.generateLocked)
}

// Copied records the outcome of a clipboard copy made by the page and shows
// a transient confirmation.
func (s *Session) Copied(ok bool) {
	s.update(func() {
		switch {
		case s.password == "":
			s.setFeedbackLocked(MessageNoPassword, true)
		case ok:
			s.setFeedbackLocked(MessageCopied, false)
		default:
			s.setFeedbackLocked(MessageCopyFailed, true)
		}
	})
}

// View returns the current state without notifying.
func (s *Session) View() model.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Close cancels pending tasks. Later calls are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancelLocked()
}

// update runs fn as a user action: pending tasks are cancelled first and the
// resulting view is pushed.
func (s *Session) update(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.cancelLocked()
	fn()
	v := s.pushLocked()
	s.mu.Unlock()
	s.notify(v)
}

func (s *Session) cancelLocked() {
	s.epoch++
	if s.loadTimer != nil {
		s.loadTimer.Stop()
		s.loadTimer = nil
	}
	s.loading = false
	s.clearFeedbackLocked()
}

func (s *Session) afterChangeLocked() {
	if !crypto.IsValid(s.selection) {
		s.password = ""
		return
	}
	if s.opts.AutoRegenerate {
		s.generateLocked()
	}
}

func (s *Session) generateLocked() {
	if !crypto.IsValid(s.selection) {
		s.password = ""
		return
	}
	if s.opts.LoadingDelay <= 0 {
		s.produceLocked()
		return
	}

	s.loading = true
	epoch := s.epoch
	s.loadTimer = time.AfterFunc(s.opts.LoadingDelay, func() {
		s.finishLoading(epoch)
	})
}

func (s *Session) finishLoading(epoch uint64) {
	s.mu.Lock()
	if s.closed || epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.loadTimer = nil
	s.loading = false
	s.produceLocked()
	v := s.pushLocked()
	s.mu.Unlock()
	s.notify(v)
}

func (s *Session) produceLocked() {
	password, err := s.svc.GenerateOne(s.selection, s.length)
	if err != nil {
		slog.Error("session generation failed", "error", err, "classes", s.selection.String(), "length", s.length)
		s.password = ""
		s.setFeedbackLocked("could not generate a password", true)
		return
	}
	s.password = password
}

func (s *Session) reportError(msg string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.setFeedbackLocked(msg, true)
	v := s.pushLocked()
	s.mu.Unlock()
	s.notify(v)
}

func (s *Session) setFeedbackLocked(msg string, isErr bool) {
	s.clearFeedbackLocked()
	s.message = msg
	s.messageErr = isErr

	token := s.feedbackToken
	s.feedbackTimer = time.AfterFunc(s.opts.FeedbackTimeout, func() {
		s.revertFeedback(token)
	})
}

func (s *Session) clearFeedbackLocked() {
	s.feedbackToken++
	if s.feedbackTimer != nil {
		s.feedbackTimer.Stop()
		s.feedbackTimer = nil
	}
	s.message = ""
	s.messageErr = false
}

func (s *Session) revertFeedback(token uint64) {
	s.mu.Lock()
	if s.closed || token != s.feedbackToken {
		s.mu.Unlock()
		return
	}
	s.clearFeedbackLocked()
	v := s.pushLocked()
	s.mu.Unlock()
	s.notify(v)
}

func (s *Session) pushLocked() model.SessionView {
	s.seq++
	return s.viewLocked()
}

func (s *Session) viewLocked() model.SessionView {
	limits := s.svc.Limits()
	v := model.SessionView{
		Seq:       s.seq,
		State:     model.StateReady,
		Length:    s.length,
		MinLength: limits.MinLength,
		MaxLength: limits.MaxLength,
		Classes:   s.selection.Names(),
		Password:  s.password,
		Loading:   s.loading,
		Message:   s.message,
		Error:     s.messageErr,
	}
	if !crypto.IsValid(s.selection) {
		v.State = model.StateBlocked
		v.Password = ""
		v.Placeholder = Placeholder
	}
	return v
}

func (s *Session) clamp(n int) int {
	limits := s.svc.Limits()
	if n < limits.MinLength {
		return limits.MinLength
	}
	if n > limits.MaxLength {
		return limits.MaxLength
	}
	return n
}
