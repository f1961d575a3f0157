package service

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vaultpass/passgen-go/internal/crypto"
	"github.com/vaultpass/passgen-go/internal/model"
)

type viewRecorder struct {
	ch chan model.SessionView
}

func newViewRecorder() *viewRecorder {
	return &viewRecorder{ch: make(chan model.SessionView, 64)}
}

func (r *viewRecorder) notify(v model.SessionView) {
	r.ch <- v
}

// waitFor returns the first recorded view matching pred.
func (r *viewRecorder) waitFor(t *testing.T, pred func(model.SessionView) bool) model.SessionView {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-r.ch:
			if pred(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for session view")
			return model.SessionView{}
		}
	}
}

// quiet asserts that no view arrives within d.
func (r *viewRecorder) quiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case v := <-r.ch:
		t.Fatalf("unexpected view %+v", v)
	case <-time.After(d):
	}
}

type countingSource struct {
	calls atomic.Int64
}

func (s *countingSource) Intn(n int) (int, error) {
	s.calls.Add(1)
	return crypto.CryptoSource{}.Intn(n)
}

func newTestSession(opts SessionOptions) (*Session, *viewRecorder, *countingSource) {
	src := &countingSource{}
	svc := NewGeneratorService(crypto.NewGenerator(src), DefaultLimits())
	rec := newViewRecorder()
	if opts.FeedbackTimeout == 0 {
		opts.FeedbackTimeout = time.Second
	}
	return NewSession(svc, opts, rec.notify), rec, src
}

func allClasses() crypto.Selection {
	return crypto.NewSelection(crypto.AllClasses()...)
}

func TestSession_StartGeneratesWhenReady(t *testing.T) {
	s, rec, _ := newTestSession(SessionOptions{Selection: allClasses()})
	defer s.Close()

	s.Start()
	v := rec.waitFor(t, func(model.SessionView) bool { return true })

	if v.State != model.StateReady {
		t.Errorf("expected ready state, got %q", v.State)
	}
	if v.Length != 16 {
		t.Errorf("expected default length 16, got %d", v.Length)
	}
	if len(v.Password) != 16 {
		t.Errorf("expected a 16 character password, got %q", v.Password)
	}
	if v.Placeholder != "" {
		t.Errorf("unexpected placeholder %q", v.Placeholder)
	}
}

func TestSession_BlockedNeverGenerates(t *testing.T) {
	s, rec, src := newTestSession(SessionOptions{Length: 12})
	defer s.Close()

	s.Start()
	s.Generate()
	v := rec.waitFor(t, func(v model.SessionView) bool { return v.Seq == 2 })

	if v.State != model.StateBlocked {
		t.Errorf("expected blocked state, got %q", v.State)
	}
	if v.Password != "" {
		t.Errorf("expected no password, got %q", v.Password)
	}
	if v.Placeholder != Placeholder {
		t.Errorf("expected placeholder %q, got %q", Placeholder, v.Placeholder)
	}
	if n := src.calls.Load(); n != 0 {
		t.Errorf("random source used %d times while blocked", n)
	}
}

func TestSession_ToggleTransitions(t *testing.T) {
	s, rec, _ := newTestSession(SessionOptions{
		Selection:      crypto.NewSelection(crypto.Digits),
		Length:         10,
		AutoRegenerate: true,
	})
	defer s.Close()

	s.Toggle(crypto.Digits, false)
	v := rec.waitFor(t, func(model.SessionView) bool { return true })
	if v.State != model.StateBlocked || v.Password != "" {
		t.Fatalf("expected blocked view without password, got %+v", v)
	}

	s.Toggle(crypto.Symbols, true)
	v = rec.waitFor(t, func(model.SessionView) bool { return true })
	if v.State != model.StateReady {
		t.Fatalf("expected ready state, got %q", v.State)
	}
	if len(v.Password) != 10 {
		t.Fatalf("expected regenerated 10 character password, got %q", v.Password)
	}
	for _, ch := range v.Password {
		if !containsRune(crypto.Symbols.Alphabet(), ch) {
			t.Errorf("unexpected character %q in symbols-only password", ch)
		}
	}
	if len(v.Classes) != 1 || v.Classes[0] != "symbols" {
		t.Errorf("unexpected classes %v", v.Classes)
	}
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

func TestSession_SetLengthClampsAndRegenerates(t *testing.T) {
	s, rec, _ := newTestSession(SessionOptions{Selection: allClasses(), Length: 8, AutoRegenerate: true})
	defer s.Close()

	s.SetLength(500)
	v := rec.waitFor(t, func(model.SessionView) bool { return true })
	if v.Length != 128 {
		t.Errorf("expected length clamped to 128, got %d", v.Length)
	}
	if len(v.Password) != 128 {
		t.Errorf("expected regenerated 128 character password, got %d characters", len(v.Password))
	}

	s.SetLength(-4)
	v = rec.waitFor(t, func(model.SessionView) bool { return true })
	if v.Length != 1 || len(v.Password) != 1 {
		t.Errorf("expected length clamped to 1, got %d (%q)", v.Length, v.Password)
	}
}

func TestSession_SetLengthWithoutAutoRegenerate(t *testing.T) {
	s, rec, src := newTestSession(SessionOptions{Selection: allClasses(), Length: 8})
	defer s.Close()

	s.SetLength(20)
	v := rec.waitFor(t, func(model.SessionView) bool { return true })
	if v.Length != 20 {
		t.Errorf("expected length 20, got %d", v.Length)
	}
	if v.Password != "" || src.calls.Load() != 0 {
		t.Errorf("length change should not generate, got %q", v.Password)
	}
}

func TestSession_LoadingDelay(t *testing.T) {
	s, rec, _ := newTestSession(SessionOptions{
		Selection:    allClasses(),
		Length:       20,
		LoadingDelay: 20 * time.Millisecond,
	})
	defer s.Close()

	s.Generate()
	v := rec.waitFor(t, func(model.SessionView) bool { return true })
	if !v.Loading {
		t.Fatalf("expected loading view first, got %+v", v)
	}

	v = rec.waitFor(t, func(model.SessionView) bool { return true })
	if v.Loading {
		t.Errorf("expected loading to finish, got %+v", v)
	}
	if len(v.Password) != 20 {
		t.Errorf("expected 20 character password, got %q", v.Password)
	}
}

func TestSession_NextActionCancelsLoading(t *testing.T) {
	s, rec, src := newTestSession(SessionOptions{
		Selection:    allClasses(),
		Length:       20,
		LoadingDelay: 30 * time.Millisecond,
	})
	defer s.Close()

	s.Generate()
	rec.waitFor(t, func(v model.SessionView) bool { return v.Loading })

	s.Toggle(crypto.Symbols, false)
	v := rec.waitFor(t, func(model.SessionView) bool { return true })
	if v.Loading {
		t.Errorf("expected loading to be cancelled, got %+v", v)
	}

	rec.quiet(t, 100*time.Millisecond)
	if n := src.calls.Load(); n != 0 {
		t.Errorf("cancelled generation still used the source %d times", n)
	}
}

func TestSession_FeedbackReverts(t *testing.T) {
	s, rec, _ := newTestSession(SessionOptions{
		Selection:       allClasses(),
		FeedbackTimeout: 20 * time.Millisecond,
	})
	defer s.Close()

	s.Start()
	rec.waitFor(t, func(model.SessionView) bool { return true })

	s.Copied(true)
	v := rec.waitFor(t, func(model.SessionView) bool { return true })
	if v.Message != MessageCopied || v.Error {
		t.Fatalf("expected copy confirmation, got %+v", v)
	}

	v = rec.waitFor(t, func(model.SessionView) bool { return true })
	if v.Message != "" {
		t.Errorf("expected message to revert, got %q", v.Message)
	}
}

func TestSession_FeedbackCancelledByNextAction(t *testing.T) {
	s, rec, _ := newTestSession(SessionOptions{
		Selection:       allClasses(),
		FeedbackTimeout: 50 * time.Millisecond,
	})
	defer s.Close()

	s.Start()
	rec.waitFor(t, func(model.SessionView) bool { return true })

	s.Copied(false)
	v := rec.waitFor(t, func(model.SessionView) bool { return true })
	if v.Message != MessageCopyFailed || !v.Error {
		t.Fatalf("expected copy failure message, got %+v", v)
	}

	s.SetLength(10)
	v = rec.waitFor(t, func(model.SessionView) bool { return true })
	if v.Message != "" {
		t.Errorf("expected message cleared by next action, got %q", v.Message)
	}

	// The reverted timer must not push an extra view.
	rec.quiet(t, 120*time.Millisecond)
}

func TestSession_CopiedWithoutPassword(t *testing.T) {
	s, rec, _ := newTestSession(SessionOptions{})
	defer s.Close()

	s.Copied(true)
	v := rec.waitFor(t, func(model.SessionView) bool { return true })
	if v.Message != MessageNoPassword {
		t.Errorf("expected %q, got %q", MessageNoPassword, v.Message)
	}
}

func TestSession_HandleEvents(t *testing.T) {
	s, rec, _ := newTestSession(SessionOptions{Length: 6})
	defer s.Close()

	if err := s.Handle(model.SessionEvent{Type: model.EventToggle, Class: "numbers", Enabled: true}); err != nil {
		t.Fatalf("toggle: unexpected error: %v", err)
	}
	rec.waitFor(t, func(model.SessionView) bool { return true })

	if err := s.Handle(model.SessionEvent{Type: model.EventGenerate}); err != nil {
		t.Fatalf("generate: unexpected error: %v", err)
	}
	v := rec.waitFor(t, func(model.SessionView) bool { return true })
	if len(v.Password) != 6 {
		t.Fatalf("expected 6 digit password, got %q", v.Password)
	}

	err := s.Handle(model.SessionEvent{Type: "dance"})
	if !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
	v = rec.waitFor(t, func(model.SessionView) bool { return true })
	if !v.Error || v.Message == "" {
		t.Errorf("expected error feedback, got %+v", v)
	}

	err = s.Handle(model.SessionEvent{Type: model.EventToggle, Class: "emoji", Enabled: true})
	if !errors.Is(err, crypto.ErrUnknownClass) {
		t.Fatalf("expected ErrUnknownClass, got %v", err)
	}
}

func TestSession_CloseStopsPendingWork(t *testing.T) {
	s, rec, src := newTestSession(SessionOptions{
		Selection:    allClasses(),
		LoadingDelay: 20 * time.Millisecond,
	})

	s.Generate()
	rec.waitFor(t, func(v model.SessionView) bool { return v.Loading })
	s.Close()

	s.Generate()
	rec.quiet(t, 80*time.Millisecond)
	if n := src.calls.Load(); n != 0 {
		t.Errorf("closed session used the source %d times", n)
	}
}
