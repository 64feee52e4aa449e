package session

import (
	"context"
	"path/filepath"
	"testing"
)

// storeFactory creates a fresh store for each conformance test.
type storeFactory func(t *testing.T) Store

// runStoreTests runs the Store conformance suite against an engine.
// Both engines must satisfy exactly the same contract.
func runStoreTests(t *testing.T, newStore storeFactory) {
	ctx := context.Background()

	t.Run("CreateSessionReturnsUniqueIDs", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		seen := make(map[string]bool)
		for i := 0; i < 10; i++ {
			sess, err := s.CreateSession(ctx)
			if err != nil {
				t.Fatalf("CreateSession() error: %v", err)
			}
			if sess.ID == "" {
				t.Fatal("CreateSession() returned empty id")
			}
			if !ValidID(sess.ID) {
				t.Errorf("CreateSession() returned malformed id %q", sess.ID)
			}
			if seen[sess.ID] {
				t.Errorf("CreateSession() reused id %q", sess.ID)
			}
			seen[sess.ID] = true
		}
	})

	t.Run("NewSessionHasEmptyHistory", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		sess, err := s.CreateSession(ctx)
		if err != nil {
			t.Fatalf("CreateSession() error: %v", err)
		}

		msgs, err := s.Messages(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Messages() error: %v", err)
		}
		if len(msgs) != 0 {
			t.Errorf("New session should have empty history, got %d messages", len(msgs))
		}
	})

	t.Run("GetSessionUnknownID", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		if _, err := s.GetSession(ctx, NewID()); err != ErrNotFound {
			t.Errorf("GetSession(unknown) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("AppendPreservesOrder", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		sess, _ := s.CreateSession(ctx)

		m1 := Message{Role: RoleUser, Content: "first"}
		m2 := Message{Role: RoleAssistant, Content: "second"}
		if err := s.AppendMessage(ctx, sess.ID, m1); err != nil {
			t.Fatalf("AppendMessage(m1) error: %v", err)
		}
		if err := s.AppendMessage(ctx, sess.ID, m2); err != nil {
			t.Fatalf("AppendMessage(m2) error: %v", err)
		}

		msgs, err := s.Messages(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Messages() error: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("Expected 2 messages, got %d", len(msgs))
		}
		if msgs[0].Content != "first" || msgs[0].Role != RoleUser {
			t.Errorf("First message = {%s, %s}, want {user, first}", msgs[0].Role, msgs[0].Content)
		}
		if msgs[1].Content != "second" || msgs[1].Role != RoleAssistant {
			t.Errorf("Second message = {%s, %s}, want {assistant, second}", msgs[1].Role, msgs[1].Content)
		}
		if msgs[0].ID == "" || msgs[1].ID == "" {
			t.Error("Appended messages should have assigned ids")
		}
	})

	t.Run("AppendToUnknownSession", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		err := s.AppendMessage(ctx, NewID(), Message{Role: RoleUser, Content: "hi"})
		if err != ErrNotFound {
			t.Errorf("AppendMessage(unknown) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("AttachmentsRoundTrip", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		sess, _ := s.CreateSession(ctx)
		msg := Message{
			Role:    RoleUser,
			Content: "Summarize this",
			Attachments: []Attachment{
				{Type: "application/pdf", Name: "report.pdf", Content: "extracted text", URL: "/api/files/abc"},
			},
		}
		if err := s.AppendMessage(ctx, sess.ID, msg); err != nil {
			t.Fatalf("AppendMessage() error: %v", err)
		}

		msgs, err := s.Messages(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Messages() error: %v", err)
		}
		if len(msgs) != 1 {
			t.Fatalf("Expected 1 message, got %d", len(msgs))
		}
		if len(msgs[0].Attachments) != 1 {
			t.Fatalf("Expected 1 attachment, got %d", len(msgs[0].Attachments))
		}
		att := msgs[0].Attachments[0]
		if att.Type != "application/pdf" || att.Name != "report.pdf" ||
			att.Content != "extracted text" || att.URL != "/api/files/abc" {
			t.Errorf("Attachment did not round-trip: %+v", att)
		}
	})

	t.Run("ClearHistoryKeepsNickname", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		sess, _ := s.CreateSession(ctx)
		if err := s.SetNickname(ctx, sess.ID, "alice"); err != nil {
			t.Fatalf("SetNickname() error: %v", err)
		}
		_ = s.AppendMessage(ctx, sess.ID, Message{Role: RoleUser, Content: "hello"})

		if err := s.ClearHistory(ctx, sess.ID); err != nil {
			t.Fatalf("ClearHistory() error: %v", err)
		}

		msgs, err := s.Messages(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Messages() error: %v", err)
		}
		if len(msgs) != 0 {
			t.Errorf("Expected empty history after clear, got %d messages", len(msgs))
		}

		got, err := s.GetSession(ctx, sess.ID)
		if err != nil {
			t.Fatalf("GetSession() error: %v", err)
		}
		if got.Nickname != "alice" {
			t.Errorf("Nickname = %q after clear, want %q", got.Nickname, "alice")
		}
	})

	t.Run("ListSessionsIncludesNicknames", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		first, _ := s.CreateSession(ctx)
		second, _ := s.CreateSession(ctx)
		_ = s.SetNickname(ctx, second.ID, "bob")

		sessions, err := s.ListSessions(ctx)
		if err != nil {
			t.Fatalf("ListSessions() error: %v", err)
		}
		if len(sessions) != 2 {
			t.Fatalf("Expected 2 sessions, got %d", len(sessions))
		}

		byID := make(map[string]Session)
		for _, sess := range sessions {
			byID[sess.ID] = sess
		}
		if _, ok := byID[first.ID]; !ok {
			t.Errorf("ListSessions() missing %s", first.ID)
		}
		if got := byID[second.ID].Nickname; got != "bob" {
			t.Errorf("Nickname = %q, want %q", got, "bob")
		}
	})

	t.Run("SetNicknameUnknownSession", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		if err := s.SetNickname(ctx, NewID(), "ghost"); err != ErrNotFound {
			t.Errorf("SetNickname(unknown) error = %v, want ErrNotFound", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		path := filepath.Join(t.TempDir(), "parley.db")
		s, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("OpenSQLite() error: %v", err)
		}
		return s
	})
}

// TestSQLitePersistenceAcrossReopen verifies the persistence round-trip:
// messages written before a close are read back in order after reopening.
func TestSQLitePersistenceAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "parley.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}

	sess, err := s.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	_ = s.AppendMessage(ctx, sess.ID, Message{Role: RoleUser, Content: "m1"})
	_ = s.AppendMessage(ctx, sess.ID, Message{Role: RoleAssistant, Content: "m2"})
	_ = s.SetNickname(ctx, sess.ID, "persistent")
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() reopen error: %v", err)
	}
	defer reopened.Close()

	msgs, err := reopened.Messages(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Messages() error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "m1" || msgs[1].Content != "m2" {
		t.Errorf("Persistence round-trip failed, got %+v", msgs)
	}

	got, err := reopened.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if got.Nickname != "persistent" {
		t.Errorf("Nickname = %q after reopen, want %q", got.Nickname, "persistent")
	}
}
