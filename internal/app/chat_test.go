package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/chatcore/chatcore/internal/adapters/store/memory"
	"github.com/chatcore/chatcore/internal/domain"
)

func newChatFixture(users ...*domain.User) (*ChatService, *memory.Messages, *memory.Contacts, *memory.Blocks, *memory.Friends) {
	messages := memory.NewMessages()
	contacts := memory.NewContacts()
	blocks := memory.NewBlocks()
	friends := memory.NewFriends()
	svc := NewChatService(memory.NewUsers(users...), messages, contacts, blocks, friends)
	return svc, messages, contacts, blocks, friends
}

func TestSendPrivateHappyPath(t *testing.T) {
	svc, messages, contacts, _, _ := newChatFixture(
		&domain.User{ID: "u1", Username: "alice"},
		&domain.User{ID: "u2", Username: "bob"},
	)
	ctx := context.Background()

	msg, err := svc.SendPrivate(ctx, "u1", SendMessageInput{To: "u2", Text: "hi", TempID: "t1"})
	if err != nil {
		t.Fatalf("SendPrivate() error = %v", err)
	}
	if msg.ID == "" {
		t.Fatal("message id not assigned")
	}
	if msg.TempID != "t1" {
		t.Errorf("tempId = %q, want t1", msg.TempID)
	}
	if msg.SentDate != nil || msg.SeenDate != nil {
		t.Error("fresh message must carry neither sent nor seen date")
	}

	ids, _ := contacts.IDsFor(ctx, "u1")
	if len(ids) != 1 || ids[0] != "u2" {
		t.Errorf("sender contacts = %v, want [u2]", ids)
	}
	ids, _ = contacts.IDsFor(ctx, "u2")
	if len(ids) != 1 || ids[0] != "u1" {
		t.Errorf("receiver contacts = %v, want [u1]", ids)
	}
	if _, err := messages.ByID(ctx, msg.ID); err != nil {
		t.Errorf("message not persisted: %v", err)
	}
}

func TestSendPrivateValidation(t *testing.T) {
	svc, _, _, blocks, _ := newChatFixture(
		&domain.User{ID: "u1"},
		&domain.User{ID: "u2"},
		&domain.User{ID: "locked", IsPrivateLock: true},
	)
	ctx := context.Background()
	_ = blocks.Upsert(ctx, "u1", "u2")

	cases := []struct {
		name string
		from domain.UserID
		in   SendMessageInput
		kind domain.ErrKind
	}{
		{"missing receiver", "u1", SendMessageInput{Text: "hi"}, domain.KindValidation},
		{"self send", "u1", SendMessageInput{To: "u1", Text: "hi"}, domain.KindValidation},
		{"unknown receiver", "u1", SendMessageInput{To: "ghost", Text: "hi"}, domain.KindNotFound},
		{"sender blocks receiver", "u1", SendMessageInput{To: "u2", Text: "hi"}, domain.KindValidation},
		{"privacy locked non-friend", "u2", SendMessageInput{To: "locked", Text: "hi"}, domain.KindAuthorization},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SendPrivate(ctx, tc.from, tc.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if kind, ok := domain.KindOf(err); !ok || kind != tc.kind {
				t.Errorf("error kind = %v (%v), want %v", kind, err, tc.kind)
			}
		})
	}
}

func TestSendPrivateToLockedFriend(t *testing.T) {
	svc, _, _, _, friends := newChatFixture(
		&domain.User{ID: "u1"},
		&domain.User{ID: "locked", IsPrivateLock: true},
	)
	ctx := context.Background()
	// The receiver owns the accepted row.
	_ = friends.Upsert(ctx, "locked", "u1", true)

	if _, err := svc.SendPrivate(ctx, "u1", SendMessageInput{To: "locked", Text: "hi"}); err != nil {
		t.Fatalf("SendPrivate() to locked friend error = %v", err)
	}
}

// A receiver-side block does not reject the send: the message persists
// flagged so it never reaches the receiver's views.
func TestSendPrivateBlockedByReceiver(t *testing.T) {
	svc, messages, _, blocks, _ := newChatFixture(
		&domain.User{ID: "u1"},
		&domain.User{ID: "u2"},
	)
	ctx := context.Background()
	_ = blocks.Upsert(ctx, "u2", "u1")

	msg, err := svc.SendPrivate(ctx, "u1", SendMessageInput{To: "u2", Text: "hi"})
	if err != nil {
		t.Fatalf("SendPrivate() error = %v", err)
	}
	if !msg.IsBlock {
		t.Fatal("message not flagged isBlock")
	}

	// Invisible to the receiver's thread, visible in the sender's.
	theirs, _ := svc.Conversation(ctx, "u2", "u1", 1)
	if len(theirs) != 0 {
		t.Errorf("receiver sees %d messages, want 0", len(theirs))
	}
	mine, _ := svc.Conversation(ctx, "u1", "u2", 1)
	if len(mine) != 1 {
		t.Errorf("sender sees %d messages, want 1", len(mine))
	}
	if stored, err := messages.ByID(ctx, msg.ID); err != nil || !stored.IsBlock {
		t.Error("persisted message lost the isBlock flag")
	}
}

func TestSendPrivateSniffsAudioURL(t *testing.T) {
	svc, _, _, _, _ := newChatFixture(
		&domain.User{ID: "u1"},
		&domain.User{ID: "u2"},
	)
	msg, err := svc.SendPrivate(context.Background(), "u1",
		SendMessageInput{To: "u2", Text: "https://cdn.example.com/clip.mp3"})
	if err != nil {
		t.Fatalf("SendPrivate() error = %v", err)
	}
	if msg.Text != "" {
		t.Errorf("text = %q, want empty after sniff", msg.Text)
	}
	if len(msg.Media) != 1 || msg.Media[0].Type != domain.MediaTypeAudio {
		t.Fatalf("media = %+v, want one audio attachment", msg.Media)
	}
}

func TestMarkSeenIdempotent(t *testing.T) {
	svc, _, _, _, _ := newChatFixture(
		&domain.User{ID: "u1"},
		&domain.User{ID: "u2"},
	)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.SendPrivate(ctx, "u1", SendMessageInput{To: "u2", Text: "hi"}); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := svc.MarkSeen(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("MarkSeen() error = %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("first MarkSeen = %d ids, want 3", len(ids))
	}

	ids, err = svc.MarkSeen(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("second MarkSeen() error = %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("second MarkSeen = %d ids, want 0", len(ids))
	}
}

func TestDeferredSentSweep(t *testing.T) {
	svc, _, _, _, _ := newChatFixture(
		&domain.User{ID: "u1"},
		&domain.User{ID: "u2"},
	)
	ctx := context.Background()
	msg, _ := svc.SendPrivate(ctx, "u1", SendMessageInput{To: "u2", Text: "offline"})

	pending, err := svc.UnsentFor(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != msg.ID {
		t.Fatalf("UnsentFor = %+v, want the one pending message", pending)
	}

	if err := svc.MarkSent(ctx, []domain.MessageID{msg.ID}); err != nil {
		t.Fatal(err)
	}
	pending, _ = svc.UnsentFor(ctx, "u2")
	if len(pending) != 0 {
		t.Fatalf("UnsentFor after MarkSent = %d, want 0", len(pending))
	}
}

func TestReactReplaceAndRemove(t *testing.T) {
	svc, _, _, _, _ := newChatFixture(
		&domain.User{ID: "u1", Username: "alice"},
		&domain.User{ID: "u2", Username: "bob"},
	)
	ctx := context.Background()
	msg, _ := svc.SendPrivate(ctx, "u1", SendMessageInput{To: "u2", Text: "hi"})

	first := domain.ReactionKind(1)
	second := domain.ReactionKind(2)

	got, err := svc.React(ctx, "u2", msg.ID, &first)
	if err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if len(got.Reactions) != 1 || got.Reactions[0].Kind != first {
		t.Fatalf("reactions = %+v, want one of kind 1", got.Reactions)
	}

	// Last write wins, never two reactions per user.
	got, err = svc.React(ctx, "u2", msg.ID, &second)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Reactions) != 1 || got.Reactions[0].Kind != second {
		t.Fatalf("reactions = %+v, want one of kind 2", got.Reactions)
	}
	if got.Reactions[0].User == nil || got.Reactions[0].User.Username != "bob" {
		t.Errorf("reaction user not hydrated: %+v", got.Reactions[0].User)
	}

	got, err = svc.React(ctx, "u2", msg.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Reactions) != 0 {
		t.Fatalf("reactions after removal = %+v, want none", got.Reactions)
	}
}

// Two concurrent reacts by one user can interleave as pull, pull, add,
// add. The guarded add must admit only the first row.
func TestReactionAddGuardedAgainstInterleaving(t *testing.T) {
	svc, messages, _, _, _ := newChatFixture(
		&domain.User{ID: "u1", Username: "alice"},
		&domain.User{ID: "u2", Username: "bob"},
	)
	ctx := context.Background()
	msg, err := svc.SendPrivate(ctx, "u1", SendMessageInput{To: "u2", Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := messages.PullReaction(ctx, msg.ID, "u2"); err != nil {
			t.Fatalf("PullReaction() error = %v", err)
		}
	}
	if _, err := messages.AddReaction(ctx, msg.ID, domain.Reaction{UserID: "u2", Kind: 1}); err != nil {
		t.Fatalf("first AddReaction() error = %v", err)
	}
	if _, err := messages.AddReaction(ctx, msg.ID, domain.Reaction{UserID: "u2", Kind: 2}); !errors.Is(err, domain.ErrReactionExists) {
		t.Fatalf("second AddReaction() error = %v, want ErrReactionExists", err)
	}

	stored, _ := messages.ByID(ctx, msg.ID)
	if len(stored.Reactions) != 1 {
		t.Fatalf("reactions = %+v, want exactly one", stored.Reactions)
	}

	// The service retries through the guard and still lands one row.
	kind := domain.ReactionKind(3)
	got, err := svc.React(ctx, "u2", msg.ID, &kind)
	if err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if len(got.Reactions) != 1 || got.Reactions[0].Kind != kind {
		t.Fatalf("reactions = %+v, want one of kind 3", got.Reactions)
	}
}

// The sender's own UI distinguishes a soft-blocked message by its isBlock
// field, so the flag must survive serialization.
func TestPrivateMessageSerializesBlockFlag(t *testing.T) {
	svc, _, _, blocks, _ := newChatFixture(
		&domain.User{ID: "u1"},
		&domain.User{ID: "u2"},
	)
	ctx := context.Background()
	_ = blocks.Upsert(ctx, "u2", "u1")

	msg, err := svc.SendPrivate(ctx, "u1", SendMessageInput{To: "u2", Text: "hi"})
	if err != nil {
		t.Fatalf("SendPrivate() error = %v", err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"isBlock":true`) {
		t.Errorf("response hides the block flag: %s", data)
	}
}

func TestHideMessagePerViewer(t *testing.T) {
	svc, _, _, _, _ := newChatFixture(
		&domain.User{ID: "u1"},
		&domain.User{ID: "u2"},
	)
	ctx := context.Background()
	msg, _ := svc.SendPrivate(ctx, "u1", SendMessageInput{To: "u2", Text: "hi"})

	if err := svc.HideMessage(ctx, "u1", msg.ID); err != nil {
		t.Fatal(err)
	}
	mine, _ := svc.Conversation(ctx, "u1", "u2", 1)
	if len(mine) != 0 {
		t.Errorf("hider still sees %d messages", len(mine))
	}
	theirs, _ := svc.Conversation(ctx, "u2", "u1", 1)
	if len(theirs) != 1 {
		t.Errorf("counterpart sees %d messages, want 1", len(theirs))
	}
}

func TestContactsUnseenAndMasking(t *testing.T) {
	hidden := &domain.User{ID: "u3", Username: "carol", IsHiddenActivity: true}
	online := true
	hidden.IsOnline = &online
	svc, _, _, blocks, _ := newChatFixture(
		&domain.User{ID: "u1", Username: "alice"},
		&domain.User{ID: "u2", Username: "bob"},
		hidden,
	)
	ctx := context.Background()

	_, _ = svc.SendPrivate(ctx, "u2", SendMessageInput{To: "u1", Text: "one"})
	_, _ = svc.SendPrivate(ctx, "u2", SendMessageInput{To: "u1", Text: "two"})
	_, _ = svc.SendPrivate(ctx, "u3", SendMessageInput{To: "u1", Text: "three"})
	_ = blocks.Upsert(ctx, "u1", "u2")

	contacts, err := svc.Contacts(ctx, "u1")
	if err != nil {
		t.Fatalf("Contacts() error = %v", err)
	}
	byUser := make(map[domain.UserID]domain.Contact, len(contacts))
	for _, c := range contacts {
		byUser[c.UserID] = c
	}

	if c := byUser["u2"]; c.UnseenCount != 2 || !c.IsBlock {
		t.Errorf("u2 contact = unseen %d block %v, want 2 true", c.UnseenCount, c.IsBlock)
	}
	if c := byUser["u3"]; c.UnseenCount != 1 {
		t.Errorf("u3 unseen = %d, want 1", c.UnseenCount)
	}
	if u := byUser["u3"].User; u == nil || u.IsOnline != nil {
		t.Error("hidden-activity contact leaked presence")
	}
}
