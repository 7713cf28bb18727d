package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chatcore/chatcore/internal/adapters/store/memory"
	"github.com/chatcore/chatcore/internal/domain"
)

func newNotifFixture() (*NotificationService, *memory.Notifications, *fakePush) {
	notifications := memory.NewNotifications()
	pusher := &fakePush{}
	users := memory.NewUsers(
		&domain.User{ID: "u1", Username: "alice", FCMTokens: []string{"tok-a", "tok-b"}},
		&domain.User{ID: "u2", Username: "bob"},
	)
	return NewNotificationService(notifications, users, pusher), notifications, pusher
}

func TestDispatchPersistsAndPushes(t *testing.T) {
	svc, notifications, pusher := newNotifFixture()
	ctx := context.Background()

	created, err := svc.Dispatch(ctx, DispatchInput{
		Owner: "u1", Type: domain.NotificationNewMessage, Related: "u2", WithPush: true,
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !created {
		t.Fatal("Dispatch() reported no row created")
	}

	count, _ := svc.UnreadCount(ctx, "u1")
	if count != 1 {
		t.Errorf("unread count = %d, want 1", count)
	}
	if len(pusher.calls) != 1 {
		t.Fatalf("push calls = %d, want 1", len(pusher.calls))
	}
	call := pusher.calls[0]
	if len(call.tokens) != 2 {
		t.Errorf("tokens = %v, want both devices", call.tokens)
	}
	// The body names the counterpart, not the recipient.
	if !strings.Contains(call.body, "bob") {
		t.Errorf("push body = %q, want the sender's name", call.body)
	}
	rows, _ := notifications.List(ctx, "u1", 1)
	if len(rows) != 1 {
		t.Errorf("persisted rows = %d", len(rows))
	}
}

// A second unread notification for the same (owner, type, user) is folded
// into the first.
func TestDispatchDeduplicatesUnread(t *testing.T) {
	svc, _, pusher := newNotifFixture()
	ctx := context.Background()
	in := DispatchInput{Owner: "u1", Type: domain.NotificationNewMessage, Related: "u2", WithPush: true}

	if created, _ := svc.Dispatch(ctx, in); !created {
		t.Fatal("first dispatch dropped")
	}
	created, err := svc.Dispatch(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("duplicate dispatch created a second row")
	}
	count, _ := svc.UnreadCount(ctx, "u1")
	if count != 1 {
		t.Errorf("unread count = %d, want 1", count)
	}
	if len(pusher.calls) != 1 {
		t.Errorf("push calls = %d, duplicate must not push", len(pusher.calls))
	}

	// Once read, the next event may notify again.
	items, _ := svc.List(ctx, "u1", 1)
	if err := svc.MarkRead(ctx, "u1", items[0].ID); err != nil {
		t.Fatal(err)
	}
	if created, _ := svc.Dispatch(ctx, in); !created {
		t.Fatal("dispatch after read still deduplicated")
	}
}

func TestDispatchSwallowsPushFailure(t *testing.T) {
	svc, _, pusher := newNotifFixture()
	pusher.err = errors.New("fcm unavailable")

	created, err := svc.Dispatch(context.Background(), DispatchInput{
		Owner: "u1", Type: domain.NotificationFriendRequest, Related: "u2", WithPush: true,
	})
	if err != nil {
		t.Fatalf("Dispatch() surfaced transport error: %v", err)
	}
	if !created {
		t.Fatal("row not created despite push failure")
	}
}

func TestDispatchWithoutTokensOrPush(t *testing.T) {
	svc, _, pusher := newNotifFixture()
	ctx := context.Background()

	// Owner u2 has no registered tokens; the row still lands.
	created, err := svc.Dispatch(ctx, DispatchInput{
		Owner: "u2", Type: domain.NotificationNewMessage, Related: "u1", WithPush: true,
	})
	if err != nil || !created {
		t.Fatalf("Dispatch() = %v, %v", created, err)
	}
	if len(pusher.calls) != 0 {
		t.Errorf("pushed to a user with no tokens")
	}

	// WithPush false records only.
	_, _ = svc.Dispatch(ctx, DispatchInput{
		Owner: "u1", Type: domain.NotificationFriendRequest, Related: "u2",
	})
	if len(pusher.calls) != 0 {
		t.Errorf("pushed despite WithPush=false")
	}
}

func TestListHydratesRelatedUsers(t *testing.T) {
	svc, _, _ := newNotifFixture()
	ctx := context.Background()
	_, _ = svc.Dispatch(ctx, DispatchInput{Owner: "u1", Type: domain.NotificationFriendRequest, Related: "u2"})

	items, err := svc.List(ctx, "u1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].User == nil || items[0].User.Username != "bob" {
		t.Errorf("related user not hydrated: %+v", items[0].User)
	}
}

func TestDeleteRetiresPending(t *testing.T) {
	svc, _, _ := newNotifFixture()
	ctx := context.Background()
	_, _ = svc.Dispatch(ctx, DispatchInput{Owner: "u1", Type: domain.NotificationFriendRequest, Related: "u2"})

	if err := svc.Delete(ctx, "u1", "u2", domain.NotificationFriendRequest); err != nil {
		t.Fatal(err)
	}
	count, _ := svc.UnreadCount(ctx, "u1")
	if count != 0 {
		t.Errorf("unread count after delete = %d", count)
	}
}
