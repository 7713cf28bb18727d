package core

import (
	"encoding/json"
	"testing"

	"github.com/chatcore/chatcore/internal/domain"
)

func TestEncodeWrapsEnvelope(t *testing.T) {
	data, err := Encode(WritingMessage{UserID: "u1", Status: true})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var env struct {
		Event string `json:"event"`
		Data  struct {
			UserID string `json:"userId"`
			Status bool   `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Event != "writing-message" {
		t.Errorf("event = %q, want writing-message", env.Event)
	}
	if env.Data.UserID != "u1" || !env.Data.Status {
		t.Errorf("data = %+v, want userId u1 status true", env.Data)
	}
}

func TestUserOnlineStatusNullsWhenHidden(t *testing.T) {
	data, err := Encode(UserOnlineStatus{UserID: "u1"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := env.Data["status"]; !ok || v != nil {
		t.Errorf("status = %v, want explicit null", v)
	}
	if v, ok := env.Data["lastSeen"]; !ok || v != nil {
		t.Errorf("lastSeen = %v, want explicit null", v)
	}
}

func TestRoleEventNames(t *testing.T) {
	n := Notice{UserID: "u1", RoomID: "r1", RoomName: "general"}
	cases := []struct {
		ev   Event
		want string
	}{
		{UserKicked{n}, "user-kicked"},
		{UserBanned{n}, "user-banned"},
		{UserUnbanned{n}, "un-ban"},
		{SetAdmin{n}, "set-admin"},
		{RemoveAdmin{n}, "remove-admin"},
		{SetOwner{n}, "set-owner"},
		{RemoveOwner{n}, "remove-owner"},
		{SetMember{n}, "set-member"},
		{RemoveMember{n}, "remove-member"},
	}
	for _, tc := range cases {
		if got := tc.ev.Name(); got != tc.want {
			t.Errorf("Name() = %q, want %q", got, tc.want)
		}
	}
}

func TestEventPayloadsCarryDomainFields(t *testing.T) {
	msg := domain.PrivateMessage{ID: "m1", SenderID: "u1", ReceiverID: "u2", Text: "hi"}
	data, err := Encode(NewPrivateMessage{PrivateMessage: msg})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	var env struct {
		Event string `json:"event"`
		Data  struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Event != "new-private-message" {
		t.Errorf("event = %q", env.Event)
	}
	if env.Data.ID != "m1" || env.Data.Text != "hi" {
		t.Errorf("data = %+v", env.Data)
	}
}
