package orch

import (
	"context"
	"time"

	"github.com/chatcore/chatcore/internal/app"
	"github.com/chatcore/chatcore/internal/core"
	"github.com/chatcore/chatcore/internal/domain"
)

// SendPrivate runs the full delivery attempt: persist through the service,
// then either hand the message to the receiver's live sessions and stamp it
// sent, or fall back to a push notification. The sender's own devices always
// get the echo so a multi-device sender stays consistent.
func (o *Orchestrator) SendPrivate(ctx context.Context, sender domain.UserID, in app.SendMessageInput) (*domain.PrivateMessage, error) {
	msg, err := o.Chat.SendPrivate(ctx, sender, in)
	if err != nil {
		return nil, err
	}

	if !msg.IsBlock {
		if o.Registry.IsOnline(msg.ReceiverID) {
			now := time.Now()
			msg.SentDate = &now
			o.Fanout.ToUser(msg.ReceiverID, core.NewPrivateMessage{PrivateMessage: *msg})
			if err := o.Chat.MarkSent(ctx, []domain.MessageID{msg.ID}); err != nil {
				return nil, err
			}
		} else {
			created, err := o.Notifs.Dispatch(ctx, app.DispatchInput{
				Owner:    msg.ReceiverID,
				Type:     domain.NotificationNewMessage,
				Related:  sender,
				WithPush: true,
			})
			if err == nil && created {
				o.RefreshBadges(ctx, msg.ReceiverID)
			}
		}
	}

	o.Fanout.ToUser(sender, core.NewPrivateMessage{PrivateMessage: *msg})
	return msg, nil
}

// SendRoom composes and broadcasts to the room's live sessions. Nothing
// outlives the broadcast.
func (o *Orchestrator) SendRoom(ctx context.Context, sender domain.UserID, in app.SendRoomMessageInput) (*domain.RoomMessage, error) {
	msg, err := o.Chat.SendRoom(ctx, sender, in)
	if err != nil {
		return nil, err
	}
	o.Fanout.ToRoom(msg.RoomID, core.NewRoomMessage{RoomMessage: *msg})
	return msg, nil
}

// Conversation pages a private thread for the viewer. The first page doubles
// as a read receipt: everything unseen from the counterpart is stamped and
// the counterpart is told which ids flipped.
func (o *Orchestrator) Conversation(ctx context.Context, viewer, counterpart domain.UserID, page int) ([]domain.PrivateMessage, error) {
	if page <= 1 {
		o.markSeen(ctx, viewer, counterpart)
	}
	return o.Chat.Conversation(ctx, viewer, counterpart, page)
}

// MarkSeen stamps the counterpart's unseen messages on the viewer's behalf.
func (o *Orchestrator) MarkSeen(ctx context.Context, viewer, counterpart domain.UserID) {
	o.markSeen(ctx, viewer, counterpart)
}

func (o *Orchestrator) markSeen(ctx context.Context, viewer, counterpart domain.UserID) {
	ids, err := o.Chat.MarkSeen(ctx, counterpart, viewer)
	if err != nil || len(ids) == 0 {
		return
	}
	ev := core.MessagesSeen{UserID: viewer, MessagesIDs: ids}
	o.Fanout.ToUser(counterpart, ev)
	o.Fanout.ToUser(viewer, ev)
}

// React applies the reaction and pushes the updated message to both ends of
// the conversation; clients upsert by message id.
func (o *Orchestrator) React(ctx context.Context, user domain.UserID, messageID domain.MessageID, kind *domain.ReactionKind) (*domain.PrivateMessage, error) {
	msg, err := o.Chat.React(ctx, user, messageID, kind)
	if err != nil {
		return nil, err
	}
	ev := core.NewPrivateMessage{PrivateMessage: *msg}
	o.Fanout.ToUser(msg.SenderID, ev)
	if msg.ReceiverID != msg.SenderID {
		o.Fanout.ToUser(msg.ReceiverID, ev)
	}
	return msg, nil
}

// Contacts lists conversation summaries and runs the deferred sent sweep:
// messages that arrived while the owner was offline are stamped sent now,
// and each sender learns which of its messages landed.
func (o *Orchestrator) Contacts(ctx context.Context, owner domain.UserID) ([]domain.Contact, error) {
	o.sweepUnsent(ctx, owner)
	return o.Chat.Contacts(ctx, owner)
}

func (o *Orchestrator) sweepUnsent(ctx context.Context, owner domain.UserID) {
	pending, err := o.Chat.UnsentFor(ctx, owner)
	if err != nil || len(pending) == 0 {
		return
	}
	ids := make([]domain.MessageID, 0, len(pending))
	bySender := make(map[domain.UserID][]domain.MessageID)
	for _, m := range pending {
		ids = append(ids, m.ID)
		bySender[m.SenderID] = append(bySender[m.SenderID], m.ID)
	}
	if err := o.Chat.MarkSent(ctx, ids); err != nil {
		return
	}
	for sender, msgIDs := range bySender {
		o.Fanout.ToUser(sender, core.MessagesSent{UserID: owner, MessagesIDs: msgIDs})
	}
}
