package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/chatcore/chatcore/internal/domain"
)

// ChatService is the private-message delivery state machine plus the
// lighter room-message composition. It never fans anything out; callers
// get pure results back.
type ChatService struct {
	users    UserStore
	messages MessageStore
	contacts ContactStore
	blocks   BlockStore
	friends  FriendStore
}

func NewChatService(users UserStore, messages MessageStore, contacts ContactStore, blocks BlockStore, friends FriendStore) *ChatService {
	return &ChatService{users: users, messages: messages, contacts: contacts, blocks: blocks, friends: friends}
}

type SendMessageInput struct {
	To      domain.UserID      `json:"to"`
	Text    string             `json:"text"`
	Media   []domain.Media     `json:"media"`
	ReplyTo domain.MessageID   `json:"replyMessage"`
	TempID  string             `json:"tempId"`
}

type SendRoomMessageInput struct {
	RoomID  domain.RoomID  `json:"roomId"`
	Text    string         `json:"text"`
	Media   []domain.Media `json:"media"`
	TempID  string         `json:"tempId"`
}

// sniffAudioURL turns a bare voice-clip link into a media attachment. A
// content convenience for clients, not a security control.
func sniffAudioURL(text string, media []domain.Media) (string, []domain.Media) {
	if strings.HasPrefix(text, "http") && strings.HasSuffix(text, ".mp3") {
		return "", []domain.Media{{Type: domain.MediaTypeAudio, URL: text}}
	}
	return text, media
}

// SendPrivate gates, persists and returns a new message. Gating facts are
// resolved concurrently: a sender-side block is a hard reject; a
// receiver-side block persists the message flagged isBlock so it reaches
// only the sender's own UI; a privacy-locked receiver requires friendship.
func (s *ChatService) SendPrivate(ctx context.Context, sender domain.UserID, in SendMessageInput) (*domain.PrivateMessage, error) {
	if in.To == "" {
		return nil, domain.Validation("receiver is required")
	}
	if in.To == sender {
		return nil, domain.ErrSelfAction
	}

	var (
		receiver          *domain.User
		senderBlocks      bool
		blockedByReceiver bool
		isFriend          bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		receiver, err = s.users.ByID(gctx, in.To)
		return err
	})
	g.Go(func() (err error) {
		senderBlocks, err = s.blocks.Exists(gctx, sender, in.To)
		return err
	})
	g.Go(func() (err error) {
		blockedByReceiver, err = s.blocks.Exists(gctx, in.To, sender)
		return err
	})
	g.Go(func() (err error) {
		isFriend, err = s.friends.IsFriend(gctx, in.To, sender)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if receiver.IsPrivateLock && !isFriend {
		return nil, domain.Unauthorized("this user accepts messages from friends only")
	}
	if senderBlocks {
		return nil, domain.Validation("a message cannot be sent to a user you have blocked")
	}

	text, media := sniffAudioURL(in.Text, in.Media)
	msg := &domain.PrivateMessage{
		SenderID:   sender,
		ReceiverID: in.To,
		Text:       text,
		Media:      media,
		IsBlock:    blockedByReceiver,
		ReplyTo:    in.ReplyTo,
		CreatedAt:  time.Now(),
	}
	id, err := s.messages.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}
	msg.ID = id
	msg.TempID = in.TempID

	if in.ReplyTo != "" {
		if reply, err := s.messages.ByID(ctx, in.ReplyTo); err == nil {
			msg.Reply = reply
		}
	}

	if err := s.contacts.EnsurePair(ctx, sender, in.To); err != nil {
		log.Warn().Err(err).Str("module", "app.chat").Msg("contact upsert")
	}
	if err := s.contacts.SetLastMessage(ctx, sender, in.To, id); err != nil {
		log.Warn().Err(err).Str("module", "app.chat").Msg("contact last message")
	}
	return msg, nil
}

// SendRoom composes an ephemeral room message. Nothing is persisted.
func (s *ChatService) SendRoom(ctx context.Context, sender domain.UserID, in SendRoomMessageInput) (*domain.RoomMessage, error) {
	user, err := s.users.ByID(ctx, sender)
	if err != nil {
		return nil, err
	}
	text, media := sniffAudioURL(in.Text, in.Media)
	return &domain.RoomMessage{
		ID:        domain.MessageID(uuid.NewString()),
		Sender:    user.PublicView(),
		RoomID:    in.RoomID,
		Type:      domain.RoomMsgNormal,
		Text:      text,
		Media:     media,
		TempID:    in.TempID,
		CreatedAt: time.Now(),
	}, nil
}

// SyntheticRoomMessage builds the system feed entry for join/leave/role
// changes on behalf of a user. Role entries carry the affected username as
// text; join/leave entries carry none.
func (s *ChatService) SyntheticRoomMessage(ctx context.Context, userID domain.UserID, roomID domain.RoomID, t domain.RoomMessageType, text string) (*domain.RoomMessage, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.RoomMessage{
		ID:        domain.MessageID(uuid.NewString()),
		Sender:    user.PublicView(),
		RoomID:    roomID,
		Type:      t,
		Text:      text,
		Media:     []domain.Media{},
		CreatedAt: time.Now(),
	}, nil
}

// MarkSent stamps the sent flag on messages still lacking it. Already
// marked or blocked messages are untouched; no-op on an empty set.
func (s *ChatService) MarkSent(ctx context.Context, ids []domain.MessageID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.messages.MarkSent(ctx, ids, time.Now())
}

// MarkSeen stamps every unseen, unblocked message of the (sender, receiver)
// conversation and returns the affected ids. Idempotent: a second call
// returns an empty set.
func (s *ChatService) MarkSeen(ctx context.Context, sender, receiver domain.UserID) ([]domain.MessageID, error) {
	return s.messages.MarkSeen(ctx, sender, receiver, time.Now())
}

// UnsentFor lists messages awaiting a sent mark for the receiver, for the
// deferred sweep that runs when the receiver fetches contacts.
func (s *ChatService) UnsentFor(ctx context.Context, receiver domain.UserID) ([]domain.PrivateMessage, error) {
	return s.messages.UnsentFor(ctx, receiver)
}

// React enforces at most one reaction per (message, user). A nil kind
// removes the user's reaction; any other kind replaces it, last write wins.
// The add is guarded by the store, so a concurrent react that lands between
// the pull and the add surfaces as ErrReactionExists and the pull reruns.
func (s *ChatService) React(ctx context.Context, user domain.UserID, messageID domain.MessageID, kind *domain.ReactionKind) (*domain.PrivateMessage, error) {
	var (
		msg *domain.PrivateMessage
		err error
	)
	for attempt := 0; ; attempt++ {
		if err = s.messages.PullReaction(ctx, messageID, user); err != nil {
			return nil, err
		}
		if kind == nil {
			msg, err = s.messages.ByID(ctx, messageID)
			break
		}
		msg, err = s.messages.AddReaction(ctx, messageID, domain.Reaction{UserID: user, Kind: *kind})
		if !errors.Is(err, domain.ErrReactionExists) || attempt == 2 {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	if err := s.hydrateReactions(ctx, []domain.PrivateMessage{*msg}); err != nil {
		return nil, err
	}
	return msg, nil
}

// Conversation pages a private thread newest-first, honoring the viewer's
// soft-deletion markers and hiding messages blocked on receipt.
func (s *ChatService) Conversation(ctx context.Context, owner, counterpart domain.UserID, page int) ([]domain.PrivateMessage, error) {
	msgs, err := s.messages.Conversation(ctx, owner, counterpart, page)
	if err != nil {
		return nil, err
	}
	if err := s.hydrateReactions(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// HideMessage sets the per-viewer deletion marker. The message itself is
// never deleted globally.
func (s *ChatService) HideMessage(ctx context.Context, viewer domain.UserID, id domain.MessageID) error {
	return s.messages.HideFor(ctx, id, viewer)
}

// Contacts returns the owner's conversation summaries with unseen counts
// and block/hidden-activity masking applied.
func (s *ChatService) Contacts(ctx context.Context, owner domain.UserID) ([]domain.Contact, error) {
	var (
		contacts []domain.Contact
		blocked  []domain.UserID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		contacts, err = s.contacts.For(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		blocked, err = s.blocks.IDsFor(gctx, owner)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return []domain.Contact{}, nil
	}

	senders := make([]domain.UserID, 0, len(contacts))
	for _, c := range contacts {
		senders = append(senders, c.UserID)
	}
	var (
		unseen map[domain.UserID]int
		users  []domain.User
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		unseen, err = s.messages.UnseenCounts(gctx, owner, senders)
		return err
	})
	g.Go(func() (err error) {
		users, err = s.users.ByIDs(gctx, senders)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	usersByID := make(map[domain.UserID]*domain.User, len(users))
	for i := range users {
		usersByID[users[i].ID] = &users[i]
	}

	blockedSet := make(map[domain.UserID]bool, len(blocked))
	for _, id := range blocked {
		blockedSet[id] = true
	}
	for i := range contacts {
		c := &contacts[i]
		c.UnseenCount = unseen[c.UserID]
		c.IsBlock = blockedSet[c.UserID]
		if u := usersByID[c.UserID]; u != nil {
			masked := u.PublicView()
			if c.IsBlock {
				masked.IsOnline = nil
				masked.LastSeen = nil
			}
			c.User = &masked
		}
	}
	return contacts, nil
}

// ContactIDs lists the owner's conversation counterparts.
func (s *ChatService) ContactIDs(ctx context.Context, owner domain.UserID) ([]domain.UserID, error) {
	return s.contacts.IDsFor(ctx, owner)
}

func (s *ChatService) hydrateReactions(ctx context.Context, msgs []domain.PrivateMessage) error {
	var ids []domain.UserID
	seen := make(map[domain.UserID]bool)
	for i := range msgs {
		for _, r := range msgs[i].Reactions {
			if !seen[r.UserID] {
				seen[r.UserID] = true
				ids = append(ids, r.UserID)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	users, err := s.users.ByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[domain.UserID]*domain.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for i := range msgs {
		for j := range msgs[i].Reactions {
			msgs[i].Reactions[j].User = byID[msgs[i].Reactions[j].UserID]
		}
	}
	return nil
}
