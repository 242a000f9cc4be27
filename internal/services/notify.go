package services

import (
	"context"
	"time"

	"matching-backend/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	pushTimeout        = 10 * time.Second
	pushPreviewLength  = 100
	pushKindMatch      = "match"
	pushKindNewMessage = "message"
)

// Notifier delivers match and chat events over the websocket hub, falling
// back to APNs for users that are not connected.
type Notifier struct {
	hub   *WSHub
	push  *PushService
	users UserStore
}

// NewNotifier creates a new notifier. push may be nil.
func NewNotifier(hub *WSHub, push *PushService, users UserStore) *Notifier {
	return &Notifier{
		hub:   hub,
		push:  push,
		users: users,
	}
}

// MatchCreated notifies both users of a new match
func (n *Notifier) MatchCreated(match *models.Match) {
	for _, pair := range [][2]int64{{match.User1ID, match.User2ID}, {match.User2ID, match.User1ID}} {
		recipient, partner := pair[0], pair[1]
		if err := n.hub.NotifyMatchCreated(recipient, partner, match.ID); err == nil {
			continue
		}
		n.pushTo(recipient, pushKindMatch, "It's a match!", func(partnerName string) string {
			return "You and " + partnerName + " liked each other"
		}, partner, match.ID)
	}
}

// MessageSent forwards msg to the other participant of match
func (n *Notifier) MessageSent(msg *models.Message, match *models.Match) {
	recipient, ok := match.PartnerOf(msg.SenderID)
	if !ok {
		return
	}
	if err := n.hub.NotifyNewMessage(recipient, msg); err == nil {
		return
	}

	preview := msg.Content
	if r := []rune(preview); len(r) > pushPreviewLength {
		preview = string(r[:pushPreviewLength]) + "…"
	}
	n.pushTo(recipient, pushKindNewMessage, "", func(string) string {
		return preview
	}, msg.SenderID, match.ID)
}

// MessagesRead tells the partner of readerID that their messages were read
func (n *Notifier) MessagesRead(match *models.Match, readerID int64) {
	recipient, ok := match.PartnerOf(readerID)
	if !ok {
		return
	}
	if err := n.hub.NotifyMessagesRead(recipient, match.ID); err != nil {
		log.Debug().Err(err).Int64("user_id", recipient).Msg("Read receipt not delivered")
	}
}

func (n *Notifier) pushTo(recipientID int64, kind, title string, body func(name string) string, aboutID, matchID int64) {
	if !n.push.Enabled() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()

		recipient, err := n.users.GetByID(ctx, recipientID)
		if err != nil || recipient.PushToken == nil {
			return
		}
		about, err := n.users.GetByID(ctx, aboutID)
		if err != nil {
			return
		}
		if title == "" {
			title = about.Name
		}

		if err := n.push.Send(ctx, *recipient.PushToken, kind, title, body(about.Name), matchID); err != nil {
			log.Error().
				Err(err).
				Int64("user_id", recipientID).
				Str("kind", kind).
				Msg("Failed to send push notification")
		}
	}()
}
