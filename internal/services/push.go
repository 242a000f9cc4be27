package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// PushConfig holds APNs credentials
type PushConfig struct {
	KeyFile    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
}

// PushService sends APNs alerts. A service built without a key file is a no-op.
type PushService struct {
	client *apns2.Client
	topic  string
}

// NewPushService creates a new push service
func NewPushService(cfg PushConfig) (*PushService, error) {
	if cfg.KeyFile == "" {
		log.Info().Msg("APNs key file not configured, push notifications disabled")
		return &PushService{}, nil
	}

	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &PushService{client: client, topic: cfg.Topic}, nil
}

// Enabled reports whether alerts are actually delivered
func (s *PushService) Enabled() bool {
	return s != nil && s.client != nil
}

// Send delivers one alert to a device
func (s *PushService) Send(ctx context.Context, deviceToken, kind, title, body string, matchID int64) error {
	if !s.Enabled() {
		return nil
	}

	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.topic,
		Payload: payload.NewPayload().
			AlertTitle(title).
			AlertBody(body).
			Sound("default").
			Custom("type", kind).
			Custom("match_id", matchID),
	}

	res, err := s.client.PushWithContext(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("push notification rejected: %d %s", res.StatusCode, res.Reason)
	}
	return nil
}
