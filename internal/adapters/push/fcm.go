// Package push sends best-effort mobile notifications through Firebase
// Cloud Messaging. Failures never propagate past the dispatcher; a push is
// already the fallback path.
package push

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

type FCM struct {
	client *messaging.Client
}

// NewFCM builds a sender from a service-account credentials file.
func NewFCM(ctx context.Context, credentialsFile string) (*FCM, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &FCM{client: client}, nil
}

// SendMulticast pushes one notification to every token. Per-token failures
// (expired or unregistered devices) are logged and not reported: the owner
// may still have a healthy device among them.
func (f *FCM) SendMulticast(ctx context.Context, tokens []string, title, body string) error {
	if len(tokens) == 0 {
		return nil
	}
	res, err := f.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	})
	if err != nil {
		return err
	}
	if res.FailureCount > 0 {
		log.Debug().Str("module", "adapters.push").
			Int("ok", res.SuccessCount).Int("failed", res.FailureCount).
			Msg("multicast partially delivered")
	}
	return nil
}

// Disabled is the sender used when no credentials are configured. It logs
// and drops.
type Disabled struct{}

func (Disabled) SendMulticast(_ context.Context, tokens []string, title, _ string) error {
	log.Debug().Str("module", "adapters.push").
		Int("tokens", len(tokens)).Str("title", title).
		Msg("push disabled, dropping")
	return nil
}
