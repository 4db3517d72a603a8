// Package mail delivers transactional and campaign email.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrz1836/postmark"
	"go.uber.org/zap"
)

// Message is one outbound email.
type Message struct {
	To       string
	FromName string
	Subject  string
	HTML     string
	Text     string
	// Tag groups messages in delivery statistics, e.g. a campaign ID.
	Tag string
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// PostmarkMailer sends through the Postmark API.
type PostmarkMailer struct {
	client *postmark.Client
	from   string
	stream string
}

func NewPostmarkMailer(serverToken, accountToken, from, stream string) (*PostmarkMailer, error) {
	if serverToken == "" {
		return nil, errors.New("postmark server token is not configured")
	}
	if from == "" {
		return nil, errors.New("mail sender address is not configured")
	}
	return &PostmarkMailer{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
		stream: stream,
	}, nil
}

func (m *PostmarkMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail: empty recipient")
	}
	from := m.from
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, m.from)
	}
	res, err := m.client.SendEmail(ctx, postmark.Email{
		From:          from,
		To:            msg.To,
		Subject:       msg.Subject,
		HTMLBody:      msg.HTML,
		TextBody:      msg.Text,
		Tag:           msg.Tag,
		TrackOpens:    true,
		MessageStream: m.stream,
	})
	if err != nil {
		return fmt.Errorf("postmark send to %s: %w", msg.To, err)
	}
	if res.ErrorCode != 0 {
		return fmt.Errorf("postmark send to %s: %d %s", msg.To, res.ErrorCode, res.Message)
	}
	return nil
}

// LogMailer only logs messages. It stands in when Postmark is not configured.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) Send(ctx context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = zap.L()
	}
	logger.Info("mail not sent, no provider configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("tag", msg.Tag))
	return nil
}
