package telegram

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spreadinsight/newsbot/internal/logger"
	"github.com/spreadinsight/newsbot/internal/metrics"
)

// Sender delivers a single message.
type Sender interface {
	SendMessage(ctx context.Context, text string) error
}

// Printer is a Sender that writes messages to w, used for dry runs.
type Printer struct {
	W io.Writer
}

func (p Printer) SendMessage(_ context.Context, text string) error {
	_, err := fmt.Fprintf(p.W, "%s\n%s\n", text, "----------------------------------------")
	return err
}

// Publisher sends the title message followed by the formatted article.
type Publisher struct {
	sender    Sender
	formatter Formatter
	delay     time.Duration
	metrics   *metrics.Metrics
}

func NewPublisher(sender Sender, formatter Formatter, delay time.Duration, m *metrics.Metrics) *Publisher {
	if m == nil {
		m = metrics.Global
	}
	return &Publisher{sender: sender, formatter: formatter, delay: delay, metrics: m}
}

// PublishArticle stops at the first failed message.
func (p *Publisher) PublishArticle(ctx context.Context, post Post) error {
	messages := append([]string{TitleMessage(post.Date)}, p.formatter.Format(post)...)
	logger.Info("Sending messages", "count", len(messages), "format", p.formatter.Version())

	for i, msg := range messages {
		if i > 0 && p.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.delay):
			}
		}
		if err := p.sender.SendMessage(ctx, msg); err != nil {
			return fmt.Errorf("message %d/%d: %w", i+1, len(messages), err)
		}
		p.metrics.IncrementTelegramMessagesSent()
		logger.Debug("Message sent", "index", i+1, "total", len(messages))
	}
	return nil
}
