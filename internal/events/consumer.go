// Package events wires the asynchronous messaging channel into the
// coordinator: controller callbacks and creation receipts arrive here as
// NATS messages and are delivered to the service one at a time.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/srdtrk/nft-ica/internal/config"
	"github.com/srdtrk/nft-ica/internal/icatypes"
	"github.com/srdtrk/nft-ica/internal/services"
)

// Inbound subjects.
const (
	SubjectCallbacks = "ica.callback.>"
	SubjectReplies   = "ica.provision.reply.>"
)

// Consumer subscribes to controller callbacks and creation receipts and
// feeds them to the coordinator service. Messages on a subscription are
// handled sequentially; a failed invocation is NAK'd for redelivery and
// reported, never silently swallowed.
type Consumer struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	svc    *services.CoordinatorService
	cfg    config.NATSConfig
	logger *logrus.Logger
	subs   []*nats.Subscription
}

// NewConsumer creates a Consumer over an established connection.
func NewConsumer(conn *nats.Conn, svc *services.CoordinatorService, cfg config.NATSConfig, logger *logrus.Logger) (*Consumer, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	return &Consumer{conn: conn, js: js, svc: svc, cfg: cfg, logger: logger}, nil
}

// Start ensures the stream exists and opens the durable subscriptions.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.ensureStream(); err != nil {
		return err
	}

	callbackSub, err := c.js.Subscribe(SubjectCallbacks, c.handleCallback,
		nats.Durable(c.cfg.ConsumerName+"-callbacks"),
		nats.ManualAck(),
		nats.AckExplicit(),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectCallbacks, err)
	}
	c.subs = append(c.subs, callbackSub)

	replySub, err := c.js.Subscribe(SubjectReplies, c.handleReply,
		nats.Durable(c.cfg.ConsumerName+"-replies"),
		nats.ManualAck(),
		nats.AckExplicit(),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectReplies, err)
	}
	c.subs = append(c.subs, replySub)

	c.logger.WithFields(logrus.Fields{
		"stream":   c.cfg.StreamName,
		"consumer": c.cfg.ConsumerName,
	}).Info("callback subscriptions started")
	return nil
}

// Stop drains the subscriptions.
func (c *Consumer) Stop() {
	for _, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			c.logger.WithError(err).Warn("drain subscription")
		}
	}
}

func (c *Consumer) ensureStream() error {
	_, err := c.js.StreamInfo(c.cfg.StreamName)
	if err == nil {
		return nil
	}

	_, err = c.js.AddStream(&nats.StreamConfig{
		Name:      c.cfg.StreamName,
		Subjects:  []string{SubjectCallbacks, SubjectReplies},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", c.cfg.StreamName, err)
	}
	return nil
}

func (c *Consumer) handleCallback(msg *nats.Msg) {
	var callback icatypes.CallbackMsg
	if err := json.Unmarshal(msg.Data, &callback); err != nil {
		c.logger.WithError(err).WithField("subject", msg.Subject).Error("malformed callback, dropping")
		_ = msg.Term()
		return
	}

	if err := c.svc.ProcessCallback(context.Background(), callback); err != nil {
		c.logger.WithError(err).WithField("subject", msg.Subject).Error("callback invocation failed")
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

func (c *Consumer) handleReply(msg *nats.Msg) {
	var receipt icatypes.CreationReceipt
	if err := json.Unmarshal(msg.Data, &receipt); err != nil {
		c.logger.WithError(err).WithField("subject", msg.Subject).Error("malformed receipt, dropping")
		_ = msg.Term()
		return
	}

	if err := c.svc.HandleReceipt(context.Background(), receipt); err != nil {
		c.logger.WithError(err).WithField("subject", msg.Subject).Error("receipt invocation failed")
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}
