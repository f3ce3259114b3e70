package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/srdtrk/nft-ica/internal/config"
	"github.com/srdtrk/nft-ica/internal/icatypes"
	"github.com/srdtrk/nft-ica/internal/metrics"
)

// NATS subjects of the controller messaging channel.
const (
	SubjectProvisionRequest = "ica.provision.request"
	SubjectCreateContract   = "ica.contract.create"
	subjectCommandPrefix    = "ica.command."
)

// ControllerClient issues asynchronous requests toward the provisioning
// subsystem and bound controllers. Every method returns as soon as the
// request is on the wire; outcomes arrive later as callbacks.
type ControllerClient interface {
	// RequestProvision asks for a new controller with an open channel. The
	// creation receipt arrives later tagged with req.ReplyID.
	RequestProvision(ctx context.Context, req icatypes.ProvisionRequest) error

	// RequestContractCreation asks the host to create a contract (the
	// ledger at instantiation). The receipt arrives tagged with req.ReplyID.
	RequestContractCreation(ctx context.Context, req icatypes.CreateContractRequest) error

	// ForwardCommand relays a command payload verbatim to a controller.
	ForwardCommand(ctx context.Context, controllerID string, payload json.RawMessage) error
}

// NATSControllerClient is the NATS-backed ControllerClient.
type NATSControllerClient struct {
	conn   *nats.Conn
	logger *logrus.Logger
}

// ConnectNATS establishes the NATS connection shared by the controller
// client and the callback consumer.
func ConnectNATS(cfg config.NATSConfig, logger *logrus.Logger) (*nats.Conn, error) {
	reconnectWait := 5 * time.Second
	if cfg.ReconnectWait > 0 {
		reconnectWait = time.Duration(cfg.ReconnectWait) * time.Second
	}
	maxReconnects := -1
	if cfg.MaxReconnects != 0 {
		maxReconnects = cfg.MaxReconnects
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Timeout(cfg.ConnectTimeout()),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect NATS: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)
	return conn, nil
}

// NewNATSControllerClient creates a ControllerClient over an established
// connection.
func NewNATSControllerClient(conn *nats.Conn, logger *logrus.Logger) *NATSControllerClient {
	return &NATSControllerClient{conn: conn, logger: logger}
}

func (c *NATSControllerClient) RequestProvision(ctx context.Context, req icatypes.ProvisionRequest) error {
	return c.publish(SubjectProvisionRequest, req)
}

func (c *NATSControllerClient) RequestContractCreation(ctx context.Context, req icatypes.CreateContractRequest) error {
	return c.publish(SubjectCreateContract, req)
}

func (c *NATSControllerClient) ForwardCommand(ctx context.Context, controllerID string, payload json.RawMessage) error {
	subject := subjectCommandPrefix + controllerID
	if err := c.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("forward command to %s: %w", controllerID, err)
	}
	metrics.OutboundMessages.WithLabelValues("command").Inc()
	c.logger.WithFields(logrus.Fields{
		"subject":       subject,
		"controller_id": controllerID,
	}).Debug("command forwarded")
	return nil
}

func (c *NATSControllerClient) publish(subject string, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	metrics.OutboundMessages.WithLabelValues(subject).Inc()
	return nil
}
