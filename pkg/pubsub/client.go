package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tradehub/tradehub-backend/pkg/config"
	"github.com/tradehub/tradehub-backend/pkg/logger"
)

type Client struct {
	client    *pubsub.Client
	projectID string
	topic     string
	ordered   bool
	publisher *pubsub.Publisher
}

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("pubsub orders topic is required")
)

// NewClient creates a Pub/Sub v2 client and ensures the orders topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.OrdersTopic) == "" {
		return nil, errTopicRequired
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:    psClient,
		projectID: gcp.ProjectID,
		ordered:   cfg.Ordered,
	}
	c.topic = c.topicResourceName(cfg.OrdersTopic)

	if err := c.ensureTopicExists(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	c.publisher = psClient.Publisher(c.topic)
	c.publisher.EnableMessageOrdering = c.ordered

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topic":   c.topic,
			"ordered": c.ordered,
		}), "pubsub client initialized")
	}

	return c, nil
}

// clientOptions prefers inline credentials, then a key file. With neither the
// client falls back to Application Default Credentials, or to the emulator
// when PUBSUB_EMULATOR_HOST is set.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	return opts
}

func (c *Client) ensureTopicExists(ctx context.Context) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("topic %q does not exist", c.topic)
		}
		return fmt.Errorf("checking topic %q: %w", c.topic, err)
	}
	return nil
}

// Name identifies the broker in logs.
func (c *Client) Name() string {
	return "pubsub"
}

// Publish sends one message to the orders topic and waits for the server ack.
// With ordering on, the key becomes the ordering key so events of one
// aggregate are delivered in publish order. A failed ordered publish pauses
// that key inside the client; it is resumed here so the outbox retry can go
// through on the next poll.
func (c *Client) Publish(ctx context.Context, key string, data []byte, attrs map[string]string) error {
	if c == nil || c.publisher == nil {
		return errors.New("pubsub publisher not initialized")
	}
	msg := buildMessage(key, data, attrs, c.ordered)
	_, err := c.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil && msg.OrderingKey != "" {
		c.publisher.ResumePublish(msg.OrderingKey)
	}
	return err
}

func buildMessage(key string, data []byte, attrs map[string]string, ordered bool) *pubsub.Message {
	out := make(map[string]string, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	if _, ok := out["aggregate_id"]; !ok && key != "" {
		out["aggregate_id"] = key
	}
	msg := &pubsub.Message{Data: data, Attributes: out}
	if ordered {
		msg.OrderingKey = key
	}
	return msg
}

// Ping verifies Pub/Sub connectivity by checking the orders topic exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.ensureTopicExists(ctx)
}

// Close flushes pending publishes and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.publisher != nil {
		c.publisher.Stop()
	}
	return c.client.Close()
}

func (c *Client) topicResourceName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	p := strings.TrimSpace(c.projectID)
	if p == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/topics/%s", p, n)
}
