package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
)

var (
	// ErrInvalidWebhookEvent ...
	ErrInvalidWebhookEvent = errors.New("invalid webhook event")
	// ErrInvalidWebhookEndpoint ...
	ErrInvalidWebhookEndpoint = errors.New("invalid webhook endpoint")
	// ErrWebhookNotFound ...
	ErrWebhookNotFound = errors.New("webhook not found")
	// ErrMissingPubSub ...
	ErrMissingPubSub = errors.New("missing pubsub")
)

// WebhookEvents lists the topics a webhook can subscribe to. AllEvents
// matches any of them.
var WebhookEvents = map[string]struct{}{
	string(domain.SwapEventProposed):        {},
	string(domain.SwapEventAccepted):        {},
	string(domain.SwapEventSettled):         {},
	string(domain.SwapEventCancelRequested): {},
	string(domain.SwapEventCancelled):       {},
	string(domain.SwapEventExpired):         {},
	string(domain.SwapEventSettleFailed):    {},
	string(domain.SwapEventSettleStarted):   {},
	AllEvents:                               {},
}

const AllEvents = ports.AnyTopic

// WebhookService manages the http endpoints notified of swap events.
type WebhookService interface {
	AddWebhook(ctx context.Context, hook Webhook) (string, error)
	RemoveWebhook(ctx context.Context, id string) error
	// ListWebhooks returns the webhooks notified of the given event, all of
	// them if event is empty.
	ListWebhooks(ctx context.Context, event string) ([]WebhookInfo, error)
}

type webhookService struct {
	pubsub ports.PubSub
}

func NewWebhookService(pubsub ports.PubSub) (WebhookService, error) {
	if pubsub == nil {
		return nil, ErrMissingPubSub
	}
	return &webhookService{pubsub}, nil
}

func (s *webhookService) AddWebhook(
	_ context.Context, hook Webhook,
) (string, error) {
	if err := hook.validate(); err != nil {
		return "", err
	}
	id, err := s.pubsub.Subscribe(hook.Event, hook.Endpoint, hook.Secret)
	if err != nil {
		return "", err
	}
	log.Infof("added webhook %s for event %s", id, hook.Event)
	return id, nil
}

func (s *webhookService) RemoveWebhook(_ context.Context, id string) error {
	subs, err := s.pubsub.ListSubscriptionsForTopic(ports.UnspecifiedTopic)
	if err != nil {
		return err
	}
	found := false
	for _, sub := range subs {
		if sub.Id() == id {
			found = true
			break
		}
	}
	if !found {
		return ErrWebhookNotFound
	}

	if err := s.pubsub.Unsubscribe(id); err != nil {
		return err
	}
	log.Infof("removed webhook %s", id)
	return nil
}

func (s *webhookService) ListWebhooks(
	_ context.Context, event string,
) ([]WebhookInfo, error) {
	if len(event) > 0 {
		if _, ok := WebhookEvents[event]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidWebhookEvent, event)
		}
	}

	subs, err := s.pubsub.ListSubscriptionsForTopic(event)
	if err != nil {
		return nil, err
	}
	hooks := make([]WebhookInfo, 0, len(subs))
	for _, sub := range subs {
		hooks = append(hooks, WebhookInfo{
			ID:        sub.Id(),
			Event:     sub.Topic(),
			Endpoint:  sub.NotifyAt(),
			IsSecured: sub.IsSecured(),
		})
	}
	return hooks, nil
}

// publishEvents notifies the webhooks subscribed for the given events.
// Failures are logged since the transitions are already committed.
func publishEvents(pubsub ports.PubSub, events []domain.SwapEvent) {
	if pubsub == nil {
		return
	}

	for _, e := range events {
		message, _ := json.Marshal(map[string]interface{}{
			"event":     e.Type,
			"id":        e.ID,
			"swap_id":   e.SwapID,
			"actor":     e.Actor,
			"status":    e.Status.String(),
			"reason":    e.Reason,
			"timestamp": e.Timestamp,
		})
		if err := pubsub.Publish(string(e.Type), string(message)); err != nil {
			log.WithError(err).Warnf(
				"swap %d: failed to notify webhooks of event %s", e.SwapID, e.Type,
			)
		}
	}
}

func validateWebhookEndpoint(endpoint string) error {
	u, err := url.ParseRequestURI(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: must be a valid http URI", ErrInvalidWebhookEndpoint)
	}
	return nil
}
