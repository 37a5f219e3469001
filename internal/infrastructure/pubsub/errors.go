package pubsub

import "errors"

var (
	// ErrMissingTopic ...
	ErrMissingTopic = errors.New("missing topic")
	// ErrInvalidEndpoint ...
	ErrInvalidEndpoint = errors.New("invalid webhook endpoint")
	// ErrSubscriptionNotFound ...
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
