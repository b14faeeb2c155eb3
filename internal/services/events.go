package services

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
)

// Routing keys of published domain events.
const (
	EventCategoryCreated = "category.created"
	EventCategoryUpdated = "category.updated"
	EventCategoryDeleted = "category.deleted"
	EventProductCreated  = "product.created"
	EventProductUpdated  = "product.updated"
	EventProductDeleted  = "product.deleted"
	EventProductReviewed = "product.reviewed"
	EventUserRegistered  = "user.registered"
	EventUserDeleted     = "user.deleted"
)

// EventPublisher delivers domain events to a message broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// publishEvent sends payload as JSON. Events are best effort: failures are
// logged and never fail the operation that produced them.
func publishEvent(publisher EventPublisher, routingKey string, payload map[string]interface{}) {
	if publisher == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).WithField("event", routingKey).Warn("failed to marshal event")
		return
	}
	if err := publisher.Publish(routingKey, body); err != nil {
		log.WithError(err).WithField("event", routingKey).Warn("failed to publish event")
		return
	}
	log.WithField("event", routingKey).Debug("published event")
}
