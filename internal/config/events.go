package config

import (
	"fmt"

	"quizmaster/internal/events"

	"github.com/sirupsen/logrus"
)

// NewEventPublisher creates the publisher selected by the events section.
// "none" keeps events in memory only.
func NewEventPublisher(cfg Events, log logrus.FieldLogger) (events.Publisher, error) {
	switch cfg.Publisher {
	case "", "none", "mock":
		return events.NewMockPublisher(), nil
	case "gochannel":
		log.WithField("topic", cfg.Topic).Info("using in-process event publisher")
		return events.NewWatermillPublisher(events.NewChannelPubSub(log), cfg.Topic, log), nil
	case "kafka":
		brokers := cfg.BrokerList()
		if len(brokers) == 0 {
			return nil, fmt.Errorf("events: kafka publisher needs brokers")
		}
		log.WithFields(logrus.Fields{"brokers": brokers, "topic": cfg.Topic}).Info("using kafka event publisher")
		return events.NewKafkaPublisher(brokers, cfg.Topic, log)
	default:
		return nil, fmt.Errorf("events: unknown publisher %q", cfg.Publisher)
	}
}
