// Package broker fans accepted positions out to live consumers over MQTT.
// Delivery is best effort; the ledger remains the source of truth.
package broker

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/loctrack/field-tracker/internal/models"
)

// Publisher publishes the latest accepted position for an owner.
type Publisher interface {
	PublishPosition(ownerID string, sample models.LocationSample)
	Close()
}

// MQTTPublisher publishes retained position messages on
// tracking/live/<ownerId>.
type MQTTPublisher struct {
	client      mqtt.Client
	topicPrefix string
}

// NewFromEnv connects to the broker named by MQTT_BROKER. Returns (nil, nil)
// when no broker is configured; live fan-out is optional.
func NewFromEnv() (*MQTTPublisher, error) {
	brokerURL := os.Getenv("MQTT_BROKER")
	if brokerURL == "" {
		return nil, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("field-tracker-server").
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)
	if user := os.Getenv("MQTT_USERNAME"); user != "" {
		opts.SetUsername(user)
		opts.SetPassword(os.Getenv("MQTT_PASSWORD"))
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout to %s", brokerURL)
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &MQTTPublisher{client: client, topicPrefix: "tracking/live/"}, nil
}

// PublishPosition publishes the sample as a retained message so late
// subscribers immediately see the last known position.
func (p *MQTTPublisher) PublishPosition(ownerID string, sample models.LocationSample) {
	data, err := json.Marshal(sample)
	if err != nil {
		return
	}
	token := p.client.Publish(p.topicPrefix+ownerID, 0, true, data)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).WithField("owner_id", ownerID).Warn("Failed to publish live position")
		}
	}()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
