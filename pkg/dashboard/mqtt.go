package dashboard

import (
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTT publishes each value as a retained decimal string on
// "<prefix>/<key>".
type MQTT struct {
	client mqtt.Client
	prefix string
}

// NewMQTT wraps an existing client.
func NewMQTT(client mqtt.Client, prefix string) *MQTT {
	return &MQTT{client: client, prefix: prefix}
}

// DialMQTT starts connecting to broker in the background and returns
// immediately; puts fail with ErrNotConnected until the link is up.
func DialMQTT(broker, clientID, prefix string, log *zap.SugaredLogger) *MQTT {
	client := mqtt.NewClient(clientOptions(broker, clientID, log))
	client.Connect()
	return NewMQTT(client, prefix)
}

func clientOptions(broker, clientID string, log *zap.SugaredLogger) *mqtt.ClientOptions {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.OnConnect = func(mqtt.Client) {
		log.Infow("connected to MQTT broker", "broker", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warnw("MQTT connection lost", "broker", broker, "error", err)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetWriteTimeout(time.Second)
	return opts
}

// PutNumber queues the publish without waiting for the broker.
func (m *MQTT) PutNumber(key string, value float64) error {
	if !m.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	m.client.Publish(m.Topic(key), 0, true, strconv.FormatFloat(value, 'f', -1, 64))
	return nil
}

// Topic returns the topic a key is published on.
func (m *MQTT) Topic(key string) string {
	if m.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", m.prefix, key)
}

// Close disconnects, allowing queued publishes 250ms to drain.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
