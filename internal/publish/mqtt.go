// Package publish forwards annotated rows to external consumers.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"gridreplay/internal/config"
	"gridreplay/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"

	defaultTimeout = 5 * time.Second
)

// RowSink receives every annotated row right after it is persisted.
type RowSink interface {
	PublishRow(ctx context.Context, sessionID string, row models.AnnotatedRow) error
	Close()
}

func OptsFromConfig(cfg config.MQTTConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(fmt.Sprintf("gridreplay_%d", rand.IntN(1000)))
	if cfg.Username != "" && cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetWill(BridgeStateTopic(cfg.BaseTopic), payloadOffline, 0, true)
	return opts
}

// MQTTSink publishes rows as JSON to <base>/session/<id>/row.
type MQTTSink struct {
	client    mqtt.Client
	baseTopic string
	timeout   time.Duration
}

// NewMQTTSink connects to the broker and announces the bridge as online.
func NewMQTTSink(cfg config.MQTTConfig) (*MQTTSink, error) {
	s := newSink(mqtt.NewClient(OptsFromConfig(cfg)), cfg.BaseTopic)
	if err := s.wait(s.client.Connect(), "connect"); err != nil {
		return nil, err
	}
	if err := s.wait(s.client.Publish(BridgeStateTopic(s.baseTopic), 0, true, payloadOnline), "publish bridge state"); err != nil {
		s.client.Disconnect(250)
		return nil, err
	}
	return s, nil
}

func newSink(client mqtt.Client, baseTopic string) *MQTTSink {
	return &MQTTSink{client: client, baseTopic: baseTopic, timeout: defaultTimeout}
}

func (s *MQTTSink) PublishRow(ctx context.Context, sessionID string, row models.AnnotatedRow) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row %d: %w", row.Index, err)
	}
	token := s.client.Publish(RowTopic(s.baseTopic, sessionID), 0, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.timeout):
		return errors.New("MQTT publish timed out")
	}
}

// Close marks the bridge offline and disconnects.
func (s *MQTTSink) Close() {
	_ = s.wait(s.client.Publish(BridgeStateTopic(s.baseTopic), 0, true, payloadOffline), "publish bridge state")
	s.client.Disconnect(uint(s.timeout.Milliseconds()))
}

func (s *MQTTSink) wait(token mqtt.Token, op string) error {
	if !token.WaitTimeout(s.timeout) {
		return fmt.Errorf("MQTT %s timed out", op)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT %s: %w", op, err)
	}
	return nil
}

func RowTopic(baseTopic, sessionID string) string {
	return fmt.Sprintf("%s/session/%s/row", baseTopic, sessionID)
}

func BridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
