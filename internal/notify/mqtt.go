package notify

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/losredoe132/muellabfuhr-reminder/internal/log"
	"github.com/losredoe132/muellabfuhr-reminder/internal/model"
)

// MQTTOptions configure the schedule publisher.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
}

// MQTTSink publishes each schedule as one retained JSON document, so
// subscribers joining between refreshes still receive the current
// plan.
type MQTTSink struct {
	client mqtt.Client
	topic  string
}

func NewMQTTSink(o MQTTOptions) *MQTTSink {
	opts := mqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetOrderMatters(false).
		SetCleanSession(false).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if o.Username != "" {
		opts.SetUsername(o.Username)
	}
	if o.Password != "" {
		opts.SetPassword(o.Password)
	}

	opts.OnConnect = func(mqtt.Client) {
		log.Info("mqtt connected", "broker", o.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", "reason", err)
	}

	return &MQTTSink{client: mqtt.NewClient(opts), topic: o.Topic}
}

// Connect dials the broker, retrying with growing backoff until it
// succeeds or ctx is done. The client keeps reconnecting on its own
// afterwards.
func (s *MQTTSink) Connect(ctx context.Context) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		token := s.client.Connect()
		token.Wait()
		if token.Error() == nil {
			return nil
		}
		log.Error("mqtt connect failed, retrying", token.Error(), "wait", backoff)
		select {
		case <-time.After(backoff):
			if backoff < maxBackoff {
				backoff *= 2
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *MQTTSink) Name() string { return "mqtt" }

// Publish sends the schedule at QoS 1, retained.
func (s *MQTTSink) Publish(ctx context.Context, sched model.Schedule) error {
	payload, err := json.Marshal(sched)
	if err != nil {
		return err
	}
	token := s.client.Publish(s.topic, 1, true, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}
