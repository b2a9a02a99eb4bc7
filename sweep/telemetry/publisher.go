// Package telemetry publishes sweep progress to an MQTT broker so long
// campaigns can be watched from dashboards or other machines.
package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/garnet-sweep/garnet-sweep/sweep"
)

const (
	DefaultTopicPrefix = "garnet-sweep"
	connectTimeout     = 10 * time.Second
	publishTimeout     = 5 * time.Second
)

// client is the subset of mqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// SampleMessage is the JSON payload published for every sample.
type SampleMessage struct {
	Campaign string   `json:"campaign"`
	Nodes    int      `json:"nodes"`
	Pattern  string   `json:"pattern"`
	VCs      int      `json:"vcs"`
	ConfFile string   `json:"conf_file"`
	Rate     float64  `json:"injection_rate"`
	Latency  *float64 `json:"latency"` // null for no-data samples
	Location string   `json:"location"`
}

// ResultMessage is the JSON payload published when a sweep finishes.
type ResultMessage struct {
	Campaign   string   `json:"campaign"`
	Nodes      int      `json:"nodes"`
	Pattern    string   `json:"pattern"`
	VCs        int      `json:"vcs"`
	ConfFile   string   `json:"conf_file"`
	Policy     string   `json:"policy"`
	Outcome    string   `json:"outcome"`
	Throughput *float64 `json:"throughput"`
	Baseline   float64  `json:"baseline"`
	Runs       int      `json:"runs"`
	Error      string   `json:"error,omitempty"`
}

// Publisher is a sweep.Observer publishing JSON messages, QoS 0, to
// <prefix>/<campaign>/<nodes>/<pattern>/vc-<n>/{sample,result}. Publish
// failures are logged and never stop a sweep.
type Publisher struct {
	client   client
	prefix   string
	campaign string
}

// NewPublisher connects to broker ("host:port" or a full tcp:// URL).
func NewPublisher(broker, clientID, prefix, campaign string) (*Publisher, error) {
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetKeepAlive(30 * time.Second)

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connecting to MQTT broker %s: timed out after %v", broker, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", broker, err)
	}
	logrus.Infof("Publishing progress to %s under %s/%s", broker, prefixOrDefault(prefix), campaign)
	return newPublisher(c, prefix, campaign), nil
}

func newPublisher(c client, prefix, campaign string) *Publisher {
	return &Publisher{client: c, prefix: prefixOrDefault(prefix), campaign: campaign}
}

func prefixOrDefault(prefix string) string {
	if prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(prefix, "/")
}

// Topic returns the topic for key and kind ("sample" or "result").
func (p *Publisher) Topic(key sweep.SweepKey, kind string) string {
	return fmt.Sprintf("%s/%s/%d/%s/vc-%d/%s", p.prefix, p.campaign, key.Nodes, key.Pattern, key.VCs, kind)
}

func (p *Publisher) OnSample(key sweep.SweepKey, _ sweep.RunConfig, s sweep.Sample) {
	msg := SampleMessage{
		Campaign: p.campaign,
		Nodes:    key.Nodes,
		Pattern:  key.Pattern,
		VCs:      key.VCs,
		ConfFile: key.ConfFile,
		Rate:     s.Rate,
		Location: s.Location,
	}
	if !math.IsInf(s.Latency, 0) && !math.IsNaN(s.Latency) {
		lat := s.Latency
		msg.Latency = &lat
	}
	p.publish(p.Topic(key, "sample"), msg)
}

func (p *Publisher) OnResult(r *sweep.Result) {
	msg := ResultMessage{
		Campaign: p.campaign,
		Nodes:    r.Key.Nodes,
		Pattern:  r.Key.Pattern,
		VCs:      r.Key.VCs,
		ConfFile: r.Key.ConfFile,
		Policy:   r.Policy,
		Outcome:  string(r.Outcome),
		Baseline: r.Baseline,
		Runs:     r.Iterations(),
	}
	if r.Found {
		tp := r.Throughput
		msg.Throughput = &tp
	}
	if r.Err != nil {
		msg.Error = r.Err.Error()
	}
	p.publish(p.Topic(r.Key, "result"), msg)
}

func (p *Publisher) publish(topic string, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logrus.Warnf("Encoding MQTT message for %s: %v", topic, err)
		return
	}
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		logrus.Warnf("Publishing to %s: timed out", topic)
		return
	}
	if err := token.Error(); err != nil {
		logrus.Warnf("Publishing to %s: %v", topic, err)
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
