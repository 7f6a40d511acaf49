package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremqtt "github.com/kilianp07/repairsched/core/mqtt"
	"github.com/kilianp07/repairsched/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	// AckTimeoutSeconds is how long to wait for each repairer acknowledgment.
	// Zero publishes without waiting.
	AckTimeoutSeconds int             `json:"ack_timeout_seconds"`
	UseTLS            bool            `json:"use_tls"`
	ClientCert        string          `json:"client_cert"`
	ClientKey         string          `json:"client_key"`
	CABundle          string          `json:"ca_bundle"`
	AuthMethod        string          `json:"auth_method"`
	QoS               map[string]byte `json:"qos"`
	LWTTopic          string          `json:"lwt_topic"`
	LWTPayload        string          `json:"lwt_payload"`
	LWTQoS            byte            `json:"lwt_qos"`
	LWTRetain         bool            `json:"lwt_retain"`
	MaxRetries        int             `json:"max_retries"`
	BackoffMS         int             `json:"backoff_ms"`
	TLSConfig         *tls.Config     `json:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "repairsched"
	}
	if c.ClientID == "" {
		c.ClientID = "repairsched"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
}

// Validate checks mandatory fields when publishing is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return errors.New("publish broker is required")
	}
	if c.AckTimeoutSeconds < 0 || c.MaxRetries < 0 || c.BackoffMS < 0 {
		return errors.New("publish timeouts and retries must not be negative")
	}
	for name, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("qos %s must be 0, 1 or 2", name)
		}
	}
	return nil
}

// AckTimeout returns the acknowledgment timeout.
func (c Config) AckTimeout() time.Duration {
	return time.Duration(c.AckTimeoutSeconds) * time.Second
}

// ShipmentTopic is the topic a repairer listens on for shipment orders.
func ShipmentTopic(prefix string, repairerID int) string {
	return fmt.Sprintf("%s/repairer/%d/shipment", strings.TrimSuffix(prefix, "/"), repairerID)
}

// AckTopic matches the acknowledgments of every repairer.
func AckTopic(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/repairer/+/ack"
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient implements the Publisher interface using Eclipse Paho.
type PahoClient struct {
	cli    pahoClient
	prefix string
	qos    map[string]byte

	mu         sync.Mutex
	ackChans   map[string]chan struct{}
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the
// acknowledgment topic.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_publisher")
	pc := &PahoClient{
		prefix:     cfg.TopicPrefix,
		ackChans:   make(map[string]chan struct{}),
		logger:     log,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(AckTopic(pc.prefix), pc.qosFor("ack"), pc.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, token.Error())
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

func (p *PahoClient) onAck(_ paho.Client, msg paho.Message) {
	var m struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		p.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.ackChans[m.OrderID]; ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		p.logger.Infof("received ack %s", m.OrderID)
	}
}

// PublishShipment sends the order to the repairer topic and returns the order
// identifier used for acknowledgment tracking. An empty OrderID is filled
// with a new UUID.
func (p *PahoClient) PublishShipment(order coremqtt.ShipmentOrder) (string, error) {
	if order.OrderID == "" {
		order.OrderID = uuid.NewString()
	}
	if order.Timestamp == 0 {
		order.Timestamp = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return "", err
	}

	// registered before publishing so a fast ack is not lost
	p.mu.Lock()
	p.ackChans[order.OrderID] = make(chan struct{}, 1)
	p.mu.Unlock()

	topic := ShipmentTopic(p.prefix, order.RepairerID)
	qos := p.qosFor("shipment")
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Infof("sent order %s to %s", order.OrderID, topic)
			return order.OrderID, nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	p.mu.Lock()
	delete(p.ackChans, order.OrderID)
	p.mu.Unlock()
	return "", fmt.Errorf("publish order to repairer %d: %w", order.RepairerID, publishErr)
}

// WaitForAck blocks until an ACK for the given order is received or timeout.
func (p *PahoClient) WaitForAck(orderID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	ch := p.ackChans[orderID]
	p.mu.Unlock()
	if ch == nil {
		return false, coremqtt.ErrUnknownOrder
	}
	defer func() {
		p.mu.Lock()
		delete(p.ackChans, orderID)
		p.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true, nil
	case <-timer.C:
		return false, fmt.Errorf("order %s: %w", orderID, coremqtt.ErrAckTimeout)
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
