package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"example.com/medipi/hub/config"
	"example.com/medipi/hub/internal/models"
	"example.com/medipi/hub/internal/service"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

const (
	topicDiscovery = "medipi/discovery/#"
	topicStatus    = "medipi/dispensers/+/status"
	topicLog       = "medipi/dispensers/+/log"

	handlerTimeout = 10 * time.Second
)

// DiscoveredDispenser is a device seen on the discovery topic that may not
// be registered yet.
type DiscoveredDispenser struct {
	SerialNumber string    `json:"serialNumber"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	Firmware     string    `json:"firmware,omitempty"`
	LastSeen     time.Time `json:"lastSeen"`
	Registered   bool      `json:"registered"`
}

// statusReport is the payload devices publish on their status topic
type statusReport struct {
	Status string `json:"status"`
}

// discoveryAnnouncement is the payload devices publish when they join the network
type discoveryAnnouncement struct {
	SerialNumber string `json:"serialNumber"`
	IPAddress    string `json:"ipAddress"`
	Firmware     string `json:"firmware"`
}

// MQTTBridge connects the hub to the device broker. It tracks discovery
// announcements, applies status reports, and feeds dispense logs into the
// ingestion queue.
type MQTTBridge struct {
	client  mqtt.Client
	service service.Service
	log     *logrus.Logger

	mu         sync.RWMutex
	discovered map[string]*DiscoveredDispenser
}

// NewMQTTBridge connects to the broker and subscribes to the device topics
func NewMQTTBridge(cfg config.MQTTConfig, svc service.Service, log *logrus.Logger) (*MQTTBridge, error) {
	bridge := &MQTTBridge{
		service:    svc,
		log:        log,
		discovered: make(map[string]*DiscoveredDispenser),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("MQTT connection lost")
	})
	// Subscriptions live in the connect handler so they survive reconnects
	// with a clean session.
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info("Connected to MQTT broker")
		bridge.subscribe(client)
	})

	bridge.client = mqtt.NewClient(opts)
	if token := bridge.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return bridge, nil
}

func (b *MQTTBridge) subscribe(client mqtt.Client) {
	subscriptions := map[string]mqtt.MessageHandler{
		topicDiscovery: b.handleDiscovery,
		topicStatus:    b.handleStatus,
		topicLog:       b.handleLog,
	}

	for topic, handler := range subscriptions {
		if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			b.log.WithError(token.Error()).WithField("topic", topic).
				Error("Failed to subscribe to MQTT topic")
		}
	}
}

// Close disconnects from the broker
func (b *MQTTBridge) Close() {
	b.client.Disconnect(250)
}

// Discovered returns a snapshot of the devices seen on the discovery topic
func (b *MQTTBridge) Discovered() []*DiscoveredDispenser {
	b.mu.RLock()
	defer b.mu.RUnlock()

	devices := make([]*DiscoveredDispenser, 0, len(b.discovered))
	for _, d := range b.discovered {
		snapshot := *d
		devices = append(devices, &snapshot)
	}
	return devices
}

// MarkRegistered flags a discovered device as registered in the fleet
func (b *MQTTBridge) MarkRegistered(serialNumber string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if d, ok := b.discovered[serialNumber]; ok {
		d.Registered = true
	}
}

func (b *MQTTBridge) handleDiscovery(_ mqtt.Client, msg mqtt.Message) {
	var announcement discoveryAnnouncement
	if err := json.Unmarshal(msg.Payload(), &announcement); err != nil {
		b.log.WithError(err).WithField("topic", msg.Topic()).
			Warn("Malformed discovery announcement")
		return
	}

	serial := announcement.SerialNumber
	if serial == "" {
		serial = serialFromTopic(msg.Topic())
	}
	if serial == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	registered := false
	if _, err := b.service.GetDispenserBySerial(ctx, serial); err == nil {
		registered = true
	}

	b.mu.Lock()
	b.discovered[serial] = &DiscoveredDispenser{
		SerialNumber: serial,
		IPAddress:    announcement.IPAddress,
		Firmware:     announcement.Firmware,
		LastSeen:     time.Now(),
		Registered:   registered,
	}
	b.mu.Unlock()

	b.log.WithField("serial_number", serial).Debug("Dispenser discovered")
}

func (b *MQTTBridge) handleStatus(_ mqtt.Client, msg mqtt.Message) {
	serial := serialFromTopic(msg.Topic())
	if serial == "" {
		return
	}

	var report statusReport
	if err := json.Unmarshal(msg.Payload(), &report); err != nil {
		// Devices may publish the bare status string as well
		report.Status = strings.TrimSpace(string(msg.Payload()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	status := models.DispenserStatus(strings.ToUpper(report.Status))
	if err := b.service.MarkDispenserSeen(ctx, serial, status); err != nil {
		b.log.WithError(err).WithField("serial_number", serial).
			Warn("Failed to apply dispenser status report")
	}
}

func (b *MQTTBridge) handleLog(_ mqtt.Client, msg mqtt.Message) {
	serial := serialFromTopic(msg.Topic())
	if serial == "" {
		return
	}

	var entry service.DispenseLogEntry
	if err := json.Unmarshal(msg.Payload(), &entry); err != nil {
		b.log.WithError(err).WithField("serial_number", serial).
			Warn("Malformed dispense log payload")
		return
	}
	entry.SerialNumber = serial

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := b.service.IngestDispenseLog(ctx, &entry); err != nil {
		b.log.WithError(err).WithField("serial_number", serial).
			Warn("Failed to enqueue dispense log")
	}
}

// serialFromTopic extracts the serial segment from medipi/dispensers/{serial}/...
// and medipi/discovery/{serial} topics.
func serialFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}
