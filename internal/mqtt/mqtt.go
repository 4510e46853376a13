// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/motor-regulator/internal/control"
)

// Topic is the MQTT topic for per-cycle telemetry.
const Topic = "motor/regulator/telemetry"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "motor/regulator/system"

// Publisher publishes to MQTT.
type Publisher interface {
	// Publish sends one control cycle. It must not wait for the broker:
	// when disconnected the cycle is dropped and an error returned.
	Publish(c control.Cycle) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the telemetry message payload structure.
type Payload struct {
	Telemetry TelemetryPayload `json:"telemetry"`
}

// TelemetryPayload contains one control cycle.
type TelemetryPayload struct {
	Seq          uint64  `json:"seq"`
	ElapsedS     float64 `json:"elapsed_s"`
	Count        uint32  `json:"count"`
	Setpoint     float64 `json:"setpoint"`
	Action       int     `json:"action"`
	ScaledAction float64 `json:"scaled_action"`
}

// FormatPayload creates the JSON payload for a control cycle.
func FormatPayload(c control.Cycle) ([]byte, error) {
	payload := Payload{
		Telemetry: TelemetryPayload{
			Seq:          c.Seq,
			ElapsedS:     c.Elapsed.Seconds(),
			Count:        c.Count,
			Setpoint:     c.Setpoint,
			Action:       c.Action,
			ScaledAction: c.ScaledAction(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Sink adapts a Publisher to a telemetry sink. Publish errors are dropped.
type Sink struct {
	pub    Publisher
	logger *zap.SugaredLogger
}

// NewSink creates a Sink over pub.
func NewSink(pub Publisher, logger *zap.SugaredLogger) *Sink {
	return &Sink{pub: pub, logger: logger}
}

// Emit implements telemetry.Sink.
func (s *Sink) Emit(c control.Cycle) {
	if err := s.pub.Publish(c); err != nil {
		s.logger.Debugw("mqtt: telemetry dropped", "seq", c.Seq, "error", err)
	}
}
