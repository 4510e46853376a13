// Package status provides a thread-safe status tracker for the motor-regulator daemon.
// It is read by HTTP handlers and lifecycle events, and fed as a telemetry sink.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/motor-regulator/internal/control"
	"github.com/sweeney/motor-regulator/internal/regulator"
)

// NetworkInfo contains network state written by pi-helper to /run/pi-helper.env.
type NetworkInfo struct {
	Type       string `env:"NETWORK_TYPE"`
	IP         string `env:"NETWORK_IP"`
	Status     string `env:"NETWORK_STATUS"`
	Gateway    string `env:"NETWORK_GATEWAY"`
	WifiStatus string `env:"NETWORK_WIFI_STATUS"`
	SSID       string `env:"NETWORK_WIFI_SSID"`
}

// Config contains daemon configuration for display.
type Config struct {
	SampleHz       int
	ScheduleHz     int
	Divisor        int
	MinAction      int
	MaxAction      int
	SetpointSource string
	EncoderLine    int
	PWMPin         string
	PWMFreqHz      int
	Serial         string
	Timestamps     bool
	HeartbeatMs    int64
	Broker         string
	HTTPAddr       string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Last          control.Cycle
	HasCycle      bool
	Stats         regulator.Stats
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Emit records the latest control cycle. Called from the scheduler goroutine.
func (t *Tracker) Emit(c control.Cycle) {
	t.mu.Lock()
	t.snap.Last = c
	t.snap.HasCycle = true
	t.mu.Unlock()
}

// Update sets the controller counters. Called from runLoop.
func (t *Tracker) Update(stats regulator.Stats) {
	t.mu.Lock()
	t.snap.Stats = stats
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
