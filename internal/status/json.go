package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Running       bool         `json:"running"`
	Setpoint      float64      `json:"setpoint"`
	Last          *CycleJSON   `json:"last_cycle,omitempty"`
	Counters      CountersJSON `json:"counters"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// CycleJSON is the JSON representation of the last control cycle.
type CycleJSON struct {
	Seq          uint64  `json:"seq"`
	ElapsedS     float64 `json:"elapsed_s"`
	Count        uint32  `json:"count"`
	Setpoint     float64 `json:"setpoint"`
	Action       int     `json:"action"`
	ScaledAction float64 `json:"scaled_action"`
}

// CountersJSON is the JSON representation of the controller counters.
type CountersJSON struct {
	Cycles        uint64 `json:"cycles"`
	PendingPulses uint32 `json:"pending_pulses"`
	ReadErrors    uint64 `json:"read_errors"`
	WriteFailures uint64 `json:"write_failures"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SampleHz       int    `json:"sample_hz"`
	ScheduleHz     int    `json:"schedule_hz"`
	Divisor        int    `json:"divisor"`
	ControlHz      int    `json:"control_hz"`
	MinAction      int    `json:"min_action"`
	MaxAction      int    `json:"max_action"`
	SetpointSource string `json:"setpoint_source"`
	EncoderLine    int    `json:"encoder_line"`
	PWMPin         string `json:"pwm_pin"`
	PWMFreqHz      int    `json:"pwm_freq_hz"`
	Serial         string `json:"serial,omitempty"`
	Timestamps     bool   `json:"timestamps"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	Broker         string `json:"broker,omitempty"`
	HTTPAddr       string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	cfg := snap.Config
	controlHz := 0
	if cfg.Divisor > 0 {
		controlHz = cfg.ScheduleHz / cfg.Divisor
	}

	inner := StatusInner{
		Running:  snap.HasCycle,
		Setpoint: snap.Stats.Setpoint,
		Counters: CountersJSON{
			Cycles:        snap.Stats.Cycles,
			PendingPulses: snap.Stats.Pending,
			ReadErrors:    snap.Stats.ReadErrors,
			WriteFailures: snap.Stats.WriteFailures,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: cfg.Broker},
		Config: ConfigJSON{
			SampleHz:       cfg.SampleHz,
			ScheduleHz:     cfg.ScheduleHz,
			Divisor:        cfg.Divisor,
			ControlHz:      controlHz,
			MinAction:      cfg.MinAction,
			MaxAction:      cfg.MaxAction,
			SetpointSource: cfg.SetpointSource,
			EncoderLine:    cfg.EncoderLine,
			PWMPin:         cfg.PWMPin,
			PWMFreqHz:      cfg.PWMFreqHz,
			Serial:         cfg.Serial,
			Timestamps:     cfg.Timestamps,
			HeartbeatMs:    cfg.HeartbeatMs,
			Broker:         cfg.Broker,
			HTTPAddr:       cfg.HTTPAddr,
		},
	}

	if snap.HasCycle {
		inner.Last = &CycleJSON{
			Seq:          snap.Last.Seq,
			ElapsedS:     snap.Last.Elapsed.Seconds(),
			Count:        snap.Last.Count,
			Setpoint:     snap.Last.Setpoint,
			Action:       snap.Last.Action,
			ScaledAction: snap.Last.ScaledAction(),
		}
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// Build returns the JSON document for the web endpoint (no event/reason).
func Build(snap Snapshot) StatusJSON {
	return StatusJSON{Status: buildInner(snap)}
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(Build(snap), "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
