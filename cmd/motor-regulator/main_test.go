package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zaptest"

	"github.com/sweeney/motor-regulator/internal/adc"
	"github.com/sweeney/motor-regulator/internal/control"
	"github.com/sweeney/motor-regulator/internal/gpio"
	"github.com/sweeney/motor-regulator/internal/mqtt"
	"github.com/sweeney/motor-regulator/internal/pwm"
	"github.com/sweeney/motor-regulator/internal/regulator"
	"github.com/sweeney/motor-regulator/internal/setpoint"
	"github.com/sweeney/motor-regulator/internal/status"
	"github.com/sweeney/motor-regulator/internal/telemetry"
)

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv("NETWORK_TYPE", "wifi")
	t.Setenv("NETWORK_IP", "192.168.1.100")
	t.Setenv("NETWORK_STATUS", "connected")
	t.Setenv("NETWORK_GATEWAY", "192.168.1.1")
	t.Setenv("NETWORK_WIFI_STATUS", "connected")
	t.Setenv("NETWORK_WIFI_SSID", "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv("NETWORK_STATUS", "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv("NETWORK_STATUS", "connected")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q, want %q", info.Status, "connected")
	}
}

func TestEnvVar(t *testing.T) {
	cases := map[string]string{
		flagPWMPin:       "MOTOR_PWM_PIN",
		flagEncoderLine:  "MOTOR_ENCODER_LINE",
		flagSetpointPoll: "MOTOR_SETPOINT_POLL",
		flagBroker:       "MOTOR_BROKER",
	}
	for flag, want := range cases {
		if got := envVar(flag); len(got) != 1 || got[0] != want {
			t.Errorf("envVar(%q): got %v, want [%s]", flag, got, want)
		}
	}
}

// parseArgs runs the app with its Action replaced so only flag parsing runs.
func parseArgs(t *testing.T, args ...string) (options, error) {
	t.Helper()
	var opts options
	app := newApp()
	app.Action = func(c *cli.Context) error {
		var err error
		opts, err = optionsFromContext(c)
		return err
	}
	err := app.Run(append([]string{"motor-regulator"}, args...))
	return opts, err
}

func TestFlagDefaults(t *testing.T) {
	opts, err := parseArgs(t)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.encoderLine != gpio.DefaultEncoderLine {
		t.Errorf("encoderLine: got %d, want %d", opts.encoderLine, gpio.DefaultEncoderLine)
	}
	if opts.pwmPin != pwm.DefaultPin {
		t.Errorf("pwmPin: got %q, want %q", opts.pwmPin, pwm.DefaultPin)
	}
	if opts.setpoint != setpointAnalog {
		t.Errorf("setpoint: got %q, want %q", opts.setpoint, setpointAnalog)
	}
	if opts.timestamps != control.TimestampEnabled {
		t.Errorf("timestamps: got %v, want %v", opts.timestamps, control.TimestampEnabled)
	}
	if opts.heartbeat != 15*time.Minute {
		t.Errorf("heartbeat: got %v, want 15m", opts.heartbeat)
	}
}

func TestFlagsFromEnvironment(t *testing.T) {
	t.Setenv("MOTOR_PWM_PIN", "GPIO13")
	t.Setenv("MOTOR_SETPOINT", "fixed")

	opts, err := parseArgs(t, "--encoder-line", "27")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.pwmPin != "GPIO13" {
		t.Errorf("pwmPin: got %q, want GPIO13", opts.pwmPin)
	}
	if opts.setpoint != setpointFixed {
		t.Errorf("setpoint: got %q, want fixed", opts.setpoint)
	}
	if opts.encoderLine != 27 {
		t.Errorf("encoderLine: got %d, want 27", opts.encoderLine)
	}
}

func TestOptionsValidate(t *testing.T) {
	if _, err := parseArgs(t, "--setpoint", "knob"); err == nil {
		t.Error("expected error for unknown setpoint source")
	}
	if _, err := parseArgs(t, "--setpoint", "serial"); err == nil {
		t.Error("expected error for serial setpoint without --serial")
	}
	if _, err := parseArgs(t, "--setpoint", "serial", "--serial", "/dev/ttyAMA0"); err != nil {
		t.Errorf("serial setpoint with device: %v", err)
	}
	if _, err := parseArgs(t, "--setpoint-poll", "0s"); err == nil {
		t.Error("expected error for zero poll interval")
	}
}

// --- runLoop tests ---

type loopHarness struct {
	d       *daemon
	pub     *mqtt.FakePublisher
	out     *pwm.FakeWriter
	adc     *adc.FakeReader
	poll    chan time.Time
	lines   chan float64
	hb      chan time.Time
	sig     chan os.Signal
	stopped chan error
	done    chan error
}

func newLoopHarness(t *testing.T, withMQTT bool) *loopHarness {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()

	h := &loopHarness{
		out:     pwm.NewFakeWriter(),
		adc:     adc.NewFakeReader(0),
		poll:    make(chan time.Time),
		lines:   make(chan float64),
		hb:      make(chan time.Time),
		sig:     make(chan os.Signal),
		stopped: make(chan error, 1),
		done:    make(chan error, 1),
	}

	tracker := status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{
		ScheduleHz: control.ScheduleHz,
		Divisor:    control.Divisor,
	})
	cfg := regulator.DefaultConfig()
	cfg.Clock = clock.NewMock()
	cfg.Actuator = regulator.NewActuator(h.out, logger)
	cfg.Sink = telemetry.Fanout{tracker}

	h.d = &daemon{
		ctrl:    regulator.New(cfg),
		tracker: tracker,
		analog:  setpoint.NewAnalog(h.adc),
		logger:  logger,
		now:     func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
	if withMQTT {
		h.pub = mqtt.NewFakePublisher()
		h.pub.Connected = true
		h.d.publisher = h.pub
		h.d.mqttStatus = h.pub
	}
	return h
}

func (h *loopHarness) start() {
	go func() {
		h.done <- h.d.runLoop(h.poll, h.lines, h.hb, h.sig, h.stopped)
	}()
}

func (h *loopHarness) shutdown(t *testing.T, s os.Signal) {
	t.Helper()
	h.sig <- s
	select {
	case err := <-h.done:
		if err != nil {
			t.Fatalf("runLoop: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runLoop did not return")
	}
}

func TestRunLoopShutdownPublishesEvent(t *testing.T) {
	h := newLoopHarness(t, true)
	h.start()
	h.shutdown(t, syscall.SIGTERM)

	_, events := h.pub.Snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(events))
	}
	ev := events[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" || !ev.Retained {
		t.Errorf("unexpected event: %+v", ev)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(ev.RawPayload, &parsed); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("payload event/reason: got %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("expected mqtt connected in payload")
	}
}

func TestRunLoopShutdownSIGINT(t *testing.T) {
	h := newLoopHarness(t, true)
	h.start()
	h.shutdown(t, syscall.SIGINT)

	_, events := h.pub.Snapshot()
	if len(events) != 1 || events[0].Reason != "SIGINT" {
		t.Fatalf("expected SIGINT shutdown event, got %+v", events)
	}
}

func TestRunLoopSerialSetpoint(t *testing.T) {
	h := newLoopHarness(t, false)
	h.d.analog = nil
	h.start()

	h.lines <- 35
	h.shutdown(t, syscall.SIGTERM)

	if got := h.d.ctrl.Setpoint(); got != 35 {
		t.Errorf("setpoint: got %v, want 35", got)
	}
}

func TestRunLoopSerialInputClosed(t *testing.T) {
	h := newLoopHarness(t, false)
	h.d.analog = nil
	h.start()

	h.lines <- 10
	close(h.lines)
	// The loop must keep serving other channels after the input closes.
	h.poll <- time.Now()
	h.shutdown(t, syscall.SIGTERM)

	if got := h.d.ctrl.Setpoint(); got != 10 {
		t.Errorf("setpoint: got %v, want 10", got)
	}
}

func TestRunLoopAnalogPoll(t *testing.T) {
	h := newLoopHarness(t, false)
	h.adc.Set(1023)
	h.start()

	h.poll <- time.Now()
	h.shutdown(t, syscall.SIGTERM)

	if got := h.d.ctrl.Setpoint(); got != control.SetpointRangeMax {
		t.Errorf("setpoint: got %v, want %d", got, control.SetpointRangeMax)
	}
	if got := h.d.tracker.Snapshot().Stats.Setpoint; got != control.SetpointRangeMax {
		t.Errorf("tracker setpoint: got %v, want %d", got, control.SetpointRangeMax)
	}
}

func TestRunLoopAnalogErrorKeepsSetpoint(t *testing.T) {
	h := newLoopHarness(t, false)
	h.adc.SetError(errors.New("iio gone"))
	h.start()

	h.poll <- time.Now()
	h.shutdown(t, syscall.SIGTERM)

	if got := h.d.ctrl.Setpoint(); got != control.InitialSetpoint {
		t.Errorf("setpoint: got %v, want %v", got, control.InitialSetpoint)
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	h := newLoopHarness(t, true)
	h.start()

	h.hb <- time.Now()
	h.shutdown(t, syscall.SIGTERM)

	_, events := h.pub.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected heartbeat + shutdown, got %d events", len(events))
	}
	if events[0].Event != "HEARTBEAT" {
		t.Errorf("first event: got %q, want HEARTBEAT", events[0].Event)
	}
	if events[0].Retained {
		t.Error("heartbeat should not be retained")
	}
}

func TestRunLoopPublishErrorDoesNotStop(t *testing.T) {
	h := newLoopHarness(t, true)
	h.pub.PublishSystemError = errors.New("broker down")
	h.start()

	h.hb <- time.Now()
	h.lines <- 40
	h.shutdown(t, syscall.SIGTERM)

	if got := h.d.ctrl.Setpoint(); got != 40 {
		t.Errorf("setpoint: got %v, want 40", got)
	}
}

func TestRunLoopWithoutMQTT(t *testing.T) {
	h := newLoopHarness(t, false)
	h.start()

	h.hb <- time.Now()
	h.poll <- time.Now()
	h.shutdown(t, syscall.SIGTERM)
}

func TestRunLoopRegulatorStopped(t *testing.T) {
	h := newLoopHarness(t, false)
	h.start()

	h.stopped <- errors.New("boom")
	select {
	case err := <-h.done:
		if !errors.Is(err, errRegulatorStopped) {
			t.Errorf("expected errRegulatorStopped, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runLoop did not return")
	}
}

func TestPrintState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in_voltage0_raw")
	if err := os.WriteFile(path, []byte("512\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := printState(&buf, gpio.NewFakeReader([]bool{true}), path); err != nil {
		t.Fatalf("printState: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "encoder: HIGH") {
		t.Errorf("missing encoder level in %q", out)
	}
	if !strings.Contains(out, "raw=512 mapped=25") {
		t.Errorf("missing setpoint in %q", out)
	}
}

func TestPrintStateWithoutADC(t *testing.T) {
	var buf bytes.Buffer
	err := printState(&buf, gpio.NewFakeReader([]bool{false}), filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("printState: %v", err)
	}
	if !strings.Contains(buf.String(), "encoder: LOW") {
		t.Errorf("missing encoder level in %q", buf.String())
	}
	if !strings.Contains(buf.String(), "setpoint: unavailable") {
		t.Errorf("expected unavailable setpoint in %q", buf.String())
	}
}

func TestPrintStateReadError(t *testing.T) {
	r := gpio.NewFakeReader([]bool{true})
	r.ReadError = errors.New("line busy")
	if err := printState(&bytes.Buffer{}, r, ""); err == nil {
		t.Error("expected error when the encoder read fails")
	}
}
