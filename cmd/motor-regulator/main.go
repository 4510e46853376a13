// Command motor-regulator holds a DC motor at a target speed by counting
// encoder edges and switching a PWM output, streaming one telemetry line
// per control cycle.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sweeney/motor-regulator/internal/adc"
	"github.com/sweeney/motor-regulator/internal/control"
	"github.com/sweeney/motor-regulator/internal/gpio"
	"github.com/sweeney/motor-regulator/internal/logging"
	"github.com/sweeney/motor-regulator/internal/mqtt"
	"github.com/sweeney/motor-regulator/internal/pwm"
	"github.com/sweeney/motor-regulator/internal/regulator"
	"github.com/sweeney/motor-regulator/internal/serial"
	"github.com/sweeney/motor-regulator/internal/setpoint"
	"github.com/sweeney/motor-regulator/internal/status"
	"github.com/sweeney/motor-regulator/internal/telemetry"
	"github.com/sweeney/motor-regulator/internal/web"
)

const (
	flagChip          = "chip"
	flagEncoderLine   = "encoder-line"
	flagActiveLow     = "encoder-active-low"
	flagPWMPin        = "pwm-pin"
	flagPWMFreq       = "pwm-freq"
	flagSerial        = "serial"
	flagBaud          = "baud"
	flagSetpoint      = "setpoint"
	flagSetpointPoll  = "setpoint-poll"
	flagIIO           = "iio"
	flagBroker        = "broker"
	flagHTTP          = "http"
	flagHeartbeat     = "heartbeat"
	flagTimestamps    = "timestamps"
	flagDebug         = "debug"
	flagPrintState    = "print-state"
	envPrefix         = "MOTOR_"
	setpointAnalog    = "analog"
	setpointSerial    = "serial"
	setpointFixed     = "fixed"
	eventStartup      = "STARTUP"
	eventShutdown     = "SHUTDOWN"
	eventHeartbeat    = "HEARTBEAT"
	defaultBrokerAddr = "tcp://localhost:1883"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// envVar maps a flag name to its environment fallback, e.g. pwm-pin to MOTOR_PWM_PIN.
func envVar(flag string) []string {
	return []string{envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "motor-regulator",
		Usage: "closed-loop DC motor speed regulator",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagChip, Value: gpio.DefaultChip, EnvVars: envVar(flagChip), Usage: "GPIO chip carrying the encoder line"},
			&cli.IntFlag{Name: flagEncoderLine, Value: gpio.DefaultEncoderLine, EnvVars: envVar(flagEncoderLine), Usage: "GPIO line offset of the encoder input"},
			&cli.BoolFlag{Name: flagActiveLow, EnvVars: envVar(flagActiveLow), Usage: "invert the encoder input"},
			&cli.StringFlag{Name: flagPWMPin, Value: pwm.DefaultPin, EnvVars: envVar(flagPWMPin), Usage: "PWM output pin name"},
			&cli.IntFlag{Name: flagPWMFreq, Value: pwm.DefaultFrequency, EnvVars: envVar(flagPWMFreq), Usage: "PWM carrier frequency in Hz"},
			&cli.StringFlag{Name: flagSerial, EnvVars: envVar(flagSerial), Usage: "serial `DEVICE` for telemetry and setpoint input (empty writes telemetry to stdout)"},
			&cli.IntFlag{Name: flagBaud, Value: serial.DefaultBaud, EnvVars: envVar(flagBaud), Usage: "serial baud rate"},
			&cli.StringFlag{Name: flagSetpoint, Value: setpointAnalog, EnvVars: envVar(flagSetpoint), Usage: "setpoint source: analog, serial or fixed"},
			&cli.DurationFlag{Name: flagSetpointPoll, Value: 100 * time.Millisecond, EnvVars: envVar(flagSetpointPoll), Usage: "analog setpoint and status refresh interval"},
			&cli.StringFlag{Name: flagIIO, Value: adc.DefaultIIOPath, EnvVars: envVar(flagIIO), Usage: "IIO raw `FILE` for the analog setpoint"},
			&cli.StringFlag{Name: flagBroker, Value: defaultBrokerAddr, EnvVars: envVar(flagBroker), Usage: "MQTT broker address (empty to disable)"},
			&cli.StringFlag{Name: flagHTTP, Value: ":80", EnvVars: envVar(flagHTTP), Usage: "HTTP status address (empty to disable)"},
			&cli.DurationFlag{Name: flagHeartbeat, Value: 15 * time.Minute, EnvVars: envVar(flagHeartbeat), Usage: "heartbeat interval (0 to disable)"},
			&cli.BoolFlag{Name: flagTimestamps, Value: control.TimestampEnabled, EnvVars: envVar(flagTimestamps), Usage: "prefix telemetry lines with elapsed seconds"},
			&cli.BoolFlag{Name: flagDebug, EnvVars: envVar(flagDebug), Usage: "enable debug logging"},
			&cli.BoolFlag{Name: flagPrintState, Usage: "print encoder level and setpoint input, then exit"},
		},
		Action: func(c *cli.Context) error {
			opts, err := optionsFromContext(c)
			if err != nil {
				return err
			}
			logger, err := logging.New("motor-regulator", opts.debug)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync()
			return run(opts, logger)
		},
	}
}

type options struct {
	chip         string
	encoderLine  int
	activeLow    bool
	pwmPin       string
	pwmFreq      int
	serial       string
	baud         int
	setpoint     string
	setpointPoll time.Duration
	iio          string
	broker       string
	httpAddr     string
	heartbeat    time.Duration
	timestamps   bool
	debug        bool
	printState   bool
}

func optionsFromContext(c *cli.Context) (options, error) {
	opts := options{
		chip:         c.String(flagChip),
		encoderLine:  c.Int(flagEncoderLine),
		activeLow:    c.Bool(flagActiveLow),
		pwmPin:       c.String(flagPWMPin),
		pwmFreq:      c.Int(flagPWMFreq),
		serial:       c.String(flagSerial),
		baud:         c.Int(flagBaud),
		setpoint:     c.String(flagSetpoint),
		setpointPoll: c.Duration(flagSetpointPoll),
		iio:          c.String(flagIIO),
		broker:       c.String(flagBroker),
		httpAddr:     c.String(flagHTTP),
		heartbeat:    c.Duration(flagHeartbeat),
		timestamps:   c.Bool(flagTimestamps),
		debug:        c.Bool(flagDebug),
		printState:   c.Bool(flagPrintState),
	}
	return opts, opts.validate()
}

func (o options) validate() error {
	switch o.setpoint {
	case setpointAnalog, setpointFixed:
	case setpointSerial:
		if o.serial == "" {
			return fmt.Errorf("--%s=%s requires --%s", flagSetpoint, setpointSerial, flagSerial)
		}
	default:
		return fmt.Errorf("unknown setpoint source %q (want %s, %s or %s)", o.setpoint, setpointAnalog, setpointSerial, setpointFixed)
	}
	if o.setpointPoll <= 0 {
		return fmt.Errorf("--%s must be positive", flagSetpointPoll)
	}
	if o.heartbeat < 0 {
		return fmt.Errorf("--%s must not be negative", flagHeartbeat)
	}
	return nil
}

func run(opts options, logger *zap.SugaredLogger) (err error) {
	// Initialize GPIO
	encoder, err := gpio.NewRealReader(opts.chip, opts.encoderLine, opts.activeLow)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() { err = multierr.Append(err, encoder.Close()) }()

	// Print state mode
	if opts.printState {
		return printState(os.Stdout, encoder, opts.iio)
	}

	var analog *setpoint.Analog
	if opts.setpoint == setpointAnalog {
		iio, err := adc.NewIIOReader(opts.iio)
		if err != nil {
			return fmt.Errorf("init adc: %w", err)
		}
		analog = setpoint.NewAnalog(iio)
	}

	// Initialize PWM
	out, err := pwm.NewRealWriter(opts.pwmPin, opts.pwmFreq)
	if err != nil {
		return fmt.Errorf("init pwm: %w", err)
	}
	defer func() { err = multierr.Append(err, out.Close()) }()

	// Telemetry goes to the UART when one is configured, stdout otherwise
	var telemetryOut io.Writer = os.Stdout
	var lines <-chan float64
	if opts.serial != "" {
		var port serial.Port
		port, err = serial.Open(serial.Config{Device: opts.serial, Baud: opts.baud})
		if err != nil {
			return fmt.Errorf("init serial: %w", err)
		}
		defer func() { err = multierr.Append(err, port.Close()) }()
		telemetryOut = port
		if opts.setpoint == setpointSerial {
			lines = setpoint.Lines(port, logger)
		}
	}

	// Initialize MQTT. A broker that cannot be reached disables MQTT rather
	// than stopping the motor.
	var publisher *mqtt.RealPublisher
	if opts.broker != "" {
		pub, perr := mqtt.NewRealPublisher(opts.broker, logger)
		if perr != nil {
			logger.Warnw("mqtt: disabled", "broker", opts.broker, "error", perr)
		} else {
			publisher = pub
			defer publisher.Close()
		}
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		SampleHz:       control.SampleHz,
		ScheduleHz:     control.ScheduleHz,
		Divisor:        control.Divisor,
		MinAction:      control.MinAction,
		MaxAction:      control.MaxAction,
		SetpointSource: opts.setpoint,
		EncoderLine:    opts.encoderLine,
		PWMPin:         opts.pwmPin,
		PWMFreqHz:      opts.pwmFreq,
		Serial:         opts.serial,
		Timestamps:     opts.timestamps,
		HeartbeatMs:    opts.heartbeat.Milliseconds(),
		Broker:         opts.broker,
		HTTPAddr:       opts.httpAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	sinks := telemetry.Fanout{
		telemetry.NewLineWriter(telemetryOut, opts.timestamps, logger),
		tracker,
	}
	d := &daemon{tracker: tracker, analog: analog, logger: logger, now: time.Now}
	if publisher != nil {
		sinks = append(sinks, mqtt.NewSink(publisher, logger))
		d.publisher = publisher
		d.mqttStatus = publisher
	}

	cfg := regulator.DefaultConfig()
	cfg.Actuator = regulator.NewActuator(out, logger)
	cfg.Sink = sinks
	d.ctrl = regulator.New(cfg)
	tracker.Update(d.ctrl.Stats())

	// Publish startup event with full status snapshot
	d.publishSystem(eventStartup, "", true)

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorw("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Infow("http status server listening", "addr", opts.httpAddr)
	}

	logger.Infow("started",
		"encoder", fmt.Sprintf("%s/%d", opts.chip, opts.encoderLine),
		"pwm", opts.pwmPin,
		"setpoint", opts.setpoint,
		"serial", opts.serial,
		"broker", opts.broker,
		"heartbeat", opts.heartbeat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan error, 1)
	go func() {
		stopped <- d.ctrl.Run(ctx, encoder, regulator.DefaultTiming(), logger)
	}()

	poll := time.NewTicker(opts.setpointPoll)
	defer poll.Stop()

	var heartbeat <-chan time.Time
	if opts.heartbeat > 0 {
		hb := time.NewTicker(opts.heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	loopErr := d.runLoop(poll.C, lines, heartbeat, sigCh, stopped)

	// Stop the regulator; Run drives the output to the minimum action on exit
	cancel()
	if errors.Is(loopErr, errRegulatorStopped) {
		return loopErr
	}
	return multierr.Append(loopErr, <-stopped)
}

// daemon holds what the main loop touches outside the regulator's own
// contexts. publisher and mqttStatus are nil when MQTT is disabled.
type daemon struct {
	ctrl       *regulator.Controller
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	analog     *setpoint.Analog
	logger     *zap.SugaredLogger
	now        func() time.Time
}

var errRegulatorStopped = errors.New("regulator stopped")

// runLoop services setpoint input, status refresh, heartbeats and shutdown
// until a signal arrives or the regulator stops.
func (d *daemon) runLoop(poll <-chan time.Time, lines <-chan float64, heartbeat <-chan time.Time, sig <-chan os.Signal, stopped <-chan error) error {
	for {
		select {
		case s := <-sig:
			d.logger.Infow("shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			d.publishSystem(eventShutdown, signalName, true)
			return nil

		case err := <-stopped:
			return multierr.Append(errRegulatorStopped, err)

		case v, ok := <-lines:
			if !ok {
				d.logger.Warn("setpoint: serial input closed, keeping last setpoint")
				lines = nil
				continue
			}
			d.setSetpoint(v)

		case <-poll:
			if d.analog != nil {
				v, err := d.analog.Poll()
				if err != nil {
					d.logger.Debugw("setpoint: adc read error", "error", err)
				} else {
					d.setSetpoint(v)
				}
			}
			d.refresh()

		case <-heartbeat:
			stats := d.ctrl.Stats()
			d.logger.Infow("heartbeat",
				"cycles", stats.Cycles,
				"setpoint", stats.Setpoint,
				"read_errors", stats.ReadErrors,
				"write_failures", stats.WriteFailures)
			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				d.tracker.SetNetwork(net)
			}
			d.publishSystem(eventHeartbeat, "", false)
		}
	}
}

func (d *daemon) setSetpoint(v float64) {
	if v == d.ctrl.Setpoint() {
		return
	}
	d.logger.Debugw("setpoint changed", "from", d.ctrl.Setpoint(), "to", v)
	d.ctrl.SetSetpoint(v)
}

// refresh copies controller counters and MQTT state into the tracker.
func (d *daemon) refresh() {
	d.tracker.Update(d.ctrl.Stats())
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func (d *daemon) publishSystem(event, reason string, retained bool) {
	if d.publisher == nil {
		return
	}
	d.refresh()
	snap := d.tracker.Snapshot()
	err := d.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		d.logger.Warnw("failed to publish system event", "event", event, "error", err)
		return
	}
	d.logger.Infow("published system event", "event", event)
}

// readNetworkInfo reads the network state pi-helper exports. It returns nil
// when NETWORK_STATUS is unset.
func readNetworkInfo() *status.NetworkInfo {
	var info status.NetworkInfo
	if err := env.Parse(&info); err != nil || info.Status == "" {
		return nil
	}
	return &info
}

func printState(w io.Writer, encoder gpio.Reader, iioPath string) error {
	high, err := encoder.Read()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	fmt.Fprintf(w, "encoder: %s\n", levelString(high))

	iio, err := adc.NewIIOReader(iioPath)
	if err != nil {
		fmt.Fprintf(w, "setpoint: unavailable (%v)\n", err)
		return nil
	}
	raw, err := iio.Read()
	if err != nil {
		return fmt.Errorf("read adc: %w", err)
	}
	fmt.Fprintf(w, "setpoint: raw=%d mapped=%g\n", raw, setpoint.FromRaw(raw))
	return nil
}

func levelString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}
