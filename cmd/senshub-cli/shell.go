package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chzyer/readline"

	"github.com/senshub-protocol/senshub-go/pkg/discovery"
	"github.com/senshub-protocol/senshub-go/pkg/hubclient"
	"github.com/senshub-protocol/senshub-go/pkg/model"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// Shell is the interactive command loop around a hub client.
type Shell struct {
	client *hubclient.Client
	rl     *readline.Instance

	// lastFound holds the result of the most recent find command, so
	// later commands can reference sensors as #0, #1, ...
	lastFound []wire.SUID

	// watching controls whether forwarded events are printed. Events
	// arrive on the transport reader goroutine, so this is atomic.
	watching atomic.Bool
}

// NewShell creates the readline-backed shell.
func NewShell() (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "senshub> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{rl: rl}, nil
}

// handleEvent prints forwarded sensor events while watching is on. It
// runs on the transport reader goroutine; readline's Stdout coordinates
// output with the prompt.
func (s *Shell) handleEvent(sensorType model.SensorType, event any) {
	if !s.watching.Load() {
		return
	}

	switch e := event.(type) {
	case *wire.SampleEvent:
		fmt.Fprintf(s.rl.Stdout(), "[%s] sample t=%d values=%v\n", sensorType, e.Timestamp, e.Values)
	case *wire.BiasEvent:
		fmt.Fprintf(s.rl.Stdout(), "[%s] bias t=%d bias=%v accuracy=%d\n", sensorType, e.Timestamp, e.Bias, e.Accuracy)
	case *wire.ConfigEvent:
		fmt.Fprintf(s.rl.Stdout(), "[%s] config enabled=%v rate=%.1fHz batch=%dus\n", sensorType, e.Enabled, e.SampleRateHz, e.BatchPeriodUs)
	default:
		fmt.Fprintf(s.rl.Stdout(), "[%s] %T %+v\n", sensorType, event, event)
	}
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "hubs":
			s.cmdHubs(ctx)

		case "find", "f":
			s.cmdFind(ctx, args)

		case "attrs", "a":
			s.cmdAttrs(ctx, args)

		case "register", "reg":
			s.cmdRegister(ctx, args)

		case "configure", "cfg":
			s.cmdConfigure(ctx, args)

		case "sensors", "ls":
			s.cmdSensors()

		case "watch", "w":
			s.cmdWatch(args)

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
Sensor Hub Commands:
  Discovery:
    hubs                 - Browse for hubs on the local network (mDNS)
    find <datatype>      - Ask the hub which sensors serve a data type
                           (accel, gyro, mag, pressure, ambient_light,
                           proximity, accel_cal, gyro_cal, mag_cal)

  Sensors:
    attrs <suid|#n>      - Query a sensor's attributes
    register <type> <suid|#n>
                         - Bind a logical type to a sensor
    configure <type> on [rate-hz [batch-us]]
    configure <type> off - Change a registered sensor's operating point
    sensors              - List registered sensors

  Events:
    watch on|off         - Print forwarded sensor events

  Other:
    help                 - Show this help
    quit                 - Exit

  <type> is a data type name; #n refers to the n-th result of the last
  find command.`)
}

// cmdHubs browses mDNS for hubs on the local network.
func (s *Shell) cmdHubs(ctx context.Context) {
	browser, err := discovery.NewMDNSBrowser(discovery.BrowserConfig{})
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Browse failed: %v\n", err)
		return
	}

	fmt.Fprintln(s.rl.Stdout(), "Browsing for hubs (3s)...")
	hubs, err := browser.FindHubs(ctx, 3*time.Second)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Browse failed: %v\n", err)
		return
	}
	if len(hubs) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No hubs found.")
		return
	}
	for _, hub := range hubs {
		fmt.Fprintf(s.rl.Stdout(), "  %s (id %s, version %s, %d sensors) at %v port %d\n",
			hub.InstanceName, hub.HubID, hub.Version, hub.SensorCount, hub.Addresses, hub.Port)
	}
}

// cmdFind runs sensor discovery for one data type.
func (s *Shell) cmdFind(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: find <datatype>")
		return
	}

	suids, err := s.client.FindSensors(ctx, args[0])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Find failed: %v\n", err)
		return
	}

	s.lastFound = suids
	if len(suids) == 0 {
		fmt.Fprintf(s.rl.Stdout(), "No sensors serve %q.\n", args[0])
		return
	}
	for i, suid := range suids {
		fmt.Fprintf(s.rl.Stdout(), "  #%d  %s\n", i, suid)
	}
}

// cmdAttrs queries one sensor's attributes.
func (s *Shell) cmdAttrs(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: attrs <suid|#n>")
		return
	}

	suid, err := s.parseSuidArg(args[0])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "%v\n", err)
		return
	}

	attrs, err := s.client.Attributes(ctx, suid)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Query failed: %v\n", err)
		return
	}

	fmt.Fprintf(s.rl.Stdout(), "  Vendor:   %s\n", attrs.Vendor)
	fmt.Fprintf(s.rl.Stdout(), "  Name:     %s\n", attrs.Name)
	fmt.Fprintf(s.rl.Stdout(), "  Type:     %s\n", attrs.Type)
	fmt.Fprintf(s.rl.Stdout(), "  Max rate: %.1f Hz\n", attrs.MaxSampleRate)
	fmt.Fprintf(s.rl.Stdout(), "  Stream:   %s\n", attrs.StreamType)
	if attrs.Passive {
		fmt.Fprintln(s.rl.Stdout(), "  Passive:  yes")
	}
}

// cmdRegister binds a logical type to a sensor.
func (s *Shell) cmdRegister(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: register <type> <suid|#n>")
		return
	}

	sensorType, err := parseSensorType(args[0])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "%v\n", err)
		return
	}
	suid, err := s.parseSuidArg(args[1])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "%v\n", err)
		return
	}

	already, err := s.client.Register(ctx, sensorType, suid)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Register failed: %v\n", err)
		return
	}
	if already {
		fmt.Fprintf(s.rl.Stdout(), "%s was already registered to %s.\n", sensorType, suid)
	} else {
		fmt.Fprintf(s.rl.Stdout(), "Registered %s to %s.\n", sensorType, suid)
	}
}

// cmdConfigure changes a registered sensor's operating point.
func (s *Shell) cmdConfigure(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: configure <type> on [rate-hz [batch-us]] | configure <type> off")
		return
	}

	sensorType, err := parseSensorType(args[0])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "%v\n", err)
		return
	}

	req := model.SensorRequest{SensorType: sensorType}
	switch strings.ToLower(args[1]) {
	case "on":
		req.Enable = true
	case "off":
		req.Enable = false
	default:
		fmt.Fprintln(s.rl.Stdout(), "Second argument must be 'on' or 'off'.")
		return
	}

	if len(args) > 2 {
		rate, err := strconv.ParseFloat(args[2], 32)
		if err != nil {
			fmt.Fprintf(s.rl.Stdout(), "Invalid rate: %v\n", err)
			return
		}
		req.SampleRateHz = float32(rate)
	}
	if len(args) > 3 {
		batch, err := strconv.ParseUint(args[3], 10, 32)
		if err != nil {
			fmt.Fprintf(s.rl.Stdout(), "Invalid batch period: %v\n", err)
			return
		}
		req.BatchPeriodUs = uint32(batch)
	}

	if err := s.client.Configure(ctx, req); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Configure failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "Configuration accepted.")
}

// cmdSensors lists the registered sensors.
func (s *Shell) cmdSensors() {
	entries := s.client.Sensors()
	if len(entries) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No sensors registered.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(s.rl.Stdout(), "  %-14s %s\n", e.SensorType, e.Suid)
	}
}

// cmdWatch toggles event printing.
func (s *Shell) cmdWatch(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: watch on|off")
		return
	}
	switch strings.ToLower(args[0]) {
	case "on":
		s.watching.Store(true)
		fmt.Fprintln(s.rl.Stdout(), "Watching events.")
	case "off":
		s.watching.Store(false)
		fmt.Fprintln(s.rl.Stdout(), "Stopped watching.")
	default:
		fmt.Fprintln(s.rl.Stdout(), "Usage: watch on|off")
	}
}

// parseSuidArg resolves a SUID argument: either the hex form printed by
// find, or #n referring to the last find result.
func (s *Shell) parseSuidArg(arg string) (wire.SUID, error) {
	if strings.HasPrefix(arg, "#") {
		n, err := strconv.Atoi(arg[1:])
		if err != nil || n < 0 || n >= len(s.lastFound) {
			return wire.SUID{}, fmt.Errorf("no such find result: %s", arg)
		}
		return s.lastFound[n], nil
	}
	return wire.ParseSUID(arg)
}

// parseSensorType resolves a data type name to its sensor type.
func parseSensorType(arg string) (model.SensorType, error) {
	sensorType := model.SensorTypeFromDataType(strings.ToLower(arg))
	if sensorType == model.SensorTypeUnknown {
		return sensorType, fmt.Errorf("unknown sensor type %q (use a data type name, e.g. accel)", arg)
	}
	return sensorType, nil
}
