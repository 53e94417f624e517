// Command senshub-sim is a reference sensor hub implementation.
//
// It hosts a roster of simulated sensors behind the hub protocol and
// serves clients over framed TCP, with:
//   - CLI argument parsing
//   - YAML roster configuration
//   - mDNS discovery advertising
//   - Prometheus metrics endpoint
//   - Protocol trace capture
//
// Usage:
//
//	senshub-sim [flags]
//
// Flags:
//
//	-listen string     Listen address (default ":8462")
//	-config string     YAML sensor roster path (default roster if empty)
//	-name string       Hub name advertised over mDNS (default "senshub-sim")
//	-advertise         Advertise the hub over mDNS (default true)
//	-metrics string    Prometheus listen address (disabled if empty)
//	-trace string      Protocol trace file path (.shlog, disabled if empty)
//	-log-level string  Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Start with the built-in IMU roster
//	senshub-sim
//
//	# Start with a custom roster and metrics
//	senshub-sim -config roster.yaml -metrics :9090 -log-level debug
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/senshub-protocol/senshub-go/pkg/discovery"
	"github.com/senshub-protocol/senshub-go/pkg/hubsim"
	"github.com/senshub-protocol/senshub-go/pkg/metrics"
	"github.com/senshub-protocol/senshub-go/pkg/model"
	"github.com/senshub-protocol/senshub-go/pkg/trace"
)

// Config holds the simulator configuration.
type Config struct {
	Listen     string
	ConfigFile string
	Name       string
	Advertise  bool
	Metrics    string
	TraceFile  string
	LogLevel   string
}

var config Config

func init() {
	flag.StringVar(&config.Listen, "listen", fmt.Sprintf(":%d", discovery.DefaultPort), "Listen address")
	flag.StringVar(&config.ConfigFile, "config", "", "YAML sensor roster path (default roster if empty)")
	flag.StringVar(&config.Name, "name", "senshub-sim", "Hub name advertised over mDNS")
	flag.BoolVar(&config.Advertise, "advertise", true, "Advertise the hub over mDNS")
	flag.StringVar(&config.Metrics, "metrics", "", "Prometheus listen address (disabled if empty)")
	flag.StringVar(&config.TraceFile, "trace", "", "Protocol trace file path (disabled if empty)")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	logger := newLogger(config.LogLevel)

	sensors, err := loadSensors()
	if err != nil {
		logger.Error("failed to load roster", "error", err)
		os.Exit(1)
	}

	var tracer trace.Logger
	if config.TraceFile != "" {
		fileLogger, err := trace.NewFileLogger(config.TraceFile)
		if err != nil {
			logger.Error("failed to open trace file", "error", err)
			os.Exit(1)
		}
		defer fileLogger.Close()
		tracer = fileLogger
	}

	var hubMetrics *metrics.HubMetrics
	if config.Metrics != "" {
		registry := prometheus.NewRegistry()
		hubMetrics = metrics.NewHubMetrics(registry)
		go serveMetrics(logger, registry)
	}

	hub := hubsim.New(hubsim.Config{
		Logger:  logger,
		Trace:   tracer,
		Metrics: hubMetrics,
	})
	for _, s := range sensors {
		suid := hub.AddSensor(s)
		logger.Info("hosting sensor", "dataType", s.DataType, "name", s.Name, "suid", suid.String())
	}

	if err := hub.Start(config.Listen); err != nil {
		logger.Error("failed to start hub", "error", err)
		os.Exit(1)
	}
	logger.Info("hub listening", "address", hub.Addr().String())

	if config.Advertise {
		stopAdvertising := advertise(logger, hub)
		defer stopAdvertising()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	if err := hub.Close(); err != nil {
		logger.Error("error closing hub", "error", err)
	}
}

// loadSensors reads the configured roster, or builds the default IMU
// roster when no config file is given.
func loadSensors() ([]hubsim.Sensor, error) {
	if config.ConfigFile != "" {
		return hubsim.LoadRoster(config.ConfigFile)
	}
	return defaultRoster(), nil
}

// defaultRoster is a typical IMU sensor set: three physical sensors,
// their calibration streams, and a barometer.
func defaultRoster() []hubsim.Sensor {
	return []hubsim.Sensor{
		{DataType: "accel", Vendor: "senshub", Name: "sim-accel", MaxRate: 400, StreamType: model.StreamTypeContinuous},
		{DataType: "gyro", Vendor: "senshub", Name: "sim-gyro", MaxRate: 400, StreamType: model.StreamTypeContinuous},
		{DataType: "mag", Vendor: "senshub", Name: "sim-mag", MaxRate: 100, StreamType: model.StreamTypeContinuous},
		{DataType: "accel_cal", Vendor: "senshub", Name: "sim-accel-cal", StreamType: model.StreamTypeOnChange},
		{DataType: "gyro_cal", Vendor: "senshub", Name: "sim-gyro-cal", StreamType: model.StreamTypeOnChange},
		{DataType: "mag_cal", Vendor: "senshub", Name: "sim-mag-cal", StreamType: model.StreamTypeOnChange},
		{DataType: "pressure", Vendor: "senshub", Name: "sim-baro", MaxRate: 25, StreamType: model.StreamTypeContinuous},
	}
}

// advertise announces the hub over mDNS and returns the stop function.
// Advertising failure is not fatal: the hub still serves direct
// connections.
func advertise(logger *slog.Logger, hub *hubsim.Hub) func() {
	advertiser, err := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{})
	if err != nil {
		logger.Warn("mDNS advertiser unavailable", "error", err)
		return func() {}
	}

	port := discovery.DefaultPort
	if tcpAddr, ok := hub.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	info := &discovery.HubInfo{
		HubID:       uuid.New().String(),
		Name:        config.Name,
		Version:     "1",
		SensorCount: len(hub.Sensors()),
		Port:        uint16(port),
	}

	if err := advertiser.Advertise(context.Background(), info); err != nil {
		logger.Warn("mDNS advertising failed", "error", err)
		return func() {}
	}
	logger.Info("advertising hub", "instance", config.Name, "service", discovery.ServiceTypeHub)

	return func() { advertiser.Stop() }
}

// serveMetrics exposes the Prometheus registry over HTTP.
func serveMetrics(logger *slog.Logger, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	logger.Info("metrics listening", "address", config.Metrics)
	if err := http.ListenAndServe(config.Metrics, mux); err != nil {
		logger.Error("metrics server failed", "error", err)
	}
}

// newLogger builds the process logger at the requested level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
