// Command senshub-cli is an interactive client for a sensor hub.
//
// It connects to a hub over framed TCP and exposes the synchronous
// client operations as shell commands: discovering sensors, querying
// attributes, registering logical types, changing sampling
// configuration, and watching the event stream.
//
// Usage:
//
//	senshub-cli [flags]
//
// Flags:
//
//	-addr string       Hub address (default "localhost:8462")
//	-trace string      Protocol trace file path (.shlog, disabled if empty)
//	-log-level string  Log level: debug, info, warn, error (default "warn")
//
// Examples:
//
//	# Connect to a local simulator
//	senshub-cli
//
//	# Connect elsewhere with protocol capture
//	senshub-cli -addr hub.local:8462 -trace session.shlog
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/senshub-protocol/senshub-go/pkg/discovery"
	"github.com/senshub-protocol/senshub-go/pkg/hubclient"
	"github.com/senshub-protocol/senshub-go/pkg/trace"
	"github.com/senshub-protocol/senshub-go/pkg/transport"
)

// Config holds the CLI configuration.
type Config struct {
	Addr      string
	TraceFile string
	LogLevel  string
}

var config Config

func init() {
	flag.StringVar(&config.Addr, "addr", fmt.Sprintf("localhost:%d", discovery.DefaultPort), "Hub address")
	flag.StringVar(&config.TraceFile, "trace", "", "Protocol trace file path (disabled if empty)")
	flag.StringVar(&config.LogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	logger := newLogger(config.LogLevel)

	var tracer trace.Logger
	if config.TraceFile != "" {
		fileLogger, err := trace.NewFileLogger(config.TraceFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open trace file: %v\n", err)
			os.Exit(1)
		}
		defer fileLogger.Close()
		tracer = fileLogger
	}

	tcp, err := transport.NewTCP(transport.TCPConfig{
		Address: config.Addr,
		Trace:   tracer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid transport config: %v\n", err)
		os.Exit(1)
	}

	shell, err := NewShell()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start shell: %v\n", err)
		os.Exit(1)
	}

	client, err := hubclient.New(hubclient.Config{
		Transport: tcp,
		OnEvent:   shell.handleEvent,
		Logger:    logger,
		Trace:     tracer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create client: %v\n", err)
		os.Exit(1)
	}
	shell.client = client

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("Connecting to hub at %s...\n", config.Addr)
	if err := client.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()
	fmt.Println("Connected.")

	shell.Run(ctx, cancel)
}

// newLogger builds the process logger at the requested level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
