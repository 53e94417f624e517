package natstransport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/senshub-protocol/senshub-go/pkg/transport"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// BridgeConfig configures a NATS bridge.
type BridgeConfig struct {
	// URL is the NATS server URL (default: nats.DefaultURL).
	URL string

	// SubjectPrefix must match the clients' transport prefix
	// (default: "senshub").
	SubjectPrefix string

	// Name identifies the connection to the NATS server. Optional.
	Name string

	// Serve handles the hub end of each per-client connection,
	// typically hubsim's ServeConn. Required.
	Serve func(conn net.Conn)

	// MaxMessageSize is the maximum frame size (default: 64KB).
	MaxMessageSize uint32

	// Logger for debug output. Optional.
	Logger *slog.Logger
}

// Bridge exposes a connection-oriented hub over NATS subjects. Each
// distinct client ID gets an in-process connection to the hub: command
// frames flow in as requests, ack frames flow back as replies, and
// report frames publish to the client's indication subject.
type Bridge struct {
	config BridgeConfig

	mu      sync.Mutex
	conn    *nats.Conn
	sub     *nats.Subscription
	clients map[string]*bridgeClient
	closed  bool

	wg sync.WaitGroup
}

// NewBridge creates a bridge for the given hub acceptor.
func NewBridge(config BridgeConfig) (*Bridge, error) {
	if config.Serve == nil {
		return nil, fmt.Errorf("serve function is required")
	}
	if config.URL == "" {
		config.URL = nats.DefaultURL
	}
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = DefaultSubjectPrefix
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = transport.DefaultMaxMessageSize
	}
	return &Bridge{
		config:  config,
		clients: make(map[string]*bridgeClient),
	}, nil
}

// Start connects to the NATS server and subscribes to the command
// subject space.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("bridge is closed")
	}
	if b.conn != nil {
		return fmt.Errorf("bridge already started")
	}

	opts := []nats.Option{nats.MaxReconnects(-1)}
	if b.config.Name != "" {
		opts = append(opts, nats.Name(b.config.Name))
	}
	if deadline, ok := ctx.Deadline(); ok {
		if timeout := time.Until(deadline); timeout > 0 {
			opts = append(opts, nats.Timeout(timeout))
		}
	}

	conn, err := nats.Connect(b.config.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	sub, err := conn.Subscribe(b.config.SubjectPrefix+".cmd.*", b.handleCommand)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe to commands: %w", err)
	}

	b.conn = conn
	b.sub = sub
	return nil
}

// Close unsubscribes, drops all client connections, and closes the NATS
// connection. Safe to call more than once.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	sub, conn := b.sub, b.conn
	clients := make([]*bridgeClient, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	for _, c := range clients {
		c.close()
	}

	b.wg.Wait()

	if conn != nil {
		conn.Close()
	}
	return nil
}

// handleCommand routes one command request to its client's hub
// connection, creating the connection on first use.
func (b *Bridge) handleCommand(msg *nats.Msg) {
	clientID := msg.Subject[strings.LastIndexByte(msg.Subject, '.')+1:]
	if clientID == "" {
		return
	}

	frame, err := wire.DecodeFrame(msg.Data)
	if err != nil || frame.Type != wire.FrameRequest {
		b.debugLog("dropping malformed command", "subject", msg.Subject, "error", err)
		return
	}

	c, err := b.clientFor(clientID)
	if err != nil {
		b.debugLog("rejecting command", "client", clientID, "error", err)
		return
	}

	c.mu.Lock()
	c.pending[frame.CmdID] = msg
	c.mu.Unlock()

	if err := c.framer.WriteFrame(msg.Data); err != nil {
		c.mu.Lock()
		delete(c.pending, frame.CmdID)
		c.mu.Unlock()
		b.debugLog("failed to forward command", "client", clientID, "error", err)
	}
}

// clientFor returns the client's hub connection, creating it on first
// use.
func (b *Bridge) clientFor(clientID string) (*bridgeClient, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("bridge is closed")
	}
	if c, ok := b.clients[clientID]; ok {
		return c, nil
	}

	hubEnd, bridgeEnd := net.Pipe()
	c := &bridgeClient{
		bridge:     b,
		nc:         b.conn,
		clientID:   clientID,
		conn:       bridgeEnd,
		framer:     transport.NewFramerWithMaxSize(bridgeEnd, b.config.MaxMessageSize),
		indSubject: b.config.SubjectPrefix + ".ind." + clientID,
		pending:    make(map[uint32]*nats.Msg),
	}
	b.clients[clientID] = c

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		b.config.Serve(hubEnd)
	}()
	go func() {
		defer b.wg.Done()
		c.pump()
		b.mu.Lock()
		delete(b.clients, clientID)
		b.mu.Unlock()
	}()

	return c, nil
}

// debugLog logs when a logger is configured.
func (b *Bridge) debugLog(msg string, args ...any) {
	if b.config.Logger != nil {
		b.config.Logger.Debug(msg, args...)
	}
}

// bridgeClient is one NATS client's in-process connection to the hub.
type bridgeClient struct {
	bridge     *Bridge
	nc         *nats.Conn
	clientID   string
	conn       net.Conn
	framer     *transport.Framer
	indSubject string

	mu      sync.Mutex
	pending map[uint32]*nats.Msg // command requests awaiting their ack
	closed  bool
}

// pump forwards the hub's frames to NATS: acks answer their pending
// request, reports publish to the indication subject.
func (c *bridgeClient) pump() {
	defer c.close()

	for {
		data, err := c.framer.ReadFrame()
		if err != nil {
			return
		}

		frame, err := wire.DecodeFrame(data)
		if err != nil {
			c.bridge.debugLog("dropping undecodable hub frame", "client", c.clientID, "error", err)
			continue
		}

		switch frame.Type {
		case wire.FrameAck:
			c.mu.Lock()
			msg := c.pending[frame.CmdID]
			delete(c.pending, frame.CmdID)
			c.mu.Unlock()
			if msg == nil {
				continue
			}
			if err := msg.Respond(data); err != nil {
				c.bridge.debugLog("failed to reply ack", "client", c.clientID, "error", err)
			}
		case wire.FrameReport:
			if err := c.nc.Publish(c.indSubject, data); err != nil {
				c.bridge.debugLog("failed to publish report", "client", c.clientID, "error", err)
			}
		}
	}
}

// close drops the in-process connection. Safe to call more than once.
func (c *bridgeClient) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.conn.Close()
}
