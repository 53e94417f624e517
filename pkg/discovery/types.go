package discovery

import (
	"context"
	"errors"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceTypeHub is the service type advertised by sensor hubs.
	ServiceTypeHub = "_senshub._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default hub listen port.
	DefaultPort = 8462
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
)

// HubInfo is the information a hub advertises about itself.
type HubInfo struct {
	// HubID uniquely identifies the hub instance (UUID).
	HubID string

	// Name is the user-friendly hub name, used as the instance name.
	Name string

	// Version is the protocol version the hub speaks.
	Version string

	// SensorCount is the number of hosted sensors. Zero is omitted from
	// the TXT records.
	SensorCount int

	// Port is the hub's listen port. Zero means DefaultPort.
	Port uint16
}

// Validate checks the advertised information.
func (i *HubInfo) Validate() error {
	if i.HubID == "" {
		return ErrMissingRequired
	}
	if i.Version == "" {
		return ErrMissingRequired
	}
	return ValidateInstanceName(i.instanceName())
}

// instanceName returns the mDNS instance name, truncated to the DNS
// label limit.
func (i *HubInfo) instanceName() string {
	name := i.Name
	if name == "" {
		name = "senshub-" + i.HubID
	}
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// HubService is a hub found by browsing.
type HubService struct {
	InstanceName string
	Host         string
	Port         uint16

	// Addresses are the hub's IP addresses, aggregated across
	// interfaces.
	Addresses []string

	HubID       string
	Name        string
	Version     string
	SensorCount int
}

// AdvertiserConfig configures an advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface by name.
	// Empty means all interfaces.
	Interface string

	// TTL overrides the mDNS record TTL. Zero uses the library default.
	TTL time.Duration
}

// BrowserConfig configures a browser.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface by name.
	// Empty means all interfaces.
	Interface string
}

// Advertiser announces a hub on the local network.
type Advertiser interface {
	// Advertise starts announcing the hub. Advertising again replaces
	// the previous announcement.
	Advertise(ctx context.Context, info *HubInfo) error

	// Update refreshes the TXT records of the active announcement.
	Update(info *HubInfo) error

	// Stop withdraws the announcement.
	Stop() error
}

// Browser finds hubs on the local network.
type Browser interface {
	// Browse emits hubs as they are found, until ctx is cancelled.
	Browse(ctx context.Context) (<-chan *HubService, error)

	// FindHubs collects the hubs found within timeout.
	FindHubs(ctx context.Context, timeout time.Duration) ([]*HubService, error)
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return ErrMissingRequired
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
