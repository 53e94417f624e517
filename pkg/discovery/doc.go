// Package discovery implements mDNS/DNS-SD discovery of sensor hubs.
//
// Hubs advertise a single service type (_senshub._tcp) so clients can
// find them without configuration. Instance names are the hub's display
// name; TXT records carry the hub ID, protocol version, and sensor
// count:
//
//	HI  hub ID (required)
//	V   protocol version (required)
//	DN  hub display name (optional)
//	SC  hosted sensor count (optional)
//
// The advertiser side is used by cmd/senshub-sim; the browser side by
// cmd/senshub-cli and any host runtime that wants to locate a hub
// before opening a transport to it. Note that this is discovery of hub
// endpoints on the network, not of sensors: sensors are discovered
// in-protocol through the hub's lookup service (hubclient.FindSensors).
package discovery
