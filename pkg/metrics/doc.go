// Package metrics defines the Prometheus instrumentation for the hub
// client and the simulator.
//
// Constructors take an injectable prometheus.Registerer; passing nil
// returns a nil collector, and every record method is safe to call on
// a nil receiver, so instrumentation can be compiled in unconditionally
// and enabled per deployment.
package metrics
