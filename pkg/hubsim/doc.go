// Package hubsim implements an in-process sensor hub for tests and the
// senshub-sim command. It hosts a roster of simulated sensors behind
// the framed hub protocol: discovery by data type, attribute queries,
// and configuration with synthesized sample streams.
package hubsim
