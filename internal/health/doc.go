// Package health has the probes behind /-/healthy and /-/ready.
//
// Probes compose with All and Any. The server is ready once a catalog is
// loaded and until the ShutdownGate closes, so the load balancer stops
// routing before in-flight requests drain.
package health
