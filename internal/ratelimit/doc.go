// Package ratelimit is per-client-ip token bucket middleware.
//
// State lives in process memory, so each instance limits independently.
// It bounds what one address can cost a single server. Distributed floods
// are left to the load balancer and CDN.
package ratelimit
