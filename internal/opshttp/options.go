package opshttp

import (
	"net/http"

	"github.com/keithlinneman/linnemanlabs-sections/internal/health"
)

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe
	// OnPanic runs after a handler panic is recovered.
	OnPanic func()
}
