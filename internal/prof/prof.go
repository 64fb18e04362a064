// Package prof starts continuous profiling through Pyroscope.
package prof

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"

	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
	"github.com/keithlinneman/linnemanlabs-sections/internal/xerrors"
)

type Options struct {
	Enabled       bool
	AppName       string
	ServerAddress string
	// BasicAuthUser and BasicAuthPassword are sent when both are set.
	BasicAuthUser     string
	BasicAuthPassword string
	TenantID          string
	Tags              map[string]string

	ProfileMutexFraction int
	BlockProfileRate     int
}

// Validate checks only enabled options.
func (o Options) Validate() error {
	if !o.Enabled {
		return nil
	}
	if o.ServerAddress == "" {
		return xerrors.New("pyroscope server address is required when profiling is enabled")
	}
	if o.AppName == "" {
		return xerrors.New("pyroscope app name is required when profiling is enabled")
	}
	return nil
}

// pyroLogger sends pyroscope's own messages to our logger at debug level,
// errors at error level.
type pyroLogger struct {
	ctx context.Context
	l   log.Logger
}

func (p pyroLogger) Infof(f string, args ...any)  { p.l.Debug(p.ctx, fmt.Sprintf(f, args...)) }
func (p pyroLogger) Debugf(f string, args ...any) { p.l.Debug(p.ctx, fmt.Sprintf(f, args...)) }
func (p pyroLogger) Errorf(f string, args ...any) {
	p.l.Error(p.ctx, xerrors.Newf(f, args...), "pyroscope")
}

// Start returns a stop func that is always safe to call, more than once.
func Start(ctx context.Context, opts Options) (func(), error) {
	l := log.FromContext(ctx).With("component", "pyroscope")
	if !opts.Enabled {
		l.Info(ctx, "profiling disabled")
		return func() {}, nil
	}
	if err := opts.Validate(); err != nil {
		return func() {}, err
	}

	if opts.ProfileMutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.ProfileMutexFraction)
	}
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   opts.AppName,
		ServerAddress:     opts.ServerAddress,
		BasicAuthUser:     opts.BasicAuthUser,
		BasicAuthPassword: opts.BasicAuthPassword,
		TenantID:          opts.TenantID,
		Tags:              opts.Tags,
		Logger:            pyroLogger{ctx: context.WithoutCancel(ctx), l: l},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		},
	})
	if err != nil {
		return func() {}, xerrors.Wrapf(err, "start pyroscope (server %s)", opts.ServerAddress)
	}
	l.Info(ctx, "profiling started", "server_address", opts.ServerAddress, "app_name", opts.AppName)

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := profiler.Stop(); err != nil {
				l.Error(context.Background(), err, "pyroscope stop")
				return
			}
			l.Info(context.Background(), "profiling stopped")
		})
	}, nil
}
