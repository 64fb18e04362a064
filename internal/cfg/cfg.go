// Package cfg holds the server configuration. Every field is a flag and
// can also come from an LMLABS_ environment variable.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
)

// EnvPrefix is prepended to the upper-cased flag name to form the env key.
const EnvPrefix = "LMLABS_"

type App struct {
	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	HTTPPort    int
	AdminPort   int
	EnablePprof bool
	TrustedHops int

	RateLimitRPS   float64
	RateLimitBurst int

	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string
	PyroUser        string
	PyroPassword    string
	EnableTracing   bool
	OTLPEndpoint    string
	TraceSample     float64

	// CatalogFile, when set, is loaded at startup instead of the embedded
	// seed catalog.
	CatalogFile          string
	EnableCatalogUpdates bool
	CatalogSSMParam      string
	CatalogS3Bucket      string
	CatalogS3Prefix      string
	CatalogSigningKeyARN string
	CatalogPollInterval  time.Duration

	Collection        string
	ListingLayout     string
	ListingTitle      string
	EnableCommenting  bool
	SlideshowInterval time.Duration

	AdminToken string
	APIBaseURL string
	APIToken   string
}

// Register binds every field to fs with its default.
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "lowest level that carries a stack trace")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "log one entry per wrapped error")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")

	fs.IntVar(&c.HTTPPort, "http-port", 8080, "site listen port")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "ops listen port (probes, metrics, pprof)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "serve pprof on the ops port")
	fs.IntVar(&c.TrustedHops, "trusted-hops", 1, "proxies in front of the server whose X-Forwarded-For is trusted")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", 10, "per-ip request refill rate")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 30, "per-ip burst")

	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "push profiles to -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "pyroscope tenant (X-Scope-OrgID)")
	fs.StringVar(&c.PyroUser, "pyro-user", "", "pyroscope basic auth user")
	fs.StringVar(&c.PyroPassword, "pyro-password", "", "pyroscope basic auth password")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "export traces to -otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0, "trace sampling ratio (0..1)")

	fs.StringVar(&c.CatalogFile, "catalog-file", "", "catalog JSON file to serve instead of the embedded seed")
	fs.BoolVar(&c.EnableCatalogUpdates, "enable-catalog-updates", false, "poll SSM and load new catalogs from S3")
	fs.StringVar(&c.CatalogSSMParam, "catalog-ssm-param", "/app/linnemanlabs-sections/server/catalog/stable/sha256", "SSM parameter holding the active catalog hash")
	fs.StringVar(&c.CatalogS3Bucket, "catalog-s3-bucket", "", "S3 bucket holding catalogs")
	fs.StringVar(&c.CatalogS3Prefix, "catalog-s3-prefix", "apps/linnemanlabs-sections/catalogs", "S3 key prefix for catalogs")
	fs.StringVar(&c.CatalogSigningKeyARN, "catalog-signing-key-arn", "", "KMS key that signs catalogs (empty skips signature checks)")
	fs.DurationVar(&c.CatalogPollInterval, "catalog-poll-interval", 30*time.Second, "SSM poll interval")

	fs.StringVar(&c.Collection, "collection", "posts", "collection path segment, e.g. posts or events")
	fs.StringVar(&c.ListingLayout, "listing-layout", "strip", "cards|strip")
	fs.StringVar(&c.ListingTitle, "listing-title", "", "listing heading")
	fs.BoolVar(&c.EnableCommenting, "enable-commenting", false, "show the comment form on detail pages")
	fs.DurationVar(&c.SlideshowInterval, "slideshow-interval", 5*time.Second, "slideshow advance interval")

	fs.StringVar(&c.AdminToken, "admin-token", "", "bearer token that grants admin controls (empty disables)")
	fs.StringVar(&c.APIBaseURL, "api-base-url", "", "content API base url used for deletes")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token sent to the content API")
}

// FillFromEnv sets flags not given on the command line from the
// environment. Flag "foo-bar" reads PREFIX_FOO_BAR. Invalid values are
// reported through logf and ignored.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		val, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		if explicit[f.Name] {
			logf("flag -%s given on the command line, ignoring %s", f.Name, key)
			return
		}
		prev := f.Value.String()
		if err := f.Value.Set(val); err != nil {
			_ = f.Value.Set(prev)
			logf("ignoring invalid %s=%q: %v", key, val, err)
		}
	})
}

// Validate reports every invalid field at once.
func Validate(c App) error {
	var errs []error
	bad := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	for name, p := range map[string]int{"http-port": c.HTTPPort, "admin-port": c.AdminPort} {
		if p < 1 || p > 65535 {
			bad("%s %d out of range 1..65535", name, p)
		}
	}
	if c.HTTPPort == c.AdminPort {
		bad("http-port and admin-port must differ (both %d)", c.HTTPPort)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		bad("log-level: %w", err)
	}
	if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
		bad("stacktrace-level: %w", err)
	}
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		bad("max-error-links %d out of range 1..64", c.MaxErrorLinks)
	}
	if c.TrustedHops < 0 {
		bad("trusted-hops must not be negative")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		bad("rate limit needs rps > 0 and burst >= 1 (got %g, %d)", c.RateLimitRPS, c.RateLimitBurst)
	}

	if c.EnablePyroscope {
		if u, err := url.Parse(c.PyroServer); c.PyroServer == "" || err != nil || u.Scheme == "" || u.Host == "" {
			bad("pyro-server must be a url when pyroscope is enabled (got %q)", c.PyroServer)
		}
		if (c.PyroUser == "") != (c.PyroPassword == "") {
			bad("pyro-user and pyro-password must be set together")
		}
	}
	if c.TraceSample < 0 || c.TraceSample > 1 {
		bad("trace-sample %g out of range 0..1", c.TraceSample)
	}
	if c.EnableTracing {
		if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			bad("otlp-endpoint must be host:port (got %q)", c.OTLPEndpoint)
		}
	}

	if c.EnableCatalogUpdates {
		if c.CatalogSSMParam == "" {
			bad("catalog-ssm-param is required when catalog updates are enabled")
		}
		if c.CatalogS3Bucket == "" {
			bad("catalog-s3-bucket is required when catalog updates are enabled")
		}
		if c.CatalogPollInterval < time.Second {
			bad("catalog-poll-interval %s is below 1s", c.CatalogPollInterval)
		}
	}

	if c.Collection == "" || strings.Contains(c.Collection, "/") {
		bad("collection must be a single path segment (got %q)", c.Collection)
	}
	if c.ListingLayout != "cards" && c.ListingLayout != "strip" {
		bad("listing-layout must be cards or strip (got %q)", c.ListingLayout)
	}
	if c.SlideshowInterval <= 0 {
		bad("slideshow-interval must be positive")
	}
	if c.APIBaseURL != "" {
		if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			bad("api-base-url must be an http(s) url (got %q)", c.APIBaseURL)
		}
	}
	if c.AdminToken != "" && len(c.AdminToken) < 16 {
		bad("admin-token must be at least 16 characters")
	}
	return errors.Join(errs...)
}
