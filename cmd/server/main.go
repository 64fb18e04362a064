package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/linnemanlabs-sections/internal/apiclient"
	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
	"github.com/keithlinneman/linnemanlabs-sections/internal/catalogapi"
	"github.com/keithlinneman/linnemanlabs-sections/internal/cfg"
	"github.com/keithlinneman/linnemanlabs-sections/internal/cryptoutil"
	"github.com/keithlinneman/linnemanlabs-sections/internal/health"
	"github.com/keithlinneman/linnemanlabs-sections/internal/httpmw"
	"github.com/keithlinneman/linnemanlabs-sections/internal/httpserver"
	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
	"github.com/keithlinneman/linnemanlabs-sections/internal/metrics"
	"github.com/keithlinneman/linnemanlabs-sections/internal/opshttp"
	"github.com/keithlinneman/linnemanlabs-sections/internal/otelx"
	"github.com/keithlinneman/linnemanlabs-sections/internal/prof"
	"github.com/keithlinneman/linnemanlabs-sections/internal/ratelimit"
	"github.com/keithlinneman/linnemanlabs-sections/internal/section"
	"github.com/keithlinneman/linnemanlabs-sections/internal/sitehttp"
	"github.com/keithlinneman/linnemanlabs-sections/internal/slideshow"
	v "github.com/keithlinneman/linnemanlabs-sections/internal/version"
	"github.com/keithlinneman/linnemanlabs-sections/internal/webassets"
)

const (
	appName = "linnemanlabs-sections"

	// drainPeriod gives the load balancer time to see /-/ready fail.
	drainPeriod = 60 * time.Second

	// slideshowMax bounds how many catalog items rotate in the slideshow.
	slideshowMax = 10
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s %s (build_date=%s, build_id=%s, go=%s)\n", appName, vi, vi.BuildDate, vi.BuildID, vi.GoVersion)
		os.Exit(0)
	}

	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Validate has already checked both levels
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:             appName,
		Version:         vi.Version,
		Level:           lvl,
		StacktraceLevel: stackLvl,
		JSON:            conf.LogJSON,
		ErrorLinks:      conf.IncludeErrorLinks,
		MaxErrorLinks:   conf.MaxErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.VCSDirty,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"collection", conf.Collection,
		"listing_layout", conf.ListingLayout,
		"enable_catalog_updates", conf.EnableCatalogUpdates,
		"catalog_file", conf.CatalogFile,
		"catalog_s3_bucket", conf.CatalogS3Bucket,
		"catalog_s3_prefix", conf.CatalogS3Prefix,
		"catalog_signing_key_arn", conf.CatalogSigningKeyARN,
		"api_configured", conf.APIBaseURL != "",
		"admin_enabled", conf.AdminToken != "",
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"trace_sample", conf.TraceSample,
	)

	m := metrics.New()
	m.SetBuildInfoFromVersion(appName, "server", vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:           conf.EnablePyroscope,
		AppName:           appName,
		ServerAddress:     conf.PyroServer,
		BasicAuthUser:     conf.PyroUser,
		BasicAuthPassword: conf.PyroPassword,
		TenantID:          conf.PyroTenantID,
		Tags: map[string]string{
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.ShortCommit(),
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	m.SetProfilingActive(conf.EnablePyroscope && err == nil)
	defer stopProf()

	// the collector runs on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   appName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
		shutdownOTEL = func(context.Context) error { return nil }
	}

	store := catalog.NewStore()
	loadInitialCatalog(ctx, L, store, conf)

	slides := slideshow.NewHolder(slideshow.Options{
		Interval:   conf.SlideshowInterval,
		SelectPath: "/slideshow/select",
		OnAdvance:  func(int) { m.IncSlideshowAdvance() },
	})
	defer slides.Close()

	publishCatalog := func() {
		m.SetCatalog(string(store.Source()), store.CatalogVersion(), store.CatalogHash(), len(store.Items()), store.LoadedAt())
		slides.Replace(slideItems(store.Items()))
	}
	publishCatalog()
	// watcher swaps and deletes both land here
	store.OnChange(publishCatalog)

	if conf.EnableCatalogUpdates {
		loader, err := newCatalogLoader(ctx, L, conf)
		if err != nil {
			L.Error(ctx, err, "failed to create catalog loader, catalog updates disabled")
		} else {
			watcher := catalog.NewWatcher(catalog.WatcherOptions{
				Logger:       L,
				Fetcher:      loader,
				Store:        store,
				PollInterval: conf.CatalogPollInterval,
				Metrics:      m,
			})
			go func() {
				if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
					L.Error(ctx, err, "catalog watcher stopped")
				}
			}()
		}
	}

	var api section.APIClient
	if conf.APIBaseURL != "" {
		c, err := apiclient.New(apiclient.Options{BaseURL: conf.APIBaseURL, Token: conf.APIToken})
		if err != nil {
			L.Error(ctx, err, "failed to create content API client, deletes disabled")
		} else {
			api = c
		}
	}

	collectionPath := "/" + conf.Collection
	var listing sitehttp.Renderer
	switch conf.ListingLayout {
	case sitehttp.LayoutCards:
		listing = section.Cards{
			Title:         conf.ListingTitle,
			ReadMore:      true,
			ReadMorePath:  collectionPath + "/{slug}",
			ContentLength: section.DefaultContentLength,
			Metrics:       m,
		}
	default:
		listing = section.Strip{
			Title:          conf.ListingTitle,
			EmptyMessage:   "Nothing here yet.",
			ClickableMedia: true,
			ReadMore:       true,
			ReadMorePath:   collectionPath + "/{slug}",
			Metrics:        m,
		}
	}

	site, err := sitehttp.New(sitehttp.Options{
		Logger:     L,
		Store:      store,
		Collection: conf.Collection,
		Listing:    listing,
		Detail: section.Detail{
			Options: section.Options{
				EnableCommenting: conf.EnableCommenting,
				APIPath:          "/api" + collectionPath,
				EmptyTitle:       "Not found",
				EmptyMessage:     "This item does not exist.",
			},
			Metrics: m,
			Logger:  L,
		},
		API:        api,
		Slideshow:  slides,
		AdminToken: conf.AdminToken,
		Metrics:    m,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site")
		os.Exit(1)
	}
	catalogAPI := catalogapi.NewAPI(store, L)

	// readiness fails while draining or before any catalog is loaded
	var gate health.ShutdownGate
	readiness := health.All(gate.Probe(), health.Catalog(store))

	limiter := ratelimit.New(ctx,
		ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
		ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied() }),
		// logged once per ip until it is evicted
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "ip", ip)
		}),
		ratelimit.WithOnCapacity(func() {
			m.IncRateLimitCapacity()
			L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
		}),
	)

	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:    L,
		Port:      conf.HTTPPort,
		Health:    health.Fixed(true, ""),
		Readiness: readiness,
		Routes: func(r chi.Router) {
			catalogAPI.RegisterRoutes(r)
			site.RegisterRoutes(r)
		},
		MetricsMW:    m.Middleware,
		RateLimitMW:  limiter.Middleware,
		CatalogInfo:  store,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedHops},
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// the ops port also rejects public peers itself, in case the security
	// group is ever misconfigured
	opsHTTPStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:        conf.AdminPort,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      health.Fixed(true, ""),
		Readiness:   readiness,
		OnPanic:     m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd not notified", "reason", err.Error())
	}

	<-ctx.Done()
	stop()
	bg := context.Background()
	L.Info(bg, "shutdown signal received")

	gate.Close("draining")
	slides.Close()
	L.Info(bg, "shutdown gate closed, draining", "drain_period", drainPeriod.String())

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(drainPeriod):
		L.Info(bg, "drain period complete")
	case <-forceCh:
		L.Warn(bg, "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(bg, 10*time.Second)
	defer cancel()
	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "site http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}
	stopProf()

	L.Info(bg, "shutdown complete")
}

// loadInitialCatalog installs the embedded seed, then the -catalog-file
// if one is given. Failures keep whatever was loaded before.
func loadInitialCatalog(ctx context.Context, L log.Logger, store *catalog.Store, conf cfg.App) {
	if data, ok := webassets.SeedCatalog(); ok {
		snap, err := catalog.LoadBytes(data, catalog.SourceSeed, catalog.DefaultValidationOptions())
		if err != nil {
			L.Error(ctx, err, "embedded seed catalog is invalid")
		} else {
			store.Set(*snap)
			L.Info(ctx, "loaded seed catalog", "items", len(snap.Items))
		}
	}

	if conf.CatalogFile == "" {
		return
	}
	snap, err := catalog.LoadFile(conf.CatalogFile, catalog.SourceFile, catalog.DefaultValidationOptions())
	if err != nil {
		L.Error(ctx, err, "failed to load catalog file, keeping seed", "path", conf.CatalogFile)
		return
	}
	store.Set(*snap)
	L.Info(ctx, "loaded catalog file", "path", conf.CatalogFile, "version", snap.Meta.Version, "items", len(snap.Items))
}

func newCatalogLoader(ctx context.Context, L log.Logger, conf cfg.App) (*catalog.Loader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	opts := catalog.LoaderOptions{
		Logger:     L,
		SSMParam:   conf.CatalogSSMParam,
		S3Bucket:   conf.CatalogS3Bucket,
		S3Prefix:   conf.CatalogS3Prefix,
		S3:         s3.NewFromConfig(awsCfg),
		SSM:        ssm.NewFromConfig(awsCfg),
		Validation: catalog.DefaultValidationOptions(),
	}
	if conf.CatalogSigningKeyARN != "" {
		opts.Verifier = cryptoutil.NewKMSVerifier(kms.NewFromConfig(awsCfg), conf.CatalogSigningKeyARN)
	}
	return catalog.NewLoader(opts)
}

// slideItems picks published items that have media.
func slideItems(items []catalog.Item) []catalog.Item {
	out := make([]catalog.Item, 0, slideshowMax)
	for _, it := range items {
		if it.Published && it.MainMedia != "" {
			out = append(out, it)
		}
		if len(out) == slideshowMax {
			break
		}
	}
	return out
}

func notifySystemd() error {
	// set by systemd for Type=notify units
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify: dial: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		return fmt.Errorf("systemd notify: write: %w", err)
	}
	return nil
}
