package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"regexp"

	"github.com/certops/rdscert/pkg/convert/openssl"
	"github.com/certops/rdscert/pkg/installer"
	"github.com/certops/rdscert/pkg/ledger"
	ledgerfile "github.com/certops/rdscert/pkg/ledger/file"
	"github.com/certops/rdscert/pkg/rds/wmic"
	"github.com/certops/rdscert/pkg/store/certutil"
	"github.com/certops/rdscert/pkg/utils"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdopentracing "github.com/opentracing/opentracing-go"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

var pemExtension = regexp.MustCompile(`(?i)\.(?:crt|pem)$`)

func main() {
	var (
		flOpenssl   = flag.String("openssl", envString("RDSCERT_OPENSSL", "openssl"), "path to the OpenSSL executable")
		flPfx       = flag.String("pfx", envString("RDSCERT_PFX", ""), "path to save the certificate in PKCS #12 format (default: next to the certificate)")
		flMetadata  = flag.String("metadata", envString("RDSCERT_METADATA", "metadata.json"), "path to the JSON metadata file")
		flStoreName = flag.String("store-name", envString("RDSCERT_STORE_NAME", "My"), "certificate store name in the local machine")
	)
	flag.Parse()

	var logger log.Logger
	{
		logger = log.NewJSONLogger(os.Stdout)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	if flag.NArg() != 2 {
		level.Error(logger).Log("msg", "Usage: rdscert-install [flags] <crt path> <key path>")
		os.Exit(1)
	}
	crtPath, keyPath := flag.Arg(0), flag.Arg(1)

	if !utils.HasAdminRights() {
		level.Error(logger).Log("msg", "Please run with administrative privileges. Otherwise certutil cannot add or set the certificate for Remote Desktop Services")
		os.Exit(1)
	}

	for _, path := range []string{crtPath, keyPath, *flMetadata} {
		if _, err := os.Stat(path); err != nil {
			level.Error(logger).Log("err", err, "msg", "File not found. Path: "+path)
			os.Exit(1)
		}
	}

	pfxPath := *flPfx
	if pfxPath != "" {
		if filepath.Ext(pfxPath) != ".pfx" {
			level.Error(logger).Log("msg", "The path for the PKCS #12 certificate file must end with the .pfx extension. Path: "+pfxPath)
			os.Exit(1)
		}
		if dir := filepath.Dir(pfxPath); dir != "" {
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				level.Error(logger).Log("msg", "The directory for the PKCS #12 certificate file was not found. Path: "+dir)
				os.Exit(1)
			}
		}
	} else {
		pfxPath = pemExtension.ReplaceAllString(crtPath, "") + ".pfx"
	}

	jcfg, err := jaegercfg.FromEnv()
	if err != nil {
		level.Error(logger).Log("err", err, "msg", "Could not load Jaeger configuration values from environment")
		os.Exit(1)
	}
	tracer, closer, err := jcfg.NewTracer()
	if err != nil {
		level.Error(logger).Log("err", err, "msg", "Could not start Jaeger tracer")
		os.Exit(1)
	}

	fieldKeys := []string{"method", "error"}

	var s installer.Service
	{
		s = installer.NewService(
			openssl.NewConverter(*flOpenssl, logger),
			certutil.NewStore(*flStoreName, logger),
			wmic.NewBinder(logger),
			logger,
		)
		s = installer.LoggingMiddleware(logger)(s)
		s = installer.NewInstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "rdscert",
				Subsystem: "installer",
				Name:      "request_count",
				Help:      "Number of operations executed.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "rdscert",
				Subsystem: "installer",
				Name:      "request_latency_microseconds",
				Help:      "Total duration of operations in microseconds.",
			}, fieldKeys),
		)(s)
		s = installer.NewTracingMiddleware(tracer)(s)
	}

	metadata := ledgerfile.NewFile(*flMetadata, logger)

	code := run(s, tracer, crtPath, keyPath, pfxPath, metadata, logger)
	closer.Close()
	if gatewayURL := envString("RDSCERT_PUSHGATEWAY", ""); gatewayURL != "" {
		if err := push.New(gatewayURL, "rdscert_install").Gatherer(stdprometheus.DefaultGatherer).Push(); err != nil {
			level.Warn(logger).Log("err", err, "msg", "Could not push metrics to Pushgateway")
		}
	}
	os.Exit(code)
}

func run(s installer.Service, tracer stdopentracing.Tracer, crtPath, keyPath, pfxPath string, metadata ledger.Ledger, logger log.Logger) int {
	span := tracer.StartSpan("install-and-bind")
	defer span.Finish()
	ctx := stdopentracing.ContextWithSpan(context.Background(), span)

	if err := s.Convert(ctx, crtPath, keyPath, pfxPath); err != nil {
		return 1
	}

	if _, err := s.Install(ctx, pfxPath); err != nil {
		return 1
	}

	rec, err := metadata.Get()
	if err != nil {
		level.Error(logger).Log("err", err, "msg", "Could not load certificate metadata")
		return 1
	}

	if err := s.Bind(ctx, rec.Fingerprint); err != nil {
		// The cleaner must not run against a store whose active binding may
		// not have taken effect.
		return 1
	}

	if _, err := s.Clean(ctx, rec.Fingerprint); err != nil {
		// Cleanup is best effort; the binding already succeeded.
		level.Warn(logger).Log("err", err, "msg", "Store cleanup reported an anomaly")
	}
	return 0
}

func envString(key, def string) string {
	if env := os.Getenv(key); env != "" {
		return env
	}
	return def
}
