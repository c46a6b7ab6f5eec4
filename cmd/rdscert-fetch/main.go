package main

import (
	"context"
	"flag"
	"os"
	"os/exec"
	"runtime"

	"github.com/certops/rdscert/pkg/client"
	"github.com/certops/rdscert/pkg/config"
	"github.com/certops/rdscert/pkg/exporter"
	"github.com/certops/rdscert/pkg/ledger"
	ledgerfile "github.com/certops/rdscert/pkg/ledger/file"
	"github.com/certops/rdscert/pkg/ledger/relational"
	"github.com/certops/rdscert/pkg/secrets/token"
	"github.com/certops/rdscert/pkg/secrets/token/static"
	"github.com/certops/rdscert/pkg/secrets/token/vault"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdopentracing "github.com/opentracing/opentracing-go"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	_ "github.com/lib/pq"
)

func main() {
	var (
		flConfig   = flag.String("config", envString("RDSCERT_CONFIG", "config.json"), "path to the configuration file")
		flOnExport = flag.String("on-export", envString("RDSCERT_ON_EXPORT", ""), "shell command to execute after exporting a new certificate")
	)
	flag.Parse()

	var logger log.Logger
	{
		logger = log.NewJSONLogger(os.Stdout)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	cfg, err := config.Load(*flConfig)
	if err != nil {
		level.Error(logger).Log("err", err, "msg", "Could not load run configuration")
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "Run configuration loaded", "domain", cfg.Domain)

	envCfg, err := config.NewEnvConfig("rdscert")
	if err != nil {
		level.Error(logger).Log("err", err, "msg", "Could not read environment configuration values")
		os.Exit(1)
	}

	var tokenSecrets token.Secrets
	if envCfg.UseVault() {
		tokenSecrets, err = vault.NewVaultSecrets(envCfg.VaultAddress, envCfg.VaultRoleID, envCfg.VaultSecretID, envCfg.VaultTokenPath)
		if err != nil {
			level.Error(logger).Log("err", err, "msg", "Could not create vault secret")
			os.Exit(1)
		}
		level.Info(logger).Log("msg", "Remote server token will be read from Vault")
	} else {
		tokenSecrets = static.NewStatic(cfg.Token)
	}

	metadata := ledgerfile.NewFile(cfg.Metadata, logger)

	var history ledger.Ledger
	if envCfg.UseHistoryDB() {
		history, err = relational.NewDB("postgres", envCfg.HistoryDSN(), logger)
		if err != nil {
			level.Error(logger).Log("err", err, "msg", "Could not start connection with certificate history database")
			os.Exit(1)
		}
		level.Info(logger).Log("msg", "Connection established with certificate history database")
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

	remote := client.NewRemote(cfg.RemoteURL, tokenSecrets, logger)

	var s exporter.Service
	{
		s = exporter.NewService(remote, metadata, history, cfg.Domain, exporter.Output{
			Crt: cfg.Crt,
			Key: cfg.Key,
			Cab: cfg.Cab,
		}, logger)
		s = exporter.LoggingMiddleware(logger)(s)
		s = exporter.NewInstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "rdscert",
				Subsystem: "exporter",
				Name:      "request_count",
				Help:      "Number of operations executed.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "rdscert",
				Subsystem: "exporter",
				Name:      "request_latency_microseconds",
				Help:      "Total duration of operations in microseconds.",
			}, fieldKeys),
		)(s)
		s = exporter.NewTracingMiddleware(tracer)(s)
	}

	code := run(s, *flOnExport, tracer, logger)

	closer.Close()
	pushMetrics(envCfg.PushgatewayURL, logger)
	os.Exit(code)
}

func run(s exporter.Service, onExport string, tracer stdopentracing.Tracer, logger log.Logger) int {
	span := tracer.StartSpan("fetch-and-export")
	defer span.Finish()
	ctx := stdopentracing.ContextWithSpan(context.Background(), span)

	cert, err := s.Fetch(ctx)
	if err != nil {
		level.Error(logger).Log("err", err, "msg", "Could not fetch certificate from remote server")
		return 1
	}

	decision, err := s.Decide(ctx, cert)
	switch decision {
	case exporter.Keep:
		return 0
	case exporter.Reject:
		// Expected condition for the scheduler: prior state is kept.
		level.Info(logger).Log("err", err, "msg", "Received certificate rejected; keeping prior state")
		return 0
	}

	if err := s.Export(ctx, cert); err != nil {
		return 1
	}

	if onExport != "" {
		level.Info(logger).Log("msg", "Executing post-export command", "command", onExport)
		if err := runHook(onExport); err != nil {
			level.Error(logger).Log("err", err, "msg", "Post-export command failed")
			return 1
		}
	}
	return 0
}

func runHook(command string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", command)
	} else {
		cmd = exec.Command("sh", "-c", command)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func pushMetrics(gatewayURL string, logger log.Logger) {
	if gatewayURL == "" {
		return
	}
	if err := push.New(gatewayURL, "rdscert_fetch").Gatherer(stdprometheus.DefaultGatherer).Push(); err != nil {
		level.Warn(logger).Log("err", err, "msg", "Could not push metrics to Pushgateway")
	}
}

func envString(key, def string) string {
	if env := os.Getenv(key); env != "" {
		return env
	}
	return def
}
