package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/k4hvh/madbridge/internal/adapters/transport"
	"github.com/k4hvh/madbridge/internal/audit"
	"github.com/k4hvh/madbridge/internal/config"
	"github.com/k4hvh/madbridge/internal/controlplane"
	"github.com/k4hvh/madbridge/internal/delay"
	"github.com/k4hvh/madbridge/internal/metrics"
	"github.com/k4hvh/madbridge/internal/modifier"
	"github.com/k4hvh/madbridge/internal/pipeline"
	"github.com/k4hvh/madbridge/internal/plugin"
	"github.com/k4hvh/madbridge/internal/rules"
)

var (
	metricsAddr            string
	decisionLogDir         string
	decisionLogDBURL       string
	controlPlaneAddr       string
	controlPlaneAuthSecret string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the packet pipeline between a GCS and a router",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables it)")
	serveCmd.Flags().StringVar(&decisionLogDir, "decision-log-dir", "", "directory for daily-rotated JSONL decision logs (empty disables)")
	serveCmd.Flags().StringVar(&decisionLogDBURL, "decision-log-db", "", "decision log database URL, sqlite://path or postgres://... (empty disables)")
	serveCmd.Flags().StringVar(&controlPlaneAddr, "control-plane-addr", "", "address to serve the control-plane HTTP API on (empty disables it)")
	serveCmd.Flags().StringVar(&controlPlaneAuthSecret, "control-plane-auth-secret", "", "HS256 secret guarding the control plane; empty leaves it open")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := setupLogger(logLevel, logFormat)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ruleConfigs, err := config.LoadRules(rulesFile)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	modifiers := modifier.NewHost(log)
	modifier.RegisterBuiltins(modifiers)
	plugins := plugin.NewHost(log)

	if err := config.Validate(ruleConfigs, modifiers, plugins, log); err != nil {
		return fmt.Errorf("validate rules: %w", err)
	}

	store, err := rules.NewStore(ruleConfigs)
	if err != nil {
		return fmt.Errorf("compile rules: %w", err)
	}

	var sinks []audit.Sink
	if decisionLogDir != "" {
		jsonlSink, err := audit.NewJSONLSink(decisionLogDir)
		if err != nil {
			return fmt.Errorf("open decision log directory: %w", err)
		}
		sinks = append(sinks, jsonlSink)
	}
	if decisionLogDBURL != "" {
		sqlSink, err := audit.NewSQLSink(decisionLogDBURL, log)
		if err != nil {
			return fmt.Errorf("open decision log database: %w", err)
		}
		defer sqlSink.Close()
		sinks = append(sinks, sqlSink)
	}
	var auditSink *audit.MultiSink
	if len(sinks) > 0 {
		auditSink = audit.NewMultiSink(sinks...)
	}

	delays := delay.New()
	defer delays.Stop()
	m := metrics.New()

	tr, err := transport.Open(cfg.Network.GCSListenAddress, cfg.Network.GCSListenPort, cfg.Network.RouterAddress, cfg.Network.RouterPort)
	if err != nil {
		return fmt.Errorf("open transport: %w", err)
	}
	defer tr.Close()

	var driverAudit pipeline.AuditSink
	if auditSink != nil {
		driverAudit = auditSink
	}
	driver := pipeline.New(store, modifiers, plugins, delays, m, tr, driverAudit, log)
	driver.Triggers().Start()
	defer driver.Triggers().Stop()

	if metricsAddr != "" {
		go serveMetrics(metricsAddr, log)
	}
	if controlPlaneAddr != "" {
		go serveControlPlane(controlPlaneAddr, driver, log)
	}

	log.Info("madbridge starting",
		"gcs_listen", fmt.Sprintf("%s:%d", cfg.Network.GCSListenAddress, cfg.Network.GCSListenPort),
		"router", fmt.Sprintf("%s:%d", cfg.Network.RouterAddress, cfg.Network.RouterPort),
		"rules", len(ruleConfigs),
	)

	errChan := make(chan error, 1)
	go func() { errChan <- driver.Run(tr) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		log.Info("shutting down")
		return nil
	}
}

func serveMetrics(addr string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", "error", err)
	}
}

func serveControlPlane(addr string, driver *pipeline.Driver, log *slog.Logger) {
	var auth *controlplane.Authenticator
	if controlPlaneAuthSecret != "" {
		a, err := controlplane.NewAuthenticator(controlPlaneAuthSecret)
		if err != nil {
			log.Error("control plane auth disabled", "error", err)
		} else {
			auth = a
		}
	}
	srv := controlplane.New(driver.Rules(), driver.Batches(), driver.Triggers(), auth)
	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Error("control plane server stopped", "error", err)
	}
}
