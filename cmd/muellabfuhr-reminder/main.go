package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/losredoe132/muellabfuhr-reminder/internal/app"
	"github.com/losredoe132/muellabfuhr-reminder/internal/config"
	"github.com/losredoe132/muellabfuhr-reminder/internal/ics"
	"github.com/losredoe132/muellabfuhr-reminder/internal/indicator"
	"github.com/losredoe132/muellabfuhr-reminder/internal/log"
	"github.com/losredoe132/muellabfuhr-reminder/internal/metrics"
	"github.com/losredoe132/muellabfuhr-reminder/internal/notify"
	"github.com/losredoe132/muellabfuhr-reminder/internal/web"
	"github.com/losredoe132/muellabfuhr-reminder/internal/wifi"
)

// version is stamped at build time via -ldflags -X.
var version = "dev"

type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	if err := run(); err != nil {
		log.Error("exiting with failure", err)
		os.Exit(1)
	}
}

func run() error {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		log.Error("failed to load config", err, "config_path", flags.configPath)
		return err
	}
	log.SetLevel(log.ParseLevel(conf.LogLevel))

	// CLI overrides.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.once {
		conf.RefreshCron = ""
	}

	log.Info("muellabfuhr-reminder starting", "version", version)
	log.Info("effective config",
		"listen", conf.Listen,
		"interface", conf.Wifi.Interface,
		"ssid", conf.Wifi.SSID,
		"refresh", conf.RefreshCron,
		"mqtt", conf.MQTT.Broker != "",
		"tls_insecure", conf.TLSInsecure,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	ind := indicator.Default(conf.Indicator.ReadyPin, conf.Indicator.ErrorPin)
	defer ind.Close()
	ind.Set(indicator.StatusStarting)

	sinks := []notify.Sink{notify.LogSink{}}

	var srv *web.Server
	if conf.Listen != "" {
		srv = web.NewServer(conf, metrics.Handler(reg))
		sinks = append(sinks, srv)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error("http server stopped", err)
			}
		}()
	}

	if conf.MQTT.Broker != "" {
		mq := notify.NewMQTTSink(notify.MQTTOptions{
			Broker:   conf.MQTT.Broker,
			ClientID: conf.MQTT.ClientID,
			Topic:    conf.MQTT.Topic,
			Username: conf.MQTT.Username,
			Password: conf.MQTT.Password,
		})
		defer mq.Close()
		go func() { _ = mq.Connect(ctx) }()
		sinks = append(sinks, mq)
	}

	opts := app.Options{
		Config:    conf,
		Station:   wifi.NewSystemStation(conf.Wifi.Interface),
		Stack:     wifi.NewSystemStack(conf.Wifi.Interface),
		Fetcher:   ics.NewFetcher(conf.TLSInsecure),
		Indicator: ind,
		Sinks:     sinks,
		Stats:     collector,
	}
	if srv != nil {
		opts.Status = srv
	}

	if err := app.New(opts).Run(ctx); err != nil {
		return err
	}

	// Give the HTTP goroutine a moment to finish its shutdown logging.
	time.Sleep(100 * time.Millisecond)
	log.Info("muellabfuhr-reminder exiting")
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/muellabfuhr/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Fetch once and idle, ignoring any refresh schedule")

	flag.Parse()

	return cfg
}
