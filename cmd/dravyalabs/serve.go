package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dravyalabs/internal/api"
	"dravyalabs/internal/dravya"
	"dravyalabs/internal/events"
	"dravyalabs/internal/form"
	"dravyalabs/internal/mqtt"
)

const (
	healthTimeout   = 3 * time.Second
	shutdownTimeout = 10 * time.Second
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the identification form over HTTP",
	Long: `Starts the web form on DRAVYA_ADDR (default :8080). Outcomes are streamed to
browsers on /api/ws and, when DRAVYA_MQTT_BROKER is set, published to MQTT with
Home Assistant discovery.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Override(listenAddr, "", false); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr(), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Dravya Labs %s starting on %s\n", Version, cfg.Addr())
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	printAccessURLs(cmd.OutOrStdout(), port, localIPv4s())

	return serve(ctx, ln)
}

// serve runs the HTTP server on ln until ctx ends, then shuts down gracefully
func serve(ctx context.Context, ln net.Listener) error {
	client, err := dravya.NewClient(cfg.APIURL())
	if err != nil {
		ln.Close()
		return err
	}
	checkBackend(ctx, client)

	eventStore := events.NewStore(cfg.EventsSize())
	controller := form.NewController(client, logger)
	server := api.NewServer(controller, client, eventStore, logger)

	g, gctx := errgroup.WithContext(ctx)

	// Request contexts end with the server so open streams close on shutdown.
	httpServer := &http.Server{
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	if cfg.MQTTEnabled() {
		mc, bridge, err := startMQTT()
		if err != nil {
			logger.Warn("mqtt disabled", zap.Error(err))
		} else {
			defer mc.Disconnect()
			updates, unsubscribe := controller.Subscribe()
			defer unsubscribe()
			g.Go(func() error {
				bridge.Run(gctx, updates)
				return nil
			})
		}
	}

	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", ln.Addr().String()), zap.String("backend", client.BaseURL()))
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// checkBackend warns when the identification backend is not ready; never fatal
func checkBackend(ctx context.Context, client *dravya.Client) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	health, err := client.Health(ctx)
	switch {
	case err != nil:
		logger.Warn("identification backend not reachable", zap.String("backend", client.BaseURL()), zap.Error(err))
	case !health.ModelLoaded:
		logger.Warn("identification backend has no model loaded", zap.String("status", health.Status))
	default:
		logger.Info("identification backend ready", zap.Int("classes", len(health.Classes)))
	}
}

// startMQTT connects to the broker and announces sensors on every (re)connect
func startMQTT() (*mqtt.Client, *mqtt.Bridge, error) {
	mc, err := mqtt.New(mqtt.Config{
		Broker:   cfg.MQTTBroker(),
		ClientID: cfg.MQTTClientID(),
		Username: cfg.MQTTUsername(),
		Password: cfg.MQTTPassword(),
		Prefix:   cfg.MQTTPrefix(),
		UseTLS:   cfg.MQTTUseTLS(),
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	bridge := mqtt.NewBridge(mc, mc.Prefix(), logger)
	mc.OnConnect(bridge.PublishDiscovery)

	if err := mc.Connect(); err != nil {
		return nil, nil, err
	}
	return mc, bridge, nil
}

// localIPv4s lists the non-loopback IPv4 addresses of this host
func localIPv4s() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}

	var ips []string
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			ips = append(ips, v4.String())
		}
	}
	return ips
}

// printAccessURLs prints where the form can be opened from
func printAccessURLs(w io.Writer, port string, ips []string) {
	if len(ips) == 0 {
		fmt.Fprintf(w, "\nOpen http://localhost:%s in your browser\n", port)
		return
	}

	fmt.Fprintln(w, "\nAccess URLs:")
	for _, ip := range ips {
		fmt.Fprintf(w, "  http://%s\n", net.JoinHostPort(ip, port))
	}
	fmt.Fprintln(w)
}
