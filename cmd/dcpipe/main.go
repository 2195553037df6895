// Command dcpipe is the CLI entry point.
//
// dcpipe connects two machines over a WebRTC DataChannel and sends files of
// any size across it. A short-lived WebSocket is used only for signaling;
// after that all traffic is peer to peer.
//
// It can be launched interactively (no flags) or non-interactively via CLI
// flags (-role, -wsPort, -wsListen, -wsUrl, -pin, -send, -out, -config).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/pion/logging"
	"github.com/pterm/pterm"

	"github.com/1ureka/dcpipe/internal/app"
	"github.com/1ureka/dcpipe/internal/config"
	"github.com/1ureka/dcpipe/internal/datachannel"
	"github.com/1ureka/dcpipe/internal/signaling"
	"github.com/1ureka/dcpipe/internal/transport"
	"github.com/1ureka/dcpipe/internal/util"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// CLI flags.
	role := flag.String("role", "", "Role: host or client")
	wsPortFlag := flag.Int("wsPort", 0, "WebSocket signaling server port (host only)")
	wsListenFlag := flag.Bool("wsListen", false, "Listen on all network interfaces (host only, for LAN access)")
	wsURLFlag := flag.String("wsUrl", "", "WebSocket URL to connect to (client only)")
	pinFlag := flag.String("pin", "", "Signaling PIN (generated on the host when empty)")
	sendFlag := flag.String("send", "", "File to send once connected")
	outFlag := flag.String("out", ".", "Directory for received files")
	configFlag := flag.String("config", "", "Optional YAML tuning file")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	tuning, err := config.LoadTuning(*configFlag)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	pterm.Info.Println(fmt.Sprintf("dcpipe — v%s", version))
	pterm.Println()

	cfg := config.Config{
		Role:     config.Role(*role),
		PIN:      *pinFlag,
		SendPath: *sendFlag,
		OutDir:   *outFlag,
		Tuning:   tuning,
	}

	switch cfg.Role {
	case "":
		// No -role flag → interactive mode.
		runInteractive(ctx, cfg)

	case config.RoleHost:
		switch {
		case *wsListenFlag:
			cfg.WSAddr = fmt.Sprintf(":%d", *wsPortFlag)
		case *wsPortFlag > 0:
			cfg.WSAddr = fmt.Sprintf("127.0.0.1:%d", *wsPortFlag)
		default:
			cfg.WSAddr = ":0"
		}
		run(ctx, cfg)

	case config.RoleClient:
		if *wsURLFlag == "" {
			util.LogError("missing -wsUrl for client role")
			os.Exit(1)
		}

		wsURL, err := normalizeWSURL(*wsURLFlag, cfg.PIN)
		if err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
		cfg.WSURL = wsURL
		run(ctx, cfg)

	default:
		util.LogError("invalid -role: must be 'host' or 'client'")
		os.Exit(1)
	}

	util.LogInfo("connection closed")
}

// ---------------------------------------------------------------------------
// Run modes
// ---------------------------------------------------------------------------

// runInteractive asks for the role and its parameters when no -role flag is
// provided.
func runInteractive(ctx context.Context, cfg config.Config) {
	role, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"Host  — Wait for a peer", "Client — Connect to a host"}).
		WithDefaultText("Select your role").
		Show()

	pterm.Println()

	if strings.HasPrefix(role, "Host") {
		cfg.Role = config.RoleHost
		cfg.WSAddr = ":0"
	} else {
		cfg.Role = config.RoleClient
		cfg.WSURL = askURL()
	}

	raw, _ := pterm.DefaultInteractiveTextInput.
		WithDefaultText("File to send (leave empty to only receive)").
		Show()
	cfg.SendPath = strings.TrimSpace(raw)
	pterm.Println()

	run(ctx, cfg)
}

// run establishes the connection for cfg.Role and runs the transfer session.
func run(ctx context.Context, cfg config.Config) {
	lf := util.NewLoggerFactory()
	opts := cfg.Tuning.TransportOptions(lf)

	var (
		tr  *transport.Transport
		err error
	)
	if cfg.Role == config.RoleHost {
		if cfg.PIN == "" {
			cfg.PIN = signaling.GeneratePIN(cfg.Tuning.PINLength)
		}
		tr, err = signaling.EstablishAsHost(ctx, cfg.WSAddr, cfg.PIN, opts)
	} else {
		tr, err = signaling.EstablishAsClient(ctx, cfg.WSURL, opts)
	}
	if err != nil {
		util.LogError("failed to establish connection: %v", err)
		os.Exit(1)
	}
	defer tr.Close()

	if err := session(ctx, tr, cfg, lf); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

// session wraps the transport in a DataChannel, receives files in the
// background and sends cfg.SendPath if set. It returns when the peer closes
// the channel or ctx is cancelled.
func session(ctx context.Context, tr *transport.Transport, cfg config.Config, lf logging.LoggerFactory) error {
	dc, err := datachannel.Open(ctx, tr.Channel(), cfg.Tuning.Channel.DataChannelConfig(lf))
	if err != nil {
		return err
	}
	defer dc.Close()

	if err := dc.OnceOpened().Wait(ctx); err != nil {
		return fmt.Errorf("data channel did not open: %w", err)
	}

	util.StartStatsReporter(ctx)
	util.LogSuccess("P2P connection established on channel %q, receiving into %s", dc.Label(), cfg.OutDir)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Serve(ctx, dc, cfg.OutDir)
	}()

	if cfg.SendPath != "" {
		if err := app.SendFile(ctx, dc, cfg.SendPath); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	err = <-serveErr
	switch {
	case errors.Is(err, datachannel.ErrClosed):
		util.LogInfo("peer closed the channel")
		return nil
	case errors.Is(err, context.Canceled):
		return nil
	default:
		return err
	}
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// normalizeWSURL validates a raw WebSocket URL string and rewrites it to the
// signaling endpoint. A PIN already in the query is kept unless pin is set.
func normalizeWSURL(raw, pin string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %s", raw)
	}
	scheme := "wss"
	if u.Scheme == "ws" || u.Scheme == "wss" {
		scheme = u.Scheme
	}

	if pin == "" {
		pin = u.Query().Get("pin")
	}
	if pin == "" {
		return "", fmt.Errorf("missing PIN: pass -pin or add ?pin= to the URL")
	}

	q := url.Values{"pin": {pin}}
	return fmt.Sprintf("%s://%s/ws?%s", scheme, u.Host, q.Encode()), nil
}

// askURL prompts the user for a valid WebSocket URL and PIN until both are
// entered.
func askURL() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("WebSocket URL (e.g. wss://***.asse.devtunnels.ms/ws)").
			Show()
		pterm.Println()

		pin, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("PIN").
			Show()
		pterm.Println()

		wsURL, err := normalizeWSURL(raw, strings.TrimSpace(pin))
		if err == nil {
			return wsURL
		}

		util.LogWarning("invalid input: %v", err)
	}
}
