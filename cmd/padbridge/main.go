package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/enokida/padbridge/internal/ble"
	"github.com/enokida/padbridge/internal/bond"
	"github.com/enokida/padbridge/internal/bridge"
	"github.com/enokida/padbridge/internal/config"
	"github.com/enokida/padbridge/internal/debounce"
	"github.com/enokida/padbridge/internal/input"
	"github.com/enokida/padbridge/internal/logging"
	"github.com/enokida/padbridge/internal/report"
	"github.com/enokida/padbridge/internal/session"
	"github.com/enokida/padbridge/internal/status"
	"github.com/enokida/padbridge/internal/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/padbridge/config.yaml)")
	initConfig := flag.Bool("init", false, "write a commented default config file and exit")
	deviceName := flag.String("name", "", "override the advertised device name")
	debounceMs := flag.Int("debounce", -1, "override the debounce interval in milliseconds")
	tickHz := flag.Int("tick-rate", 0, "override the report tick rate in Hz")
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("write default config: %v", err)
		}
		if path == "" {
			log.Printf("Config already exists at %s", config.DefaultConfigPath())
		} else {
			log.Printf("Config written to %s", path)
		}
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// CLI overrides beat the file.
	if *deviceName != "" {
		cfg.DeviceName = *deviceName
	}
	if *debounceMs >= 0 {
		cfg.DebounceMs = *debounceMs
	}
	if *tickHz > 0 {
		cfg.TickHz = *tickHz
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	if _, err := logging.New(cfg.Log.Level, cfg.Log.Format, "padbridge"); err != nil {
		log.Fatalf("logging: %v", err)
	}

	printBanner(cfg)

	// Validate guarantees the bindings parse; the error path here is for a
	// keymap edited between Load and now, which cannot happen.
	km, err := cfg.KeymapBindings()
	if err != nil {
		log.Fatalf("keymap: %v", err)
	}
	mapper := debounce.NewMapper(km, cfg.DebounceInterval())
	desc := report.Descriptor{MaxPressed: cfg.Report.MaxPressed}
	encoder := report.NewEncoder(desc)

	// Bond store. An unreadable file is a warning, not a stop: Open hands
	// back an empty store and the affected peers re-pair.
	bonds, err := bond.Open(cfg.Bond.Path, cfg.Bond.Secret)
	if err != nil {
		if bonds == nil {
			log.Fatalf("Failed to open bond store: %v", err)
		}
		log.Printf("Bond store unreadable, starting fresh: %v", err)
		log.Printf("Remove %s to silence this warning.", cfg.Bond.Path)
	}
	log.Printf("Bond store ready (%d bonded peers)", bonds.Len())

	// Input driver
	src, lamp, err := openSource(cfg)
	if err != nil {
		log.Fatalf("Failed to open input source: %v\n\nCheck the input section of the config: driver %q.", err, cfg.Input.Driver)
	}
	log.Printf("Input source ready (%s)", cfg.Input.Driver)

	// Pairing agent. BlueZ-only and best-effort: without it, pairing
	// confirmation falls back to the desktop prompt.
	agent, err := ble.RegisterAgent()
	if err != nil {
		log.Printf("Pairing agent unavailable: %v", err)
		agent = nil
	}

	// Radio and session
	radio := ble.NewTinygoRadio()
	sessOpts := session.DefaultOptions()
	sessOpts.DeviceName = cfg.DeviceName
	sessOpts.AdvertisingInterval = cfg.AdvertisingInterval()
	sessOpts.Descriptor = desc.Blob()
	sessOpts.Bonds = bonds
	manager := session.NewManager(radio, sessOpts)

	// Telemetry. A publish failure is never fatal; the bridge runs the same
	// with events disabled.
	var pub telemetry.Publisher = telemetry.Nop{}
	var broker telemetry.ConnectionStatus
	if cfg.Telemetry.Broker != "" {
		real, err := telemetry.NewRealPublisher(cfg.Telemetry.Broker, cfg.Telemetry.TopicPrefix)
		if err != nil {
			log.Printf("Telemetry unavailable: %v (events disabled)", err)
		} else {
			async := telemetry.NewAsync(real, cfg.Telemetry.Queue)
			pub = async
			broker = async
			log.Printf("Telemetry connected to %s", cfg.Telemetry.Broker)
		}
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		DeviceName:  cfg.DeviceName,
		Driver:      cfg.Input.Driver,
		Device:      inputDetail(cfg),
		TickHz:      cfg.TickHz,
		DebounceMs:  int64(cfg.DebounceMs),
		HeartbeatMs: int64(cfg.HeartbeatMs),
		Broker:      cfg.Telemetry.Broker,
		HTTPAddr:    cfg.Status.HTTP,
	})

	b, err := bridge.New(bridge.Options{
		Source:    src,
		Mapper:    mapper,
		Encoder:   encoder,
		Session:   manager,
		Telemetry: pub,
		Tracker:   tracker,
		Lamp:      lamp,
		Broker:    broker,
		Heartbeat: cfg.HeartbeatInterval(),
	})
	if err != nil {
		log.Fatalf("bridge: %v", err)
	}

	// Session hooks must be installed before Start.
	manager.OnTransition(func(tr session.Transition) {
		snap := manager.Snapshot()
		var peerAddr, connID string
		var bonded bool
		if snap.Peer != nil {
			peerAddr, connID, bonded = snap.Peer.Addr, snap.Peer.ID, snap.Peer.Bonded
		}
		tracker.UpdateSession(tr.To.String(), peerAddr, connID, bonded)
		pub.PublishSession(telemetry.SessionEvent{
			At:       tr.At,
			State:    tr.To.String(),
			PeerAddr: peerAddr,
			ConnID:   connID,
			Bonded:   bonded,
		})
		if tr.To == session.Connected {
			// A new subscriber needs the current state even if no key has
			// moved since the last peer left.
			b.ForceResend()
		}
	})
	manager.OnControlWrite(b.HandleControlWrite)

	// The radio is the one component the bridge cannot run without.
	if err := manager.Start(); err != nil {
		log.Fatalf("Failed to start BLE session: %v\n\nCheck that the adapter is present and powered (bluetoothctl power on).", err)
	}

	var statusSrv *status.Server
	if cfg.Status.HTTP != "" {
		statusSrv = status.NewServer(cfg.Status.HTTP, tracker)
		go func() {
			if err := statusSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("[Status] server stopped", "error", err)
			}
		}()
		log.Printf("Status page at http://%s/", cfg.Status.HTTP)
	}

	pub.PublishSystem(telemetry.SystemEvent{At: time.Now(), Event: "STARTUP"})

	ctx, cancel := context.WithCancel(context.Background())
	ticker := time.NewTicker(cfg.TickPeriod())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, ticker.C, time.Now) }()

	log.Printf("Ready! Advertising as %q, reports at %d Hz. Ctrl+C to quit.", cfg.DeviceName, cfg.TickHz)

	// Signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received %s, shutting down...", sig)

	cancel()
	<-done
	ticker.Stop()

	pub.PublishSystem(telemetry.SystemEvent{At: time.Now(), Event: "SHUTDOWN", Reason: sig.String()})

	if err := manager.Shutdown(); err != nil {
		log.Printf("ERROR: session shutdown: %v", err)
	}
	if statusSrv != nil {
		shutCtx, cancelShut := context.WithTimeout(context.Background(), 2*time.Second)
		statusSrv.Shutdown(shutCtx)
		cancelShut()
	}
	if agent != nil {
		agent.Close()
	}
	if err := src.Close(); err != nil {
		log.Printf("ERROR: input close: %v", err)
	}
	if err := pub.Close(); err != nil {
		log.Printf("ERROR: telemetry close: %v", err)
	}

	log.Println("Goodbye!")
	// Exit directly to avoid gohook's C cleanup crash when the keyboard
	// driver is active. The OS reclaims the event hook on process exit.
	os.Exit(0)
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// openSource opens the configured controller driver. The second return is
// non-nil only for drivers with a lamp output.
func openSource(cfg *config.Config) (input.Source, input.LampControl, error) {
	switch cfg.Input.Driver {
	case "joystick":
		src, err := input.OpenJoystick(cfg.Input.Device)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	case "gpio":
		g, err := input.OpenGPIO(cfg.Input.GPIO.Chip, cfg.Input.GPIO.KeyPins, cfg.Input.GPIO.LampPin)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Input.GPIO.LampPin >= 0 {
			return g, g, nil
		}
		return g, nil, nil
	case "keyboard":
		k, err := input.OpenKeyboard(cfg.Input.Keyboard.Keys)
		if err != nil {
			return nil, nil, err
		}
		return k, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown input driver %q", cfg.Input.Driver)
	}
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== padbridge ===")
	fmt.Printf("  Device:    %s\n", cfg.DeviceName)
	fmt.Printf("  Input:     %s (%s)\n", cfg.Input.Driver, inputDetail(cfg))
	fmt.Printf("  Tick:      %d Hz, debounce %d ms\n", cfg.TickHz, cfg.DebounceMs)
	fmt.Printf("  Bonds:     %s\n", cfg.Bond.Path)
	fmt.Printf("  Telemetry: %s\n", orDisabled(cfg.Telemetry.Broker))
	fmt.Printf("  Status:    %s\n", orDisabled(cfg.Status.HTTP))
	fmt.Printf("  Log:       %s (%s)\n", cfg.Log.Level, cfg.Log.Format)
	fmt.Println("=================")
}

func inputDetail(cfg *config.Config) string {
	switch cfg.Input.Driver {
	case "joystick":
		return cfg.Input.Device
	case "gpio":
		return fmt.Sprintf("%s, %d pins", cfg.Input.GPIO.Chip, len(cfg.Input.GPIO.KeyPins))
	case "keyboard":
		return strings.Join(cfg.Input.Keyboard.Keys, "+")
	}
	return ""
}

func orDisabled(s string) string {
	if s == "" {
		return "disabled"
	}
	return s
}
