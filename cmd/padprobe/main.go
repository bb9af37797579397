// Command padprobe is a manual test for the input chain. It opens the
// configured controller driver, runs the debouncer at the configured tick
// rate, and prints every committed key edge together with the report bytes it
// would notify. No radio is involved.
//
// Usage:
//
//	go run ./cmd/padprobe [--config path] [--once]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/enokida/padbridge/internal/config"
	"github.com/enokida/padbridge/internal/debounce"
	"github.com/enokida/padbridge/internal/input"
	"github.com/enokida/padbridge/internal/report"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/padbridge/config.yaml)")
	once := flag.Bool("once", false, "print a single raw sample and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	km, err := cfg.KeymapBindings()
	if err != nil {
		log.Fatalf("keymap: %v", err)
	}
	mapper := debounce.NewMapper(km, cfg.DebounceInterval())
	encoder := report.NewEncoder(report.Descriptor{MaxPressed: cfg.Report.MaxPressed})

	src, err := openSource(cfg)
	if err != nil {
		log.Fatalf("Failed to open input source: %v", err)
	}

	if *once {
		// Give stream drivers one period to fill in the first state.
		time.Sleep(cfg.TickPeriod())
		state, err := src.Sample()
		if err != nil {
			fmt.Printf("sample error: %v\n", err)
		}
		fmt.Printf("buttons %016b  scratch %d\n", state.Buttons, state.Scratch)
		src.Close()
		return
	}

	fmt.Printf("Probing %s every %v (debounce %v). Ctrl+C to exit.\n",
		cfg.Input.Driver, cfg.TickPeriod(), cfg.DebounceInterval())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.TickPeriod())
	defer ticker.Stop()

	var last report.Report
	var lastErr string
	for {
		select {
		case <-sig:
			fmt.Println("\nDone.")
			src.Close()
			// Exit directly to avoid gohook's C cleanup crash when the
			// keyboard driver is active.
			os.Exit(0)

		case <-ticker.C:
			now := time.Now()
			state, err := src.Sample()
			if msg := errString(err); msg != lastErr {
				lastErr = msg
				if msg != "" {
					fmt.Printf("!!! %s\n", msg)
				} else {
					fmt.Println("!!! recovered")
				}
			}

			for _, ev := range mapper.Update(state, now) {
				if ev.Pressed {
					fmt.Printf(">>> %s pressed\n", ev.Key)
				} else {
					fmt.Printf("<<< %s released\n", ev.Key)
				}
			}

			r, err := encoder.Encode(mapper.Pressed(), mapper.Scratch())
			if err != nil {
				fmt.Printf("!!! %v\n", err)
			}
			if r != last {
				last = r
				fmt.Printf("    report % x  (keys %s, scratch %d)\n",
					r[:], mapper.Pressed(), mapper.Scratch())
			}
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		return config.Load(defaultPath)
	}
	return config.Default(), nil
}

func openSource(cfg *config.Config) (input.Source, error) {
	switch cfg.Input.Driver {
	case "joystick":
		return input.OpenJoystick(cfg.Input.Device)
	case "gpio":
		return input.OpenGPIO(cfg.Input.GPIO.Chip, cfg.Input.GPIO.KeyPins, cfg.Input.GPIO.LampPin)
	case "keyboard":
		return input.OpenKeyboard(cfg.Input.Keyboard.Keys)
	default:
		return nil, fmt.Errorf("unknown input driver %q", cfg.Input.Driver)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
