package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2/app"

	"github.com/benkraft/piano-typer/internal/config"
	"github.com/benkraft/piano-typer/internal/dispatch"
	"github.com/benkraft/piano-typer/internal/display"
	"github.com/benkraft/piano-typer/internal/inject"
	"github.com/benkraft/piano-typer/internal/keybind"
	"github.com/benkraft/piano-typer/internal/midi"
	"github.com/benkraft/piano-typer/internal/program"
)

func main() {
	listPorts := flag.Bool("list", false, "list MIDI input devices and exit")
	pianoMode := flag.Bool("p", false, "piano mode: display only, no input injection")
	noKeyLog := flag.Bool("nl", false, "turn off the keystroke log")
	deviceName := flag.String("device", "", "MIDI input device name (default: first available)")
	configPath := flag.String("config", "", "path to config.json (default: user config dir)")
	flag.Parse()

	if *listPorts {
		names := midi.ListPorts()
		if len(names) == 0 {
			fmt.Println("(no MIDI input devices)")
			return
		}
		for i, name := range names {
			fmt.Printf("[%d] %s\n", i, name)
		}
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *pianoMode {
		cfg.PianoMode = true
		log.Println("Starting in piano mode...")
	}
	if *noKeyLog {
		cfg.KeyLog = false
	}
	if *deviceName != "" {
		cfg.DeviceName = *deviceName
	}

	// Keybinds are startup-fatal when malformed; a missing file just means
	// the built-in table.
	table, err := keybind.Load(cfg.KeybindsPath)
	if err != nil {
		log.Fatalf("Failed to load keybinds: %v", err)
	}

	// Open the MIDI device before any window appears, so "no device" is a
	// clean startup error.
	device, err := midi.Open(cfg.DeviceName)
	if err != nil {
		log.Fatalf("Failed to open MIDI device: %v", err)
	}
	defer midi.CloseDriver()
	defer device.Close()
	log.Printf("Starting input using device: %s", device.Name())

	fyneApp := app.NewWithID("com.benkraft.piano-typer")

	opts := display.Options{
		NumOctaves:  cfg.NumOctaves,
		StartOctave: cfg.StartOctave,
		FrameRate:   cfg.FrameRate,
	}
	surface := display.NewFyneSurface(fyneApp, cfg.AssetsDir, opts, float32(cfg.Scale))
	disp := display.New(surface, opts)

	engine := dispatch.New(table, inject.NewRobot(), !cfg.PianoMode)

	prog := program.New(device, engine, disp, table, program.Options{
		PianoMode:   cfg.PianoMode,
		KeyLog:      cfg.KeyLog,
		Sensitivity: cfg.Sensitivity,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The run loop drives everything from its own goroutine; Fyne owns the
	// main thread until the loop finishes and quits the app.
	go func() {
		if err := prog.Run(ctx); err != nil {
			log.Printf("Session ended: %v", err)
		}
		fyneApp.Quit()
	}()

	fyneApp.Run()
	log.Println("Thanks for using the keyboard swap!")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		var err error
		path, err = config.Path()
		if err != nil {
			return nil, err
		}
	}
	return config.LoadOrInit(path)
}
