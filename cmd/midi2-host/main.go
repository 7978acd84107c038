// Command midi2-host runs SysEx7 handlers behind in-memory UMP endpoints.
//
// Every configured handler is registered, given a loopback endpoint, and
// served by a poller that routes Vendor-JSON and Property Exchange traffic.
// With -listen, TCP clients can exchange word frames with the first handler.
//
// Usage:
//
//	midi2-host [flags]
//
// Flags:
//
//	-config string     YAML configuration file
//	-group int         UMP group for console traffic (0-15)
//	-poll duration     Poll interval (default 10ms)
//	-capture string    Protocol capture file (.ulog)
//	-listen string     TCP address for word-frame clients
//	-log-level string  Log level: debug, info, warn, error
//	-interactive       Enable the interactive console
//
// Examples:
//
//	# Run the default canvas with a console
//	midi2-host -interactive
//
//	# Run from a config file and capture all traffic
//	midi2-host -config host.yaml -capture /tmp/host.ulog
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fountain-coach/midi2-go/cmd/midi2-host/interactive"
	"github.com/fountain-coach/midi2-go/pkg/config"
	"github.com/fountain-coach/midi2-go/pkg/log"
	"github.com/fountain-coach/midi2-go/pkg/version"
)

type flags struct {
	configFile  string
	group       int
	poll        time.Duration
	capture     string
	listen      string
	logLevel    string
	interactive bool
	version     bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*flags, error) {
	f := &flags{}
	fs.StringVar(&f.configFile, "config", "", "YAML configuration file")
	fs.IntVar(&f.group, "group", -1, "UMP group for console traffic (0-15)")
	fs.DurationVar(&f.poll, "poll", 0, "Poll interval (default 10ms)")
	fs.StringVar(&f.capture, "capture", "", "Protocol capture file (.ulog)")
	fs.StringVar(&f.listen, "listen", "", "TCP address for word-frame clients")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVar(&f.interactive, "interactive", false, "Enable the interactive console")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// loadConfig reads the config file, if any, and lets flags override it.
func loadConfig(f *flags) (*config.Config, error) {
	cfg := &config.Config{}
	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.group >= 0 {
		if f.group > 0xFF {
			return nil, fmt.Errorf("%w: group %d out of range", config.ErrInvalid, f.group)
		}
		cfg.Group = uint8(f.group)
	}
	if f.poll != 0 {
		cfg.PollInterval = f.poll
	}
	if f.capture != "" {
		cfg.CapturePath = f.capture
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func main() {
	f, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if f.version {
		fmt.Println("midi2-host", version.String())
		return
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if err := run(cfg, f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, f *flags) error {
	logger := newLogger(os.Stderr, cfg.Level())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var console *interactive.Console
	if f.interactive {
		c, err := interactive.New(interactive.Config{Group: cfg.Group})
		if err != nil {
			return err
		}
		console = c
		// Log through readline so output does not break the prompt.
		logger = newLogger(console.Stdout(), cfg.Level())
	}
	slog.SetDefault(logger)

	var capture log.Logger
	var fileLogger *log.FileLogger
	if cfg.CapturePath != "" {
		fl, err := log.NewFileLogger(cfg.CapturePath)
		if err != nil {
			return fmt.Errorf("open capture: %w", err)
		}
		fileLogger = fl
		capture = fl
		logger.Info("capturing protocol events", "path", cfg.CapturePath)
	}
	if cfg.Level() <= slog.LevelDebug {
		capture = log.NewMultiLogger(capture, log.NewSlogAdapter(logger))
	}

	host, err := NewHost(cfg, logger, capture)
	if err != nil {
		return err
	}
	if err := host.Start(ctx); err != nil {
		return err
	}
	logger.Info("midi2-host started",
		"version", version.String(), "handlers", len(cfg.Handlers),
		"group", cfg.Group, "poll", cfg.PollInterval)

	if f.listen != "" {
		ln, err := net.Listen("tcp", f.listen)
		if err != nil {
			host.Stop()
			return fmt.Errorf("listen: %w", err)
		}
		logger.Info("accepting stream clients", "addr", ln.Addr().String())
		go func() {
			if err := host.Serve(ctx, ln); err != nil {
				logger.Error("serve failed", "error", err)
			}
		}()
	}

	if console != nil {
		console.Attach(host.Hub(), host.Registry())
		for _, hc := range cfg.Handlers {
			if ep, ok := host.Endpoint(hc.Name); ok {
				name := ep.Name()
				ep.Observe(func(words []uint32) { console.PrintReply(name, words) })
			}
		}
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	cancel()
	host.Stop()

	if fileLogger != nil {
		written, dropped := fileLogger.Counts()
		if err := fileLogger.Close(); err != nil {
			logger.Warn("closing capture failed", "error", err)
		}
		logger.Info("capture closed", "events", written, "dropped", dropped)
	}
	return nil
}
