// Command mapsim replays a map mount against a simulated SDK and reports how the
// lifecycle handled it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/kickoff/mapkit/internal/config"
	"github.com/kickoff/mapkit/internal/logging"
	"github.com/kickoff/mapkit/internal/mapview"
	"github.com/kickoff/mapkit/internal/metrics"
	"github.com/kickoff/mapkit/internal/session"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const appName = "mapsim"

// activeSession is stamped on every text log record.
var activeSession atomic.Value

type options struct {
	configDir   string
	pointsFile  string
	logFile     bool
	showMetrics bool
	mode        string
	scenario    Scenario
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)

	fs.StringVar(&o.configDir, "config-dir", ".", "directory containing "+config.FileName)
	fs.StringVar(&o.pointsFile, "points", "", "JSON file with the points to render (default: built-in demo set)")
	fs.BoolVar(&o.logFile, "log-file", false, "also write logs to a file under logsDir")
	fs.BoolVar(&o.showMetrics, "metrics", false, "print lifecycle counters after the run")
	fs.StringVar(&o.mode, "mode", "map", "view mode to switch to once ready (list|map)")

	sc := &o.scenario
	fs.StringVar(&sc.Engine, "engine", "headless", "sdk engine (headless|js)")
	fs.StringVar(&sc.View, "view", "home", "view preset (home|detail)")
	fs.DurationVar(&sc.SdkDelay, "sdk-delay", 0, "when the sdk global appears")
	fs.DurationVar(&sc.LoadDelay, "load-delay", 50*time.Millisecond, "sdk module load time after the global appears")
	fs.BoolVar(&sc.NoSdk, "no-sdk", false, "never load the sdk")
	fs.IntVar(&sc.Width, "width", 0, "initial container width")
	fs.IntVar(&sc.Height, "height", 0, "initial container height")
	fs.DurationVar(&sc.ResizeAt, "resize-at", 150*time.Millisecond, "when the container gets its real size (0 disables)")
	fs.IntVar(&sc.ResizeWidth, "resize-width", 420, "container width after resize")
	fs.IntVar(&sc.ResizeHeight, "resize-height", 800, "container height after resize")
	fs.DurationVar(&sc.Hold, "hold", 200*time.Millisecond, "how long to keep the map mounted once ready")
	fs.DurationVar(&sc.Timeout, "timeout", 30*time.Second, "give up if the map has not settled by then")

	fs.String("log-level", "", "log level (debug|info|warn|error)")
	fs.String("log-format", "", "log format (text|json)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := viper.BindPFlag("logLevel", fs.Lookup("log-level")); err != nil {
		return nil, err
	}
	if err := viper.BindPFlag("logFormat", fs.Lookup("log-format")); err != nil {
		return nil, err
	}

	mode, ok := mapview.ParseMode(o.mode)
	if !ok {
		return nil, fmt.Errorf("unknown mode %q", o.mode)
	}
	sc.Mode = mode
	return o, nil
}

// setupLogger returns the logger and a function closing any log file.
func setupLogger(lc config.LogConfig, toFile bool) (logging.Logger, func(), error) {
	closeFn := func() {}

	var file *os.File
	if toFile {
		if err := os.MkdirAll(lc.LogsDir, 0755); err != nil {
			return nil, closeFn, fmt.Errorf("creating logs dir: %w", err)
		}
		path := logging.LogFilePath(lc.LogsDir, appName, time.Now())
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, closeFn, fmt.Errorf("opening log file: %w", err)
		}
		file = f
		closeFn = func() { _ = f.Close() }
	}

	if lc.Format == "json" {
		var w io.Writer = os.Stderr
		if file != nil {
			w = io.MultiWriter(os.Stderr, file)
		}
		return logging.NewJSONLogger(w, lc.Level), closeFn, nil
	}

	manager := logging.NewSlogManager()
	manager.Console = os.Stderr
	var fw io.Writer
	if file != nil {
		fw = file
	}
	manager.Setup(fw, lc.Level, func() []slog.Attr {
		if id, ok := activeSession.Load().(string); ok && id != "" {
			return []slog.Attr{slog.String("session", id)}
		}
		return nil
	})
	return manager.Logger(), closeFn, nil
}

func run(args []string, stdout io.Writer) int {
	o, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if err := config.Load(o.configDir); err != nil {
		config.LoadDefaults()
		fmt.Fprintf(os.Stderr, "using default config: %v\n", err)
	}

	log, closeLog, err := setupLogger(config.GetLogConfig(), o.logFile)
	defer closeLog()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	mc, err := config.GetMapConfig()
	if err != nil {
		log.Error("invalid map config", "error", err)
		return 1
	}

	points, err := loadPoints(o.pointsFile)
	if err != nil {
		log.Error("failed to load points", "error", err)
		return 1
	}
	o.scenario.Points = points

	var meters *meterReader
	if o.showMetrics {
		meters = installMeterReader()
	}
	rec, err := metrics.New()
	if err != nil {
		log.Warn("metrics disabled", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("starting scenario", "engine", o.scenario.Engine, "view", o.scenario.View, "points", len(points))
	summary, runErr := Run(ctx, o.scenario, mc, log, rec, stdout)
	if runErr != nil && !errors.Is(runErr, ErrTimedOut) {
		log.Error("scenario failed", "error", runErr)
		return 1
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Error("failed to encode summary", "error", err)
		return 1
	}
	fmt.Fprintln(stdout, string(out))

	if meters != nil {
		totals, err := meters.Totals(ctx)
		if err != nil {
			log.Warn("failed to read metrics", "error", err)
		}
		for _, name := range sortedKeys(totals) {
			fmt.Fprintf(stdout, "%-32s %d\n", name, totals[name])
		}
		_ = meters.Shutdown(ctx)
	}

	if runErr != nil || summary.State != session.Ready.String() {
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}
