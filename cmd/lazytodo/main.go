package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/Joseda-hg/lazytodo/internal/app"
	"github.com/Joseda-hg/lazytodo/internal/config"
	"github.com/Joseda-hg/lazytodo/internal/logging"
	"github.com/Joseda-hg/lazytodo/internal/tui"
	"github.com/Joseda-hg/lazytodo/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPathFlag := flag.String("config", "", "config file path")
	dbPathFlag := flag.String("db", "", "sqlite db path")
	webFlag := flag.Bool("web", false, "enable web server")
	webOnlyFlag := flag.Bool("web-only", false, "run web server only")
	portFlag := flag.Int("port", 0, "web server port")
	modeFlag := flag.String("mode", "", "persistence mode: local or remote")
	userFlag := flag.String("user", "", "owning user id for remote mode")
	flag.Parse()

	cfgPath, err := resolveConfigPath(*configPathFlag)
	if err != nil {
		log.Fatal("resolve config path", "err", err)
	}

	cfg, err := config.Resolve(cfgPath, func(cfg *config.Config) {
		if *dbPathFlag != "" {
			cfg.DBPath = *dbPathFlag
		}
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "lazytodo.db")
		}
		if *webFlag || *webOnlyFlag {
			cfg.WebEnabled = true
		}
		if *portFlag != 0 {
			cfg.WebPort = *portFlag
		}
		if *modeFlag != "" {
			cfg.Mode = *modeFlag
		}
		if *userFlag != "" {
			cfg.UserID = *userFlag
		}
		if cfg.LogPath == "" {
			cfg.LogPath = filepath.Join(filepath.Dir(cfgPath), "lazytodo.log")
		}
	})
	if err != nil {
		log.Fatal("load config", "path", cfgPath, "err", err)
	}
	if err := config.EnsureDir(cfg.DBPath); err != nil {
		log.Fatal("create data dir", "err", err)
	}

	logger, closer, err := newLogger(cfg, *webOnlyFlag)
	if err != nil {
		log.Fatal("open log", "path", cfg.LogPath, "err", err)
	}

	if *webOnlyFlag {
		code := runWebOnly(cfg, logger)
		_ = closer.Close()
		os.Exit(code)
	}

	err = runTUI(cfg, logger)
	_ = closer.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger writes to stderr for the headless server and to the log file
// when the terminal UI owns the screen.
func newLogger(cfg config.Config, headless bool) (*log.Logger, io.Closer, error) {
	opts := logging.DefaultOptions()
	opts.Level = cfg.LogLevel
	opts.Format = cfg.LogFormat
	if headless {
		return logging.New(os.Stderr, opts), io.NopCloser(nil), nil
	}
	return logging.NewFile(cfg.LogPath, opts)
}

func runWebOnly(cfg config.Config, logger *log.Logger) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := app.Open(ctx, cfg, logger, app.Options{Alerts: os.Stdout})
	if err != nil {
		logger.Error("open session", "err", err)
		return 1
	}
	if err := session.Start(ctx); err != nil {
		logger.Error("start session", "err", err)
		_ = session.Close()
		return 1
	}

	server := newHTTPServer(ctx, cfg, session, logger)
	go func() {
		logger.Info("web server running", "url", fmt.Sprintf("http://localhost:%d", cfg.WebPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("web server", "err", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"web": func(ctx context.Context) error {
				logger.Info("shutting down web server")
				return server.Shutdown(ctx)
			},
			"session": func(context.Context) error {
				cancel()
				return session.Close()
			},
		},
	)

	exitCode := <-wait
	logger.Info("exited", "code", exitCode)
	return exitCode
}

func runTUI(cfg config.Config, logger *log.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := app.Open(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		return err
	}

	if cfg.WebEnabled {
		server := newHTTPServer(ctx, cfg, session, logger)
		go func() {
			logger.Info("web server running", "url", fmt.Sprintf("http://localhost:%d", cfg.WebPort))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("web server", "err", err)
			}
		}()
		defer func() {
			cancel()
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	return tui.Run(ctx, session.Store, session.Hub)
}

// newHTTPServer ties request contexts to ctx so open reminder streams end
// when the session stops.
func newHTTPServer(ctx context.Context, cfg config.Config, session *app.Session, logger *log.Logger) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebPort),
		Handler:           web.NewServer(session.Store, session.Hub, logger.WithPrefix("web")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}
