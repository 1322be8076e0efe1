package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/ticketdawg/checkin/internal/auth"
	"github.com/ticketdawg/checkin/internal/camera"
	"github.com/ticketdawg/checkin/internal/config"
	"github.com/ticketdawg/checkin/internal/feed"
	"github.com/ticketdawg/checkin/internal/logging"
	"github.com/ticketdawg/checkin/internal/scanner"
	"github.com/ticketdawg/checkin/internal/status"
	"github.com/ticketdawg/checkin/internal/tui"
	"github.com/ticketdawg/checkin/pkg/client"
	"github.com/ticketdawg/checkin/pkg/domain"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const (
	sessionFileName = "session.json"
	profileTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "version", "-v":
			fmt.Fprintln(out, "checkin "+version)
			return nil
		case "help", "--help", "-h":
			printHelp(out)
			return nil
		case "logout", "follow":
		default:
			return fmt.Errorf("unknown command %q (see: checkin help)", args[0])
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logFile, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close() //nolint:errcheck

	dir, err := config.DataDir()
	if err != nil {
		return err
	}
	store := auth.NewStore(filepath.Join(dir, sessionFileName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) > 0 {
		switch args[0] {
		case "logout":
			return runLogout(store, out)
		case "follow":
			return runFollow(ctx, cfg, out)
		}
	}
	return runTerminal(ctx, cfg, store)
}

func runTerminal(ctx context.Context, cfg *config.Config, store *auth.Store) error {
	log.Info().Str("version", version).Str("gate", cfg.Gate).Str("scanner", cfg.Scanner).Msg("starting checkin")

	c := client.New(cfg.APIURL, "")
	user := resolveSession(ctx, cfg.Token, store, c)

	var sinks []scanner.Sink
	if cfg.FeedEnabled() {
		rc, err := feed.Connect(ctx, cfg.RedisURL)
		if err != nil {
			// The gate keeps working without the feed.
			log.Warn().Err(err).Msg("outcome feed disabled")
		} else {
			defer rc.Close() //nolint:errcheck
			sinks = append(sinks, feed.NewPublisher(rc, cfg.FeedChannel, cfg.Gate))
			log.Info().Str("channel", cfg.FeedChannel).Msg("publishing outcomes to redis")
		}
	}

	surfaces := scanner.NewSurfaceRegistry()
	session := scanner.NewSession(scanner.SessionConfig{
		Device:    newDevice(cfg),
		Surfaces:  surfaces,
		Validator: c,
		Controller: scanner.ControllerOptions{
			SurfaceID:      cfg.SurfaceID,
			AttachAttempts: cfg.AttachAttempts,
			AttachDelay:    cfg.AttachDelay,
			ReleaseGrace:   cfg.ReleaseGrace,
			ReleaseTimeout: cfg.ReleaseTimeout,
		},
		ValidateTimeout: cfg.ValidateTimeout,
		Sinks:           sinks,
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := session.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("scanner did not shut down cleanly")
		}
	}()

	if cfg.StatusEnabled() {
		go func() {
			if err := status.Serve(ctx, cfg.StatusAddr, status.NewRouter(session, cfg.Gate, version)); err != nil {
				log.Error().Err(err).Msg("status endpoint failed")
			}
		}()
	}

	app := tui.NewApp(tui.AppConfig{
		Client:     c,
		Store:      store,
		Session:    session,
		Surfaces:   surfaces,
		SurfaceID:  cfg.SurfaceID,
		Gate:       cfg.Gate,
		Version:    version,
		ReleaseURL: cfg.ReleaseURL,
		User:       user,
	})

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// resolveSession picks the bearer token (CHECKIN_TOKEN over the stored
// session) and checks it against the API. Only a 401 forces a new login;
// on transport errors the stored profile is trusted and the TUI retries.
func resolveSession(ctx context.Context, envToken string, store *auth.Store, c *client.Client) *domain.User {
	token := envToken
	var stored *domain.User
	sess, err := store.Load()
	switch {
	case err == nil:
		if token == "" {
			token = sess.Token
		}
		if token == sess.Token {
			stored = sess.User
		}
	case !errors.Is(err, auth.ErrNoSession):
		log.Warn().Err(err).Str("path", store.Path()).Msg("ignoring unreadable session file")
	}
	if token == "" {
		return nil
	}
	c.SetToken(token)

	ctx, cancel := context.WithTimeout(ctx, profileTimeout)
	defer cancel()
	u, err := c.GetProfile(ctx)
	if err == nil {
		return u
	}
	if client.IsStatus(err, http.StatusUnauthorized) {
		log.Info().Msg("stored session expired")
		c.SetToken("")
		if clearErr := store.Clear(); clearErr != nil {
			log.Warn().Err(clearErr).Msg("failed to clear stored session")
		}
		return nil
	}
	log.Warn().Err(err).Msg("profile check failed, continuing with stored session")
	return stored
}

// newDevice returns the code reader selected by CHECKIN_SCANNER.
func newDevice(cfg *config.Config) scanner.Device {
	if cfg.Scanner == config.ScannerSerial {
		return &camera.Serial{Device: cfg.SerialDevice}
	}
	cam := &camera.Camera{Device: cfg.CameraDevice, FPS: cfg.ScanFPS}
	if args := cfg.CaptureArgs(); len(args) > 0 {
		cam.Grabber = camera.CommandGrabber{Command: args}
	}
	return cam
}

func runLogout(store *auth.Store, out io.Writer) error {
	if _, err := store.Load(); errors.Is(err, auth.ErrNoSession) {
		fmt.Fprintln(out, "Already logged out.")
		return nil
	}
	if err := store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	fmt.Fprintln(out, "Logged out.")
	return nil
}

// runFollow prints every outcome published by any gate until interrupted.
func runFollow(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if !cfg.FeedEnabled() {
		return errors.New("follow needs CHECKIN_REDIS_URL")
	}
	rc, err := feed.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck

	fmt.Fprintf(out, "following %s (ctrl+c to stop)\n", cfg.FeedChannel)
	return rc.Follow(ctx, cfg.FeedChannel, func(ev feed.Event) {
		fmt.Fprintln(out, formatFollowEvent(ev))
	})
}
