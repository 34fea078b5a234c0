package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog"

	"techblok-cli/internal/api"
	"techblok-cli/internal/config"
	"techblok-cli/internal/log"
	"techblok-cli/internal/session"
	"techblok-cli/internal/store"
)

// runtime bundles everything a command needs once config, token store,
// session and API client are wired together.
type runtime struct {
	cfg     *config.Config
	sess    *session.Store
	client  *api.Client
	logger  zerolog.Logger
	logFile io.Closer
}

// bootstrap builds the runtime. forTUI routes logs to a file under the state
// dir (the TUI owns the terminal); CLI commands log to stderr.
func (a *App) bootstrap(forTUI bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if a.BaseURL != "" {
		cfg.APIBaseURL = a.BaseURL
	}

	rt := &runtime{cfg: cfg}
	if forTUI {
		f, err := log.OpenFile(cfg.StateDir)
		if err != nil {
			return nil, err
		}
		rt.logFile = f
		rt.logger = log.New(cfg.Environment, f)
	} else {
		rt.logger = log.New(cfg.Environment, os.Stderr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	tokens := store.Store{Dir: cfg.StateDir}
	sess, err := session.New(ctx, tokens, rt.logger)
	if err != nil {
		return nil, err
	}
	client, err := api.New(api.Config{
		BaseURL:        cfg.APIBaseURL,
		Timeout:        cfg.Timeout,
		Token:          sess.AccessToken,
		OnUnauthorized: sess.Invalidate,
		Logger:         rt.logger,
	})
	if err != nil {
		return nil, err
	}
	sess.SetClient(client)
	rt.sess = sess
	rt.client = client
	return rt, nil
}

func (rt *runtime) close() {
	if rt.logFile != nil {
		_ = rt.logFile.Close()
	}
}

var errNotLoggedIn = errors.New("not logged in (run `techblok login`)")

// requireSession restores a persisted session if needed and fails when the
// caller ends up unauthenticated.
func (rt *runtime) requireSession(ctx context.Context) error {
	if rt.sess.State() == session.StateRestoring {
		// A failed restore collapses to unauthenticated; the error itself is
		// reported below as "not logged in".
		_ = rt.sess.Restore(ctx)
	}
	if rt.sess.State() != session.StateAuthenticated {
		return errNotLoggedIn
	}
	return nil
}

func (rt *runtime) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), rt.cfg.Timeout)
}
