package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophdiary/internal/buildinfo"
	"github.com/dmitrijs2005/gophdiary/internal/client/client"
	"github.com/dmitrijs2005/gophdiary/internal/client/config"
	"github.com/dmitrijs2005/gophdiary/internal/client/keyring"
	"github.com/dmitrijs2005/gophdiary/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophdiary/internal/client/services"
	"github.com/dmitrijs2005/gophdiary/internal/client/storage"
	"github.com/dmitrijs2005/gophdiary/internal/client/transport"
	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/cryptox"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
)

type App struct {
	config *config.Config
	log    logging.Logger
	db     *sql.DB

	authService services.AuthService
	postService services.PostService

	reader *bufio.Reader
	out    io.Writer

	// readSecret reads a value without echo; replaced in tests.
	readSecret func(prompt string) (string, error)

	// pending sign-up ticket between "join" and "verify"
	ticket string
}

// NewApp opens the local key database and wires the services.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.New(cfg.LogLevel, os.Stderr)

	db, err := storage.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	tr, err := transport.New(cfg.ServerBaseURL,
		transport.WithLogger(log.With("component", "transport")),
		transport.WithUserAgent(buildinfo.UserAgent()),
		transport.WithRefreshTimeout(cfg.RefreshTimeout),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := newApp(cfg, log, client.NewRESTClient(tr), metadata.NewSQLiteRepository(db), os.Stdin, os.Stdout)
	a.db = db
	return a, nil
}

func newApp(cfg *config.Config, log logging.Logger, api client.Client, store keyring.KeyValueStore, in io.Reader, out io.Writer) *App {
	cipher := cryptox.NewAESCipher()
	keys := keyring.NewManager(cipher, store, cfg.PrivateKeyName, log.With("component", "keyring"))
	auth := services.NewAuthService(api, keys, log.With("component", "auth"))
	posts := services.NewPostService(api, keys, auth, services.NewPostCodec(cipher), log.With("component", "posts"))

	a := &App{
		config:      cfg,
		log:         log,
		authService: auth,
		postService: posts,
		reader:      bufio.NewReader(in),
		out:         out,
	}
	a.readSecret = func(prompt string) (string, error) {
		pw, err := GetPassword(prompt, a.out)
		defer common.WipeByteArray(pw)
		return string(pw), err
	}
	return a
}

// Run restores the previous session when the refresh cookie allows it and
// then blocks in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to gophdiary (type 'help' for commands)")

	rctx, cancel := a.requestContext(ctx)
	if _, err := a.authService.Restore(rctx); err == nil {
		a.printf("%s\n", successText.Sprintf("Session restored for %s", a.authService.Session().Account.Email))
		a.warnKeyStatus(ctx)
	}
	cancel()

	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) text(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.authService.Session() != nil
}

func (a *App) status() string {
	if s := a.authService.Session(); s != nil {
		return s.Account.Email
	}
	return ""
}

func (a *App) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

// call runs fn with a request timeout behind a spinner.
func (a *App) call(ctx context.Context, msg string, fn func(ctx context.Context) error) error {
	rctx, cancel := a.requestContext(ctx)
	defer cancel()
	return withSpinner(a.out, msg, func() error { return fn(rctx) })
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// describe turns service errors into short user-facing messages.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrNotLoggedIn):
		return "you are not logged in"
	case errors.Is(err, common.ErrKeyAbsent):
		return "this device has no secret key; use 'import' or 'newkey'"
	case errors.Is(err, common.ErrKeyMismatch):
		return "the secret key on this device belongs to another account; use 'import'"
	case errors.Is(err, common.ErrValidation):
		return err.Error()
	case errors.Is(err, common.ErrNotFound):
		return "not found"
	case errors.Is(err, common.ErrUnauthorized):
		return "not authorized; please log in again"
	case errors.Is(err, common.ErrConflict):
		return "already exists"
	case errors.Is(err, client.ErrRejected):
		return "the server rejected the request"
	case errors.Is(err, common.ErrNetwork):
		return "server unreachable"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return err.Error()
	}
}

func (a *App) report(err error) {
	if err == nil {
		return
	}
	a.log.Debug(context.Background(), "command failed", "error", err)
	a.printf("%s\n", errorText.Sprintf("%s", describe(err)))
}

func (a *App) warnKeyStatus(ctx context.Context) {
	st, err := a.authService.KeyStatus(ctx)
	if err != nil {
		return
	}
	switch st {
	case keyring.KeyStatusAbsent:
		a.printf("%s\n", warningText.Sprintf("no secret key on this device; posts cannot be read. Use 'import' or 'newkey'"))
	case keyring.KeyStatusMismatch:
		a.printf("%s\n", warningText.Sprintf("the secret key on this device does not match this account. Use 'import'"))
	}
}
