package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/cardkeeper/internal/client/aspects"
	"github.com/dmitrijs2005/cardkeeper/internal/client/client"
	"github.com/dmitrijs2005/cardkeeper/internal/client/config"
	"github.com/dmitrijs2005/cardkeeper/internal/client/pipeline"
	aspectsrepo "github.com/dmitrijs2005/cardkeeper/internal/client/repositories/aspects"
	"github.com/dmitrijs2005/cardkeeper/internal/client/services"
	"github.com/dmitrijs2005/cardkeeper/internal/client/session"
	"github.com/dmitrijs2005/cardkeeper/internal/client/sources"
	"github.com/dmitrijs2005/cardkeeper/internal/common"
	"github.com/dmitrijs2005/cardkeeper/internal/flagx"
	"github.com/dmitrijs2005/cardkeeper/internal/logging"
	"github.com/dmitrijs2005/cardkeeper/internal/netx"
)

// AspectsSource resolves the aspects of an eBay category.
type AspectsSource interface {
	Get(ctx context.Context, categoryID string) (*aspects.Document, error)
}

type App struct {
	config    *config.Config
	auth      services.AuthService
	inventory services.InventoryService
	aspects   AspectsSource
	log       logging.Logger
	session   *session.Session
	reader    *bufio.Reader
	out       io.Writer
	now       func() time.Time
}

// NewApp wires the services against the configured endpoints. db must be
// migrated already.
func NewApp(c *config.Config, db *sql.DB, log logging.Logger) *App {
	api := client.NewHTTPClient(c.APIBaseURL, c.RequestTimeout)
	asp := aspects.NewService(
		c.AspectsBaseURL,
		c.AspectsTTL,
		&http.Client{Timeout: c.RequestTimeout},
		aspectsrepo.NewSQLiteRepository(db),
		log,
	)

	return &App{
		config:    c,
		auth:      services.NewAuthService(api, db),
		inventory: services.NewInventoryService(api, netx.NewUploader(c.UploadTimeout), asp, c, log),
		aspects:   asp,
		log:       log,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
		now:       time.Now,
	}
}

// Run restores the stored session and serves the REPL until the user
// exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to cardkeeper CLI (type 'help' for commands)")
	a.restoreSession(ctx)
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) restoreSession(ctx context.Context) {
	s, err := a.auth.Current(ctx)
	switch {
	case err == nil:
		a.session = s
		printlnFn(fmt.Sprintf("Logged in as %s", s.Username))
	case errors.Is(err, common.ErrSessionExpired):
		printlnFn("Your session has expired. Please log in again.")
	case errors.Is(err, common.ErrNoSession):
	default:
		a.log.Warn(ctx, "restoring session failed", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) getStatus() string {
	if a.session == nil {
		return ""
	}
	return fmt.Sprintf("(%s)", a.session.Username)
}

// usageError carries the usage line of a command invoked with bad
// arguments.
type usageError struct {
	usage string
}

func (e *usageError) Error() string { return "Usage: " + e.usage }

// ReportError turns a command failure into one line for the user. The
// full error is logged; the user sees what to do next.
func (a *App) ReportError(ctx context.Context, cmd string, err error) {
	if err == nil {
		return
	}
	a.log.Error(ctx, "command failed", "command", cmd, "error", err)

	var (
		usage    *usageError
		grouping *pipeline.InvalidGroupingError
		invalid  *services.ValidationError
	)

	switch {
	case errors.As(err, &usage):
		printlnFn(usage.Error())
	case errors.Is(err, common.ErrNoSession):
		printlnFn("Please log in first.")
	case errors.Is(err, common.ErrSessionExpired), errors.Is(err, client.ErrUnauthorized):
		a.session = nil
		printlnFn("Your session has expired. Please log in again.")
	case errors.Is(err, context.Canceled):
		printlnFn("Cancelled.")
	case errors.As(err, &grouping):
		if grouping.Count == 0 {
			printlnFn("No images selected.")
		} else {
			printlnFn(fmt.Sprintf("%d images cannot be split into listings of %d photos.", grouping.Count, grouping.GroupSize))
		}
	case errors.As(err, &invalid):
		printlnFn(fmt.Sprintf("Inventory data does not match category %s:", invalid.Category))
		for _, p := range invalid.Problems {
			printlnFn("  - " + p)
		}
	case errors.Is(err, sources.ErrNoImages):
		printlnFn("No images found.")
	case errors.Is(err, sources.ErrNotImage), errors.Is(err, sources.ErrDuplicateName),
		errors.Is(err, services.ErrNotArchive), errors.Is(err, services.ErrInvalidPhotos),
		errors.Is(err, flagx.ErrEmptyKey), errors.Is(err, os.ErrNotExist):
		printlnFn(err.Error())
	case errors.Is(err, common.ErrNotFound):
		printlnFn("Inventory item not found.")
	case client.IsTransient(err):
		printlnFn("Inventory service is unavailable. Please try again later.")
	case errors.Is(err, aspects.ErrFetch), errors.Is(err, aspects.ErrInvalidFormat):
		printlnFn("Could not load category aspects. Please try again.")
	default:
		printlnFn("Something went wrong. Please try again.")
	}
}
