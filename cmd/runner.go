package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spoticamper/internal/formatter"
	"github.com/desertthunder/spoticamper/internal/models"
	"github.com/desertthunder/spoticamper/internal/repositories"
	"github.com/desertthunder/spoticamper/internal/services"
	"github.com/desertthunder/spoticamper/internal/shared"
	"github.com/desertthunder/spoticamper/internal/tasks"
	"github.com/urfave/cli/v3"
)

const historyLimit = 10

// Runner holds all dependencies for the CLI and provides the root action.
type Runner struct {
	config         *shared.Config
	creds          *shared.Credentials
	playlists      services.PlaylistSource
	market         services.Marketplace
	httpClient     *http.Client
	logger         *log.Logger
	output         io.Writer
	progressOutput io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Nil Config and Credentials are loaded from --config and the environment. Nil services are built from them.
type RunnerOpts struct {
	Config         *shared.Config
	Credentials    *shared.Credentials
	Playlists      services.PlaylistSource
	Marketplace    services.Marketplace
	HTTPClient     *http.Client
	Logger         *log.Logger
	Output         io.Writer
	ProgressOutput io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ProgressOutput == nil {
		opts.ProgressOutput = os.Stderr
	}

	return &Runner{
		config:         opts.Config,
		creds:          opts.Credentials,
		playlists:      opts.Playlists,
		market:         opts.Marketplace,
		httpClient:     opts.HTTPClient,
		logger:         opts.Logger,
		output:         opts.Output,
		progressOutput: opts.ProgressOutput,
	}
}

// runOptions are the operations requested on the command line.
type runOptions struct {
	playlist      string
	unpurchased   bool
	stats         bool
	refresh       bool
	retryNotFound bool
	history       bool
	statePath     string
	format        formatter.Format
}

func (o runOptions) needsSpotify() bool  { return o.playlist != "" }
func (o runOptions) needsBandcamp() bool { return o.playlist != "" || o.refresh }

// Run executes the requested operations against the state file.
//
// Every step aborts on the first error and the state file is then left as it was.
// The state is saved whenever the run succeeds, even if nothing changed.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	started := time.Now()

	if err := r.loadConfig(cmd.String("config"), cmd.IsSet("config")); err != nil {
		return err
	}
	shared.ConfigureLogger(r.logger, r.config.Log)
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	opts := runOptions{
		playlist:      cmd.String("playlist"),
		unpurchased:   cmd.Bool("unpurchased"),
		stats:         cmd.Bool("stats"),
		refresh:       cmd.Bool("refresh_purchased"),
		retryNotFound: cmd.Bool("retry-not-found"),
		history:       cmd.Bool("history"),
		statePath:     cmd.String("state"),
		format:        format,
	}
	if opts.statePath == "" {
		opts.statePath = r.config.State.Path
	}

	if r.creds == nil {
		if r.creds, err = shared.LoadCredentials(cmd.String("env-file")); err != nil {
			return err
		}
	}
	if err := r.requireCredentials(opts); err != nil {
		return err
	}

	if r.httpClient == nil {
		r.httpClient = services.NewHTTPClient(r.config.HTTP.Timeout())
	}

	store := repositories.NewStateStore(opts.statePath, r.config.State.Pretty, r.logger)
	unlock, err := store.Lock()
	if err != nil {
		return err
	}
	defer unlock()

	state, err := store.Load()
	if err != nil {
		return err
	}

	run, err := r.reconcile(ctx, opts, state)
	if err != nil {
		return err
	}

	if err := store.Save(state); err != nil {
		return err
	}

	run.StartedAt = started
	run.FinishedAt = time.Now()
	r.recordHistory(run, opts.history)
	return nil
}

// loadConfig reads the TOML config when present. A missing file is an error only when the path was given explicitly.
func (r *Runner) loadConfig(path string, explicit bool) error {
	if r.config != nil {
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			r.logger.Debug("config file not found, using defaults", "path", path)
			r.config = shared.DefaultConfig()
			return nil
		}
		return fmt.Errorf("%w: %s: %v", shared.ErrMissingConfig, path, err)
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config
	return nil
}

// requireCredentials fails before any I/O when an operation lacks the variables it needs.
func (r *Runner) requireCredentials(opts runOptions) error {
	if opts.needsSpotify() {
		if err := r.creds.RequireSpotify(); err != nil {
			return err
		}
	}
	if opts.needsBandcamp() {
		if err := r.creds.RequireBandcamp(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) playlistSource() (services.PlaylistSource, error) {
	if r.playlists != nil {
		return r.playlists, nil
	}
	return services.NewSpotifyService(services.SpotifyOpts{
		ClientID:     r.creds.SpotifyClientID,
		ClientSecret: r.creds.SpotifyClientSecret,
		TokenURL:     r.config.Spotify.TokenURL,
		BaseURL:      r.config.Spotify.APIURL,
		HTTPClient:   r.httpClient,
		Retry:        services.RetryPolicyFrom(r.config.HTTP),
	})
}

func (r *Runner) marketplace() services.Marketplace {
	if r.market != nil {
		return r.market
	}
	return services.NewBandcampService(services.BandcampOpts{
		BaseURL:    r.config.Bandcamp.BaseURL,
		Username:   r.creds.BandcampUsername,
		Token:      r.creds.BandcampToken,
		RateLimit:  r.config.Bandcamp.RateLimit,
		HTTPClient: r.httpClient,
		Retry:      services.RetryPolicyFrom(r.config.HTTP),
		Logger:     shared.WithLogger(r.logger, "component", "bandcamp"),
	})
}

// reconcile runs the requested operations in their fixed order and returns the run record without timestamps.
func (r *Runner) reconcile(ctx context.Context, opts runOptions, state *models.State) (*models.Run, error) {
	run := &models.Run{}

	var playlists services.PlaylistSource
	if opts.needsSpotify() {
		var err error
		if playlists, err = r.playlistSource(); err != nil {
			return nil, err
		}
	}
	engine := tasks.NewReconciler(playlists, r.marketplace(), shared.WithLogger(r.logger, "component", "reconciler"))

	if opts.playlist != "" {
		var result *tasks.SyncResult
		err := r.withProgress(func(progress chan<- tasks.ProgressUpdate) (err error) {
			result, err = engine.Sync(ctx, progress, state, opts.playlist)
			return err
		})
		if err != nil {
			return nil, err
		}

		run.Playlist = result.Import.PlaylistID
		run.Registered = result.Import.Registered
		run.Searched += result.Resolve.Searched
		run.Found += result.Resolve.Found
		run.Purchased += result.Purchased

		r.writePlain("registered %d albums from spotify\n", result.Import.Registered)
		r.writePlain("%d albums newly registered as purchased\n", result.Purchased)
	}

	if opts.retryNotFound {
		var (
			reset  int
			result *tasks.ResolveResult
		)
		err := r.withProgress(func(progress chan<- tasks.ProgressUpdate) (err error) {
			reset, result, err = engine.RetryNotFound(ctx, progress, state)
			return err
		})
		if err != nil {
			return nil, err
		}

		run.Searched += result.Searched
		run.Found += result.Found
		r.writePlain("%d albums searched again, %d found\n", reset, result.Found)
	}

	if opts.unpurchased {
		if err := formatter.WriteUnpurchased(r.output, state.Unpurchased(), opts.format); err != nil {
			return nil, err
		}
	}

	if opts.stats {
		if err := formatter.WriteStats(r.output, state.Stats()); err != nil {
			return nil, err
		}
	}

	if opts.refresh {
		var newly int
		err := r.withProgress(func(progress chan<- tasks.ProgressUpdate) (err error) {
			newly, err = engine.RefreshPurchased(ctx, progress, state)
			return err
		})
		if err != nil {
			return nil, err
		}

		run.Purchased += newly
		r.writePlain("%d albums newly registered as purchased\n", newly)
	}

	run.Albums = len(state.Albums)
	return run, nil
}

// withProgress runs fn with a progress channel rendered on the progress output, and waits for rendering to finish.
func (r *Runner) withProgress(fn func(chan<- tasks.ProgressUpdate) error) error {
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		renderProgress(r.progressOutput, progress, r.logger)
	}()

	err := fn(progress)
	close(progress)
	<-done
	return err
}

// recordHistory stores run and optionally prints recent runs. Failures are logged and never fail the run.
func (r *Runner) recordHistory(run *models.Run, show bool) {
	if r.config.Database.Path == "" {
		if show {
			r.logger.Warn("run history is disabled (database.path is empty)")
		}
		return
	}

	db, err := shared.OpenHistoryDatabase(r.config.Database)
	if err != nil {
		r.logger.Warn("failed to open run history", "path", r.config.Database.Path, "err", err)
		return
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)
	if err := repo.Create(run); err != nil {
		r.logger.Warn("failed to record run", "err", err)
	}

	if !show {
		return
	}

	runs, err := repo.Recent(historyLimit)
	if err != nil {
		r.logger.Warn("failed to read run history", "err", err)
		return
	}
	r.writePlain("%s\n", formatter.RenderRuns(runs))
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
