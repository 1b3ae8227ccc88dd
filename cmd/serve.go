package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/grovetools/gcpd/cli"
	"github.com/grovetools/gcpd/config"
	"github.com/grovetools/gcpd/git"
	"github.com/grovetools/gcpd/internal/daemon/controller"
	"github.com/grovetools/gcpd/internal/daemon/engine"
	"github.com/grovetools/gcpd/internal/daemon/hub"
	"github.com/grovetools/gcpd/internal/daemon/pidfile"
	"github.com/grovetools/gcpd/internal/daemon/pipeline"
	"github.com/grovetools/gcpd/internal/daemon/server"
	"github.com/grovetools/gcpd/internal/daemon/store"
	"github.com/grovetools/gcpd/internal/daemon/terminal"
	"github.com/grovetools/gcpd/internal/daemon/trigger"
	"github.com/grovetools/gcpd/logging"
	"github.com/grovetools/gcpd/pkg/paths"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd returns the command that runs the reconciliation daemon.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cherry-pick reconciliation daemon",
		Long: `Watch the remote branches of a repository and keep the target branch equal
to the base branch plus the commits of every active branch. Observers connect
over a websocket to toggle branches and follow the git operations live.`,
		Example: `  # Rebuild "staging" from master plus any activated branches
  gcpd serve -g ~/src/app -b staging

  # Notify a deploy hook after every push
  gcpd serve -g ~/src/app -b staging --run-command "make deploy"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			applyServeFlags(cmd.Flags(), cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			cli.ConfigureLogging(cmd, cfg.Logging)
			return serve(cfg)
		},
	}

	f := cmd.Flags()
	f.StringP("git", "g", "", "Path of the local repository mirror")
	f.StringP("branch", "b", "", "Target branch to rebuild")
	f.String("base-branch", config.DefaultBaseBranch, "Base branch every rebuild starts from")
	f.String("remote", config.DefaultRemote, "Remote to read branches from and push to")
	f.String("url", "", "Clone URL used when the mirror does not exist")
	f.String("run-command", "", "Command run in the rebuilt clone after a push")
	f.String("temp-dir", "", "Parent directory for per-rebuild clones")
	f.String("poll-interval", "", "Request a pass periodically (e.g. 1m)")
	f.IntP("port", "p", config.DefaultPort, "Port observers connect to")
	f.String("bind", config.DefaultBind, "Address to listen on")
	f.String("static-dir", "", "Directory served at / for the browser UI")

	return cmd
}

// applyServeFlags copies explicitly set flags over the file configuration.
func applyServeFlags(flags *pflag.FlagSet, cfg *config.Config) {
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("git", &cfg.Repository)
	str("branch", &cfg.Branch)
	str("base-branch", &cfg.BaseBranch)
	str("remote", &cfg.Remote)
	str("url", &cfg.URL)
	str("run-command", &cfg.PostPushCommand)
	str("temp-dir", &cfg.TempDir)
	str("poll-interval", &cfg.PollInterval)
	str("bind", &cfg.Server.Bind)
	str("static-dir", &cfg.Server.StaticDir)
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
}

// daemon holds the wired components of one running instance.
type daemon struct {
	store      *store.Store
	terminal   *terminal.Multiplexer
	pipeline   *pipeline.Pipeline
	hub        *hub.Hub
	controller *controller.Controller
	server     *server.Server
	engine     *engine.Engine
}

// newDaemon wires the components for cfg. The hub observes the terminal and
// broadcasts for the controller, which in turn serves the hub's rechecks.
func newDaemon(cfg *config.Config) (*daemon, error) {
	logger := logging.NewLogger("gcpd")

	st := store.New(cfg.Branch, cfg.BaseBranch)
	mux := terminal.New(terminal.Options{
		Name:        cfg.Terminal.Name,
		Cols:        uint16(cfg.Terminal.Cols),
		Rows:        uint16(cfg.Terminal.Rows),
		ReplayBytes: cfg.Terminal.ReplayBytes,
	})
	pl := pipeline.New(mux, pipeline.Options{
		MirrorDir:       cfg.Repository,
		BaseBranch:      cfg.BaseBranch,
		TargetBranch:    cfg.Branch,
		TempDir:         cfg.TempDir,
		PostPushCommand: cfg.PostPushCommand,
	})
	h := hub.New(st, mux)
	mux.SetObserver(h)

	ctrl, err := controller.New(git.NewClient(cfg.Repository), st, pl, h, controller.Options{
		URL:          cfg.URL,
		Remote:       cfg.Remote,
		BaseBranch:   cfg.BaseBranch,
		TargetBranch: cfg.Branch,
		Include:      cfg.Branches.Include,
		Exclude:      cfg.Branches.Exclude,
	})
	if err != nil {
		return nil, err
	}
	h.SetController(ctrl)

	srv := server.New(h, ctrl, server.Options{StaticDir: cfg.Server.StaticDir})
	srv.SetRunningInfo(&server.RunningInfo{
		Repository:   cfg.Repository,
		TargetBranch: cfg.Branch,
		BaseBranch:   cfg.BaseBranch,
		Remote:       cfg.Remote,
		StartedAt:    time.Now(),
	})

	eng := engine.New(ctrl, logger)
	if every := cfg.PollEvery(); every > 0 {
		eng.Register(trigger.NewPoller(every))
	}

	d := &daemon{
		store:      st,
		terminal:   mux,
		pipeline:   pl,
		hub:        h,
		controller: ctrl,
		server:     srv,
		engine:     eng,
	}

	if cfg.Path != "" {
		watcher, err := trigger.NewConfigWatcher(cfg.Path, trigger.DefaultDebounce, d.reload)
		if err != nil {
			logger.WithError(err).Warn("Config file changes will not be picked up")
		} else {
			eng.Register(watcher)
		}
	}
	return d, nil
}

// reload applies the settings that can change without a restart.
func (d *daemon) reload(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := d.controller.SetBranchFilter(cfg.Branches.Include, cfg.Branches.Exclude); err != nil {
		return err
	}
	d.pipeline.SetPostPushCommand(cfg.PostPushCommand)
	logging.NewLogger("gcpd").WithField("path", path).Info("Configuration reloaded")
	return nil
}

func serve(cfg *config.Config) error {
	logger := logging.NewLogger("gcpd")
	pidPath := paths.PidFilePath(cfg.Branch)

	// 1. Acquire Lock
	if err := pidfile.Acquire(pidPath, cfg.Branch); err != nil {
		return err
	}
	defer func() {
		if err := pidfile.Release(pidPath); err != nil {
			logger.Errorf("Failed to release pidfile: %v", err)
		}
	}()

	// 2. Wire components
	d, err := newDaemon(cfg)
	if err != nil {
		return err
	}

	// 3. Handle Signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	go func() {
		select {
		case <-stop:
			logger.Info("Received stop signal")
		case <-ctx.Done():
			return
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
		}
	}()

	// 4. Start engine in background
	go d.engine.Start(ctx)

	// 5. Serve observers (blocking)
	addr := net.JoinHostPort(cfg.Server.Bind, strconv.Itoa(cfg.Server.Port))
	logger.WithFields(logrus.Fields{
		"pid":    os.Getpid(),
		"branch": cfg.Branch,
		"addr":   addr,
	}).Info("Starting gcpd")
	return d.server.ListenAndServe(addr)
}
