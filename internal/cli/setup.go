package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/repowizard/repowizard/pkg/config"
	wizerr "github.com/repowizard/repowizard/pkg/errors"
	"github.com/repowizard/repowizard/pkg/setup"
	"github.com/repowizard/repowizard/pkg/source"
)

// setupOpts holds the command-line flags for the setup command.
type setupOpts struct {
	kind           string        // source kind: auto, folder, archive, git
	target         string        // parent directory for the repository
	name           string        // override the derived repository name
	install        bool          // install dependencies after acquisition
	noInstall      bool          // skip dependency installation
	nested         bool          // detect manifests in nested project dirs
	cloneTimeout   time.Duration // git clone timeout
	installTimeout time.Duration // per-manager install timeout
	quiet          bool          // suppress the progress spinner
	configPath     string        // alternate config file
}

// setupCommand creates the non-interactive setup command.
//
// Defaults come from the config file when set; flags always win. With
// neither --install nor --no-install, dependencies are installed.
func (c *CLI) setupCommand() *cobra.Command {
	opts := setupOpts{kind: "auto"}

	cmd := &cobra.Command{
		Use:   "setup <source>",
		Short: "Set up a repository from a folder, archive, or Git URL",
		Long: `Set up a repository into a target directory.

The source kind is auto-detected: an existing directory is copied, a
.zip/.tar.gz/.tar.bz2/.tar.xz/.7z file is extracted, and a Git URL is
cloned. Archives with a single top-level directory are flattened. When
the target name already exists, a _1, _2, ... suffix is appended.

Examples:
  repowizard setup ./myproject -t ~/repo_setups
  repowizard setup project.tar.gz --no-install
  repowizard setup https://github.com/user/repo.git --nested`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSetup(cmd.Context(), &opts, args[0], cmd.Flags().Changed("install") || cmd.Flags().Changed("no-install"))
		},
	}

	cmd.Flags().StringVarP(&opts.kind, "kind", "k", opts.kind, "source kind: auto, folder, archive, or git")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "target directory (default from config, else current dir)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "repository name (overrides auto-detection)")
	cmd.Flags().BoolVar(&opts.install, "install", false, "install dependencies after setup")
	cmd.Flags().BoolVar(&opts.noInstall, "no-install", false, "skip dependency installation")
	cmd.Flags().BoolVar(&opts.nested, "nested", false, "detect manifests in nested project directories")
	cmd.Flags().DurationVar(&opts.cloneTimeout, "clone-timeout", 0, "git clone timeout (default 5m)")
	cmd.Flags().DurationVar(&opts.installTimeout, "install-timeout", 0, "per-manager install timeout (default 10m)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress the progress spinner")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/repowizard/config.toml)")
	cmd.MarkFlagsMutuallyExclusive("install", "no-install")

	return cmd
}

func (c *CLI) runSetup(ctx context.Context, opts *setupOpts, src string, installChanged bool) error {
	cfg := c.loadConfig(opts.configPath)

	req, err := buildRequest(cfg, opts, src, installChanged)
	if err != nil {
		printError("%s", wizerr.UserMessage(err))
		return err
	}

	runner, cleanup := c.newRunner()
	defer cleanup()

	var spin *Spinner
	if !opts.quiet {
		// The spinner shows progress; keep the console logger for
		// warnings and errors only so the two don't interleave.
		runner.Logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           log.WarnLevel,
		})
		spin = newSpinnerWithContext(ctx, fmt.Sprintf("Setting up %s...", req.Source.Value))
		spin.Start()
		// Mirror the latest log entry into the spinner message.
		entries := runner.Sink.Subscribe(0)
		go func() {
			for e := range entries {
				spin.SetMessage(e.Message)
			}
		}()
	}

	res, err := runner.Execute(ctx, req)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		printError("%s", wizerr.UserMessage(err))
		return err
	}

	printSetupSummary(res)
	return nil
}

// loadConfig reads the user config; a malformed file degrades to defaults
// with a warning rather than failing the run.
func (c *CLI) loadConfig(path string) config.Config {
	var cfg config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		c.Logger.Warnf("ignoring config: %v", err)
		return config.Config{}
	}
	return cfg
}

// buildRequest merges flags over config over built-in defaults.
func buildRequest(cfg config.Config, opts *setupOpts, src string, installChanged bool) (setup.Request, error) {
	var desc source.Descriptor
	if opts.kind == "" || opts.kind == "auto" {
		desc = source.Detect(src)
	} else {
		kind, err := source.ParseKind(opts.kind)
		if err != nil {
			return setup.Request{}, err
		}
		desc = source.Descriptor{Kind: kind, Value: src}
	}

	target := opts.target
	if target == "" {
		target = cfg.TargetDir
	}
	if target == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return setup.Request{}, wizerr.Wrap(wizerr.ErrCodeInvalidTarget, err, "resolve working directory")
		}
		target = cwd
	}

	install := true
	if cfg.AutoInstall != nil {
		install = *cfg.AutoInstall
	}
	if installChanged {
		install = opts.install && !opts.noInstall
	}

	nested := opts.nested
	if !nested && cfg.NestedManifests != nil {
		nested = *cfg.NestedManifests
	}

	cloneTimeout := opts.cloneTimeout
	if cloneTimeout == 0 {
		cloneTimeout = cfg.CloneTimeout.Duration
	}
	installTimeout := opts.installTimeout
	if installTimeout == 0 {
		installTimeout = cfg.InstallTimeout.Duration
	}

	return setup.Request{
		Source:          desc,
		TargetDir:       target,
		TargetName:      opts.name,
		AutoInstall:     install,
		NestedManifests: nested,
		CloneTimeout:    cloneTimeout,
		InstallTimeout:  installTimeout,
	}, nil
}

// printSetupSummary renders the styled result block.
func printSetupSummary(res *setup.Result) {
	printSuccess("Setup complete")
	printFile(res.FinalPath)
	printKeyValue("Files", fmt.Sprintf("%d", res.FilesProcessed))
	printKeyValue("Duration", res.Duration.Round(time.Millisecond).String())
	if res.LogPath != "" {
		printKeyValue("Log", res.LogPath)
	}
	for _, rec := range res.Installs {
		if rec.Success {
			printDetail("%s %s (%s)", iconSuccess, rec.Command, rec.Duration.Round(time.Millisecond))
		} else {
			printWarning("%s: %s", rec.Manager, wizerr.UserMessage(rec.Err))
		}
	}
	if n := res.Warnings(); n > 0 {
		printInfo("completed with %d warning(s)", n)
	}
}
