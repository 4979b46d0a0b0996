package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schaermu/treepack/internal/config"
	"github.com/schaermu/treepack/internal/fetch"
	"github.com/schaermu/treepack/internal/install"
	"github.com/schaermu/treepack/internal/launch"
	"github.com/spf13/cobra"
)

var (
	// Install command flags
	targetDir    string
	sourceChoice int
	packageFile  string
	assumeYes    bool
	noLaunch     bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the conversion package into a game directory",
	Long: `Install validates the game directory, obtains the conversion package from a
mirror (retrying failed downloads) or from a local file, extracts it over the
game directory and starts the bundled launcher.

Anything not given as a flag is asked for interactively unless --yes is set.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&targetDir, "target", "", "game directory (default: current directory when it qualifies)")
	installCmd.Flags().IntVar(&sourceChoice, "source", 0, "1-based index of the download mirror")
	installCmd.Flags().StringVar(&packageFile, "package", "", "use a local package instead of downloading")
	installCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "accept defaults without prompting")
	installCmd.Flags().BoolVar(&noLaunch, "no-launch", false, "do not start the launcher after installing")
}

// newInstallEngine wires the installer to the network and the process table
var newInstallEngine = func(cfg *config.Config, logger *slog.Logger) *install.Engine {
	return install.NewEngine(cfg, fetch.NewHTTPClient(cfg.Install.Timeout), launch.NewExecLauncher(), logger)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	// Setup logger
	logger := setupLogger()

	// Load configuration
	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if packageFile != "" && sourceChoice != 0 {
		return fmt.Errorf("--package and --source are mutually exclusive")
	}

	engine := newInstallEngine(cfg, logger)
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

	target, err := chooseTarget(engine, p)
	if err != nil {
		return err
	}

	opts := install.Options{
		Target:      target,
		PackageFile: packageFile,
		Source:      sourceChoice,
		NoLaunch:    true,
	}

	if opts.PackageFile == "" && opts.Source == 0 {
		if err := chooseSource(cmd, engine, cfg, p, &opts); err != nil {
			return err
		}
	}

	if err := engine.Run(ctx, opts); err != nil {
		logger.Error("install failed", "error", err)
		if !assumeYes {
			p.acknowledge(fmt.Sprintf("installation failed: %v", err))
		}
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "conversion package installed into %s\n", target)

	if noLaunch {
		return nil
	}

	launchNow := true
	if !assumeYes {
		launchNow, err = p.confirm(fmt.Sprintf("Start %s now?", cfg.Install.Launch), true)
		if err != nil {
			return err
		}
	}
	if !launchNow {
		return nil
	}

	return engine.Launch(ctx, target)
}

// chooseTarget resolves the game directory. The working directory is offered
// as the default when it qualifies.
func chooseTarget(engine *install.Engine, p *prompter) (string, error) {
	if targetDir != "" {
		if err := engine.ValidateTarget(targetDir); err != nil {
			return "", err
		}
		return targetDir, nil
	}

	def := ""
	if cwd, err := os.Getwd(); err == nil && engine.ValidateTarget(cwd) == nil {
		def = cwd
	}

	if assumeYes {
		if def == "" {
			return "", fmt.Errorf("%w: current directory is not a game directory, use --target", install.ErrInvalidTarget)
		}
		return def, nil
	}

	for {
		answer, err := p.ask("Game directory", def)
		if err != nil {
			return "", fmt.Errorf("failed to read game directory: %w", err)
		}
		if err := engine.ValidateTarget(answer); err != nil {
			_, _ = fmt.Fprintf(p.out, "%v\n", err)
			continue
		}
		return answer, nil
	}
}

// chooseSource asks for a mirror or a local package
func chooseSource(cmd *cobra.Command, engine *install.Engine, cfg *config.Config, p *prompter, opts *install.Options) error {
	if assumeYes {
		opts.Source = 1
		return nil
	}

	out := cmd.OutOrStdout()
	sources := cfg.Install.Sources
	_, _ = fmt.Fprintln(out, "Package source:")
	for i, src := range sources {
		_, _ = fmt.Fprintf(out, "  %d) %s (%s)\n", i+1, src.Name, src.URL)
	}
	local := len(sources) + 1
	_, _ = fmt.Fprintf(out, "  %d) local file\n", local)

	choice, err := p.choose("Choice", local, 1)
	if err != nil {
		return fmt.Errorf("failed to read package source: %w", err)
	}
	if choice != local {
		opts.Source = choice
		return nil
	}

	for {
		answer, err := p.ask("Path to package", "")
		if err != nil {
			return fmt.Errorf("failed to read package path: %w", err)
		}
		if answer == "" {
			_, _ = fmt.Fprintf(out, "Download the package manually from %s\n", cfg.Install.ManualDownloadURL)
			continue
		}
		if err := engine.ValidatePackage(answer); err != nil {
			_, _ = fmt.Fprintf(out, "%v\n", err)
			continue
		}
		opts.PackageFile = answer
		return nil
	}
}
