package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratabuild/strata/project"
)

var (
	workDir  string
	sshKey   string
	skipLock bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Layered build configuration manager",
	Long: `strata loads layered YAML/JSON build configurations, resolves their
cross-repository includes (cloning referenced repositories on demand),
merges everything left to right and pins floating repositories through
lockfiles.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupLogging(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&workDir, "work-dir", "",
		"directory repositories are checked out under (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&sshKey, "ssh-key", "",
		"SSH private key used for git operations")
	rootCmd.PersistentFlags().BoolVar(&skipLock, "skip-lock", false,
		"ignore lockfiles and use floating refs")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
	return nil
}

// loadProject builds and loads the project for a command's config
// argument ("file.yml" or "a.yml:b.yml"). extra options come from the
// command's own flags.
func loadProject(spec string, extra ...project.Option) (*project.Project, error) {
	dir := workDir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine work directory: %w", err)
		}
	}

	opts := []project.Option{project.WithLock(!skipLock)}
	if sshKey != "" {
		opts = append(opts, project.WithSSHKey(sshKey))
	}
	opts = append(opts, extra...)

	p, err := project.New(spec, dir, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Load(); err != nil {
		return nil, err
	}
	return p, nil
}
