package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/stratabuild/strata/forge"
	"github.com/stratabuild/strata/lock"
	"github.com/stratabuild/strata/project"
)

var (
	lockUseAPI bool
	lockToken  string
)

var lockCmd = &cobra.Command{
	Use:   "lock <config>",
	Short: "Pin floating repositories in lockfiles",
	Long: `Resolves each floating repository to its current commit and records
the pin in the lockfile that covers it. Repositories no lockfile covers
are added to the configuration's top lockfile, creating it if needed.

With --use-api, refs resolve through forge APIs. Authentication uses
--token (or STRATA_FORGE_TOKEN); alternatively set STRATA_APP_ID,
STRATA_INSTALLATION_ID and STRATA_APP_KEY to authenticate as a GitHub
App installation.`,
	Args: cobra.ExactArgs(1),
	RunE: runLock,
}

func init() {
	lockCmd.Flags().BoolVar(&lockUseAPI, "use-api", false,
		"resolve refs through forge APIs instead of git ls-remote")
	lockCmd.Flags().StringVar(&lockToken, "token", "",
		"forge API token (default: STRATA_FORGE_TOKEN)")
	rootCmd.AddCommand(lockCmd)
}

// appTokenSource builds a GitHub App installation token source from the
// STRATA_APP_* environment, or returns nil when none is configured.
func appTokenSource() (oauth2.TokenSource, error) {
	appID := os.Getenv("STRATA_APP_ID")
	if appID == "" {
		return nil, nil
	}

	id, err := strconv.ParseInt(appID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid STRATA_APP_ID %q", appID)
	}
	instID, err := strconv.ParseInt(os.Getenv("STRATA_INSTALLATION_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid STRATA_INSTALLATION_ID %q",
			os.Getenv("STRATA_INSTALLATION_ID"))
	}
	key, err := os.ReadFile(os.Getenv("STRATA_APP_KEY"))
	if err != nil {
		return nil, fmt.Errorf("read STRATA_APP_KEY: %w", err)
	}

	return forge.NewAppTokenSource(forge.AppConfig{
		AppID:          id,
		InstallationID: instID,
		PrivateKey:     key,
	})
}

func runLock(cmd *cobra.Command, args []string) error {
	var opts []project.Option
	ts, err := appTokenSource()
	if err != nil {
		return err
	}
	if ts != nil {
		opts = append(opts, project.WithForgeTokenSource(ts))
	}

	p, err := loadProject(args[0], opts...)
	if err != nil {
		return err
	}

	if lockUseAPI {
		token := lockToken
		if token == "" {
			token = os.Getenv("STRATA_FORGE_TOKEN")
		}
		err = p.ResolveRevisionsRemote(cmd.Context(), token)
	} else {
		err = p.ResolveRevisions()
	}
	if err != nil {
		return err
	}

	updated, unlocked, err := lock.NewReconciler().Reconcile(
		p.Lockfiles(), p.Repos(), p.LockfilePath())
	if err != nil {
		return err
	}

	for _, doc := range updated {
		cmd.Printf("Updated %s\n", doc.Location)
	}
	for _, ref := range unlocked {
		cmd.Printf("Could not lock %s\n", ref.Name)
	}
	if len(updated) == 0 && len(unlocked) == 0 {
		cmd.Println("Lockfiles are up to date.")
	}
	return nil
}
