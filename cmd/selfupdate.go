package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

const updateRepo = "giantswarm/mcp-cdp"

// newSelfUpdateCmd creates the self-update command
func newSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selfupdate",
		Short: "Update mcp-cdp to the latest version",
		Long:  `Check GitHub releases for a newer version of mcp-cdp and replace the current binary with it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(updateRepo))
			if err != nil {
				return fmt.Errorf("error occurred while detecting version: %w", err)
			}
			if !found {
				return fmt.Errorf("latest version for %s/%s could not be found from github repository %s", runtime.GOOS, runtime.GOARCH, updateRepo)
			}

			if latest.LessOrEqual(version) {
				fmt.Printf("Current version (%s) is the latest\n", version)
				return nil
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("could not locate executable path: %w", err)
			}
			if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
				return fmt.Errorf("error occurred while updating binary: %w", err)
			}
			fmt.Printf("Successfully updated to version %s\n", latest.Version())
			return nil
		},
	}
}
