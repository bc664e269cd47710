package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

const githubRepoSlug = "minipada/ros2_data_collection"

// releaseInfo is what self-update needs to know about the latest release.
type releaseInfo struct {
	Found     bool
	UpToDate  bool
	Version   string
	AssetURL  string
	AssetName string
}

// findLatestRelease and applyRelease talk to GitHub and replace the running
// binary; tests swap them out.
var (
	findLatestRelease = func(ctx context.Context, slug, current string) (releaseInfo, error) {
		latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(slug))
		if err != nil || !found {
			return releaseInfo{}, err
		}
		return releaseInfo{
			Found:     true,
			UpToDate:  latest.LessOrEqual(current),
			Version:   latest.Version(),
			AssetURL:  latest.AssetURL,
			AssetName: latest.AssetName,
		}, nil
	}

	applyRelease = func(ctx context.Context, rel releaseInfo) error {
		exe, err := selfupdate.ExecutablePath()
		if err != nil {
			return fmt.Errorf("could not locate executable path: %w", err)
		}
		return selfupdate.UpdateTo(ctx, rel.AssetURL, rel.AssetName, exe)
	}
)

func newSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Update bringupctl to the latest version",
		Long: `Checks for the latest release of bringupctl on GitHub and
updates the current binary if a newer version is found.`,
		Args: cobra.NoArgs,
		RunE: runSelfUpdate,
	}
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	currentVersion := rootCmd.Version
	if currentVersion == "" || currentVersion == "dev" {
		return fmt.Errorf("cannot self-update a development version")
	}

	ctx := context.Background()
	var out io.Writer = os.Stdout
	if cmd != nil {
		if cmd.Context() != nil {
			ctx = cmd.Context()
		}
		out = cmd.OutOrStdout()
	}

	latest, err := findLatestRelease(ctx, githubRepoSlug, currentVersion)
	if err != nil {
		return fmt.Errorf("error occurred while detecting version: %w", err)
	}
	if !latest.Found {
		return fmt.Errorf("latest version for %s could not be found from GitHub repository %s", currentVersion, githubRepoSlug)
	}

	if latest.UpToDate {
		fmt.Fprintf(out, "Current version (%s) is the latest\n", currentVersion)
		return nil
	}

	if err := applyRelease(ctx, latest); err != nil {
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}

	fmt.Fprintf(out, "Successfully updated to version %s\n", latest.Version)
	return nil
}
