package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags at release time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

type versionInfo struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Platform  string
}

func getVersionInfo() versionInfo {
	return versionInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (i versionInfo) String() string {
	return fmt.Sprintf("diaspora-api %s (%s) built on %s\nGo version: %s\nPlatform: %s",
		i.Version, i.Commit, i.Date, i.GoVersion, i.Platform)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), getVersionInfo().String())
		},
	}
}
