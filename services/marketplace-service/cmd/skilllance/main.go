package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "skilllance",
		Short: "SkillLance marketplace API",
		Long: `SkillLance is the backend of a student gig marketplace.

Students sign in with their college email, post tasks, bid on each other's
work and build karma through peer reviews.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newDomainsCmd(), newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
