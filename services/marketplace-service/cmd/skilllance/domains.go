package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/college"
)

type domainsConfig struct {
	File string `env:"COLLEGE_DOMAINS_FILE"`
}

func newDomainsCmd() *cobra.Command {
	var file string

	domains := &cobra.Command{
		Use:   "domains",
		Short: "Inspect the college email allow-list",
	}
	domains.PersistentFlags().StringVar(&file, "file", "", "allow-list JSON file (defaults to COLLEGE_DOMAINS_FILE, then the built-in list)")

	loadDirectory := func() (*college.Directory, error) {
		if file == "" {
			cfg, err := env.ParseAs[domainsConfig]()
			if err != nil {
				return nil, err
			}
			file = cfg.File
		}
		return college.Load(file)
	}

	check := &cobra.Command{
		Use:   "check <email>",
		Short: "Check whether an email address is accepted for sign-in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			directory, err := loadDirectory()
			if err != nil {
				return err
			}

			result := directory.ValidateCollegeEmail(args[0])
			out := cmd.OutOrStdout()
			if !result.Valid {
				fmt.Fprintf(out, "rejected: %s (%s)\n", result.Reason, args[0])
				return fmt.Errorf("%s is not an allow-listed college email", args[0])
			}

			fmt.Fprintf(out, "accepted: %s\ndomain: %s\ninstitution: %s\n", result.Email, result.Domain, result.Institution)
			return nil
		},
	}

	domains.AddCommand(check)
	return domains
}
