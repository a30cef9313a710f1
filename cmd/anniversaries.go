package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rvi-ar/casos-api/api/scheduler"
	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/databases"
	"github.com/rvi-ar/casos-api/notifier"
)

func newAnniversariesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "anniversaries",
		Short: "Send today's anniversary digest once",
		Long:  "Collects the birth and death anniversaries that fall on today's date (UTC) and emails them to the configured recipients.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), flags, func(conf *config.Config, db databases.DatabaseHelper) error {
				s := scheduler.NewScheduler(conf, scheduler.NewStore(db), notifier.New(conf.Mail))
				n, err := s.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d anniversaries today\n", n)
				return nil
			})
		},
	}
}
