package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose bool
	driver  string
	dsn     string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "go-subscriptions",
		Short:         "Webhook subscription keeper and notification resolver",
		Long:          "Keeps a change-notification subscription alive, receives its webhook calls and resolves each batch into stored resource payloads.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.driver, "driver", "", "persistence driver (sqlite3 or postgres)")
	cmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "persistence data source name")

	cmd.AddCommand(newServeCommand(flags))
	cmd.AddCommand(newMigrateCommand(flags))
	return cmd
}
