package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "booking_service",
	Short: "Seat reservation service for events",
	Long: `A service that reserves seats against fixed-capacity events,
publishes reservation facts to Azure Service Bus, and processes them
downstream. Run the HTTP API with "api" and the consumer/forwarder
with "worker".`,
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize()
}
