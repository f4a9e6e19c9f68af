package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bl-auto",
	Short: "Automated amenity reservations on the BuildingLink tenant portal",
	Long: `bl-auto logs a list of tenant accounts into the BuildingLink portal and
books the configured amenity time slot for each of them, capturing a
screenshot per account as proof of result.

Configuration comes from the environment (MANUAL_RUN, BL_ACCOUNTS,
START_HOUR, RESERVE_DATE); a .env file in the working directory is loaded
when present.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
