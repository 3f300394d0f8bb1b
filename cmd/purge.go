package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rana718/seriesgen/internal/population"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop the temporary reference tables",
	Long:  `Drop every temp_ table left in the exhibit database, for example after a run with keep_reference set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadUserInput(userInputFile)
		if err != nil {
			return err
		}
		dbURL, err := cfg.GetDatabaseURL()
		if err != nil {
			return err
		}

		store, err := population.Open(cmd.Context(), cfg.Database.Provider, dbURL, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Purge(cmd.Context()); err != nil {
			return err
		}
		color.Green("✅ Temporary tables dropped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
	purgeCmd.Flags().StringVarP(&userInputFile, "user-input", "u", "", "Path to the user input file (YAML)")
}
