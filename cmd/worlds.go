package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/squarestitch/internal/combiner"
)

var worldsCmd = &cobra.Command{
	Use:   "worlds",
	Short: "List the worlds available in the tiles directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		tilesDir := viper.GetString("tiles")
		if tilesDir == "" {
			return fmt.Errorf("tiles directory is required (use --tiles)")
		}

		c, err := combiner.New(tilesDir, combiner.Config{Logger: newLogger()})
		if err != nil {
			return err
		}
		worlds, err := c.Worlds()
		if err != nil {
			return err
		}
		if len(worlds) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No worlds found.")
			return nil
		}
		for _, w := range worlds {
			fmt.Fprintln(cmd.OutOrStdout(), w)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(worldsCmd)
}
