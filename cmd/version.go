package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the current version of railtl
const Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of railtl",
	Long:  "Print the version number of railtl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "railtl version %s\n", Version)
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("railtl version {{.Version}}\n")
	rootCmd.AddCommand(versionCmd)
}
