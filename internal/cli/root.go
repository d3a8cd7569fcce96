package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	showCurl bool
	baseURL  string
	cfgPath  string
)

var rootCmd = &cobra.Command{
	Use:   "taskmarket",
	Short: "Task marketplace API server and developer CLI",
}

func Execute() error { return rootCmd.Execute() }

func init() {
	rootCmd.PersistentFlags().BoolVar(&showCurl, "show-curl", false, "print equivalent curl for networked commands")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "http://localhost:3000", "API base URL")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (YAML, optional)")

	rootCmd.AddCommand(cmdServe(), cmdToken(), cmdCall(), cmdVersion())

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:   "help",
		Short: "Show help",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Root().Help()
		},
	})
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "Use -h for help, for example: taskmarket serve --store memory")
	}
}
