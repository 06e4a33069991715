package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	var cfgFile string
	var verbose bool

	root := &cobra.Command{
		Use:           "shortcut",
		Short:         "Find and cut short-form clips from long recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default shortcut.yaml in the working directory)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(identifyCmd(&cfgFile, &verbose))
	root.AddCommand(serveCmd(&cfgFile, &verbose))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
