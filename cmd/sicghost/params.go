package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	Parameters "sic-ghost/System"
)

var paramsOut string

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Write the default parameter file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := Parameters.WriteDefault(paramsOut); err != nil {
			return err
		}
		logger.Info("parameters written", zap.String("path", paramsOut))
		fmt.Fprintf(cmd.OutOrStdout(), "✔ Parameters written to %s\n", paramsOut)
		return nil
	},
}

func init() {
	paramsCmd.Flags().StringVarP(&paramsOut, "out", "o", "Parameters/sicghost.toml", "Destination file")
}

// loadParams reads the configured file, or the defaults, and applies the
// environment overrides.
func loadParams() (Parameters.Params, error) {
	p := Parameters.Default()
	if configPath != "" {
		var err error
		if p, err = Parameters.Load(configPath); err != nil {
			return Parameters.Params{}, err
		}
	}
	return p.ApplyEnv(os.Getenv)
}
