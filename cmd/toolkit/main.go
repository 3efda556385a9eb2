package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nfse-toolkit",
		Short:         "Ferramentas de linha de comando do gateway NFSe",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", os.Getenv("CONFIG_FILE_PATH"), "arquivo YAML de configuração (local, file:// ou s3://)")

	root.AddCommand(
		newValidateCmd(),
		newStatusCmd(),
		newForwardCmd(),
	)
	return root
}
