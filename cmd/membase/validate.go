package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ThatForkyDev/membase/store"
)

func newValidateCmd() *cobra.Command {
	var printSchema bool

	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a store configuration file and print the effective configuration",
		Long: `Check a YAML or JSON store configuration against the configuration schema,
apply the defaults and print the resulting configuration. Unknown keys and
values of the wrong type are reported by field. With --schema the JSON
schema itself is printed instead.`,
		Example: `  membase validate store.yaml
  membase validate --schema > store.schema.json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(store.ConfigSchema()))
				return err
			}

			config, err := store.LoadConfig(args[0])
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			if err := enc.Encode(config); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().BoolVar(&printSchema, "schema", false, "Print the configuration JSON schema and exit")

	return cmd
}
