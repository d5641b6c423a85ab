package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	ct "github.com/kailas-cloud/appsearch/internal/domain/clickthrough"
)

var clickCmd = &cobra.Command{
	Use:   "click",
	Short: "Inspect and resolve clickthrough tokens",
}

var clickDecodeCmd = &cobra.Command{
	Use:   "decode <token>",
	Short: "Print the payload carried by a clickthrough token",
	Args:  cobra.ExactArgs(1),
	// Decoding is offline; no config needed.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := ct.Decode(args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

var clickResolveCmd = &cobra.Command{
	Use:   "resolve <token>",
	Short: "Resolve a token to its redirect target, logging the click",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		link, err := a.clicks.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	},
}

func init() {
	clickCmd.AddCommand(clickDecodeCmd, clickResolveCmd)
	rootCmd.AddCommand(clickCmd)
}
