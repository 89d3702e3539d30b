package handlers

import (
	"aidigest/internal/icp"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewICPCmd creates the icp command group
func NewICPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "icp",
		Short: "Work with ideal customer profiles",
	}
	cmd.AddCommand(newICPParseCmd())
	return cmd
}

func newICPParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a free-text ICP description into structured JSON",
		Long: `Parse a free-text ideal customer profile into the structure the admin
API stores. Reads the file argument, or stdin when it is omitted or "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				text []byte
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				text, err = io.ReadAll(cmd.InOrStdin())
			} else {
				text, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read ICP text: %w", err)
			}

			data, err := json.MarshalIndent(icp.Parse(string(text)), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode profile: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
