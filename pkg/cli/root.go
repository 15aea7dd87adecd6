package cli

import (
	"github.com/spf13/cobra"

	internalcli "github.com/SmitUplenchwar2687/meshflow/internal/cli"
)

// NewRootCmd creates the public meshflow root command for embedding.
func NewRootCmd() *cobra.Command {
	return internalcli.NewRootCmd()
}
