package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndpid/ndpid-go/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print ndpid's version and exit",
		Run: func(*cobra.Command, []string) {
			printVersion()
		},
	}
}

func printVersion() {
	fmt.Printf("%s\n", version.Version())
}
