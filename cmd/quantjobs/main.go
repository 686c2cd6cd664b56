package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/quantdesk/quantjobs/internal/cli"
)

func main() {
	command := NewQuantJobsCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewQuantJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quantjobs [flags] [options]",
		Short: "quantjobs controls the quant job platform.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdSubmit())
	cmd.AddCommand(cli.NewCmdGet())
	cmd.AddCommand(cli.NewCmdWatch())
	cmd.AddCommand(cli.NewCmdStats())

	return cmd
}
