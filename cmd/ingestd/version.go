package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hivecast/ingestd/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			info := version.Get()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ingestd %s\n", info)
			if info.BuildTime != "" {
				fmt.Fprintf(out, "built:  %s\n", info.BuildTime)
			}
			fmt.Fprintf(out, "go:     %s\n", info.GoVersion)
		},
	}
}
