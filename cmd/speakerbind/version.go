package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerbind/artifact"
	"github.com/kbukum/speakerbind/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build and artifact schema versions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "speakerbind", version.GetVersionInfo())
			for _, k := range []artifact.Kind{artifact.KindDiarization, artifact.KindBindingGraph, artifact.KindTimeline} {
				fmt.Fprintf(out, "  %-24s %s\n", k, k.Schema())
			}
		},
	}
}
