package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerbind/artifact"
	"github.com/kbukum/speakerbind/binding"
	"github.com/kbukum/speakerbind/diarization"
	"github.com/kbukum/speakerbind/errors"
	"github.com/kbukum/speakerbind/timeline"
)

func newInspectCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Check an artifact's schema version and summarize it",
		Long: `Decode a published artifact, rejecting unknown schema versions, and print a
short summary. The kind is taken from the file name (diarization.json,
identity_timeline.yaml, ...) unless --kind is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.NotFound("artifact", path).WithCause(err)
			}
			ext := filepath.Ext(path)
			format, err := artifact.ParseFormat(strings.TrimPrefix(ext, "."))
			if err != nil {
				return err
			}
			k := artifact.Kind(kind)
			if k == "" {
				k = artifact.Kind(strings.TrimSuffix(filepath.Base(path), ext))
			}
			return inspect(cmd.OutOrStdout(), data, format, k)
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "artifact kind: diarization, identity_binding_graph or identity_timeline")
	return cmd
}

func inspect(w io.Writer, data []byte, format artifact.Format, k artifact.Kind) error {
	switch k {
	case artifact.KindDiarization:
		env, err := artifact.Decode[diarization.Result](data, format, k.Schema())
		if err != nil {
			return err
		}
		printHeader(w, env.SchemaVersion, env.Provenance)
		fmt.Fprintf(w, "words:     %d\nspeakers:  %d\nregime:    %s\n",
			len(env.Data.Words), len(env.Data.Speakers), env.Data.Report.Regime)
	case artifact.KindBindingGraph:
		env, err := artifact.Decode[binding.Graph](data, format, k.Schema())
		if err != nil {
			return err
		}
		printHeader(w, env.SchemaVersion, env.Provenance)
		fmt.Fprintf(w, "edges:     %d\nspeakers:  %d\n", len(env.Data.Edges), len(env.Data.Speakers))
	case artifact.KindTimeline:
		env, err := artifact.Decode[timeline.Timeline](data, format, k.Schema())
		if err != nil {
			return err
		}
		printHeader(w, env.SchemaVersion, env.Provenance)
		fmt.Fprintf(w, "speakers:  %d\nspans:     %d\n", len(env.Data.Speakers), len(env.Data.Spans))
	default:
		return errors.InvalidInput("kind", fmt.Sprintf("unknown artifact kind %q", k))
	}
	return nil
}

func printHeader(w io.Writer, schema string, p artifact.Provenance) {
	fmt.Fprintf(w, "schema:    %s\nclip_id:   %s\nrun_id:    %s\ngenerator: %s %s\n",
		schema, p.ClipID, p.RunID, p.Generator, p.Version)
}
