package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerbind/artifact"
	"github.com/kbukum/speakerbind/audio"
	"github.com/kbukum/speakerbind/bootstrap"
	"github.com/kbukum/speakerbind/errors"
	"github.com/kbukum/speakerbind/job"
	"github.com/kbukum/speakerbind/storage"
	"github.com/kbukum/speakerbind/validation"
)

type runOptions struct {
	audioPath string
	inputPath string
	clipID    string
	format    string
	outDir    string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one clip and write its artifacts",
		Long: `Run diarization, identity binding and the identity timeline for one clip.

The input file is JSON with the clip's gating segments, transcript words and
face observations:

  {"clip_id": "...", "segments": [...], "words": [...], "video": [...]}

Artifacts are printed to stdout, or published under --out as
<clip_id>/<kind>.<format>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if o.format != "" {
				cfg.Output.Format = o.format
			}
			format, err := artifact.ParseFormat(cfg.Output.Format)
			if err != nil {
				return err
			}
			if o.outDir != "" {
				cfg.Storage.Enabled = true
				cfg.Storage.Provider = storage.ProviderLocal
				cfg.Storage.BasePath = o.outDir
			}

			req, err := o.request()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := bootstrap.New(ctx, cfg)
			if err != nil {
				return err
			}
			return app.RunTask(ctx, func(ctx context.Context) error {
				res, err := app.Runner.Run(ctx, req)
				if err != nil {
					return err
				}
				if len(res.Published) > 0 {
					for _, key := range res.Published {
						fmt.Fprintln(cmd.OutOrStdout(), key)
					}
					return nil
				}
				return artifact.Encode(cmd.OutOrStdout(), res.Bundle(), format)
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.audioPath, "audio", "a", "", "clip audio as a WAV file (required)")
	f.StringVarP(&o.inputPath, "input", "i", "", "JSON file with segments, words and video")
	f.StringVar(&o.clipID, "clip-id", "", "clip id (default: input clip_id, else the audio file name)")
	f.StringVarP(&o.format, "format", "f", "", "artifact format: json or yaml (default: output.format)")
	f.StringVarP(&o.outDir, "out", "o", "", "publish artifacts under this directory instead of printing them")
	_ = cmd.MarkFlagRequired("audio")
	return cmd
}

// request assembles the job input from the flags.
func (o *runOptions) request() (job.Request, error) {
	var req job.Request
	if o.inputPath != "" {
		data, err := os.ReadFile(o.inputPath)
		if err != nil {
			return req, errors.InvalidInput("input", "cannot read "+o.inputPath).WithCause(err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, errors.InvalidInput("input", o.inputPath+" is not valid JSON").WithCause(err)
		}
	}

	a, err := audio.ReadFile(o.audioPath)
	if err != nil {
		return req, err
	}
	req.Audio = a

	switch {
	case o.clipID != "":
		req.ClipID = o.clipID
	case req.ClipID == "":
		req.ClipID = a.SourceID
	}
	if err := validation.Validate(&req); err != nil {
		return req, err
	}
	return req, nil
}
