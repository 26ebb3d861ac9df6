package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drewmudry/scriptcast/metadata"
	"github.com/drewmudry/scriptcast/pipeline"
)

var (
	renderScriptFile string

	uploadFile        string
	uploadTitle       string
	uploadDescription string
	uploadTags        string
)

// renderCmd renders a script with the avatar service
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a script file with the configured avatar service",
	RunE:  runRender,
}

// uploadCmd uploads an existing video file
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a video file to the connected YouTube channel",
	RunE:  runUpload,
}

// runCmd runs the whole pipeline in-process
var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Script, render, describe and upload one video",
	Long: `Run every pipeline step in this process.

With a topic argument that topic is used. Without one the oldest pending topic
from the database is used, skipping topics that have no usable context.`,
	RunE: runRun,
}

func init() {
	renderCmd.Flags().StringVar(&renderScriptFile, "script-file", "", "File holding the narration script")
	renderCmd.MarkFlagRequired("script-file")

	uploadCmd.Flags().StringVar(&uploadFile, "file", "", "Video file to upload")
	uploadCmd.Flags().StringVar(&uploadTitle, "title", "", "Video title")
	uploadCmd.Flags().StringVar(&uploadDescription, "description", "", "Video description")
	uploadCmd.Flags().StringVar(&uploadTags, "tags", "", "Comma-separated tags")
	uploadCmd.MarkFlagRequired("file")
	uploadCmd.MarkFlagRequired("title")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	script, err := os.ReadFile(renderScriptFile)
	if err != nil {
		return err
	}
	pipe, err := pipeline.New(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}

	path, err := pipe.RenderVideo(ctx, strings.TrimSpace(string(script)))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	uploader, err := pipeline.NewUploader(ctx, cfg.YouTube, logger)
	if err != nil {
		return err
	}
	pipe := &pipeline.Pipeline{
		Uploader: uploader,
		Publish:  pipeline.PublishOptions{CategoryID: cfg.YouTube.CategoryID, Privacy: cfg.YouTube.Privacy},
		Log:      logger,
	}

	id, err := pipe.Upload(ctx, uploadFile, metadata.Metadata{
		Title:       uploadTitle,
		Description: uploadDescription,
		Tags:        metadata.SplitTags(uploadTags),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "https://youtu.be/%s\n", id)
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	var (
		pipe *pipeline.Pipeline
		res  pipeline.RunResult
		err  error
	)
	if len(args) > 0 {
		pipe, err = pipeline.New(ctx, cfg, nil, logger)
		if err != nil {
			return err
		}
		res, err = pipe.Run(ctx, strings.Join(args, " "))
	} else {
		db, dbErr := openDB()
		if dbErr != nil {
			return dbErr
		}
		pipe, err = pipeline.New(ctx, cfg, db, logger)
		if err != nil {
			return err
		}
		res, err = pipe.RunNext(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "topic:  %s\nfile:   %s\ntitle:  %s\nvideo:  https://youtu.be/%s\n",
		res.Topic, res.VideoPath, res.Metadata.Title, res.YouTubeID)
	return nil
}
