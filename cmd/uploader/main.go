package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/angelmondragon/dmmedia/pkg/config"
	"github.com/angelmondragon/dmmedia/pkg/enums"
	"github.com/angelmondragon/dmmedia/pkg/logger"
	"github.com/joho/godotenv"
)

type options struct {
	file         string
	category     string
	conversation string
	to           string
	text         string
	list         string
	cursor       string
}

func (o options) wantsMessage() bool {
	return o.conversation != "" || o.to != ""
}

func (o options) validate() error {
	if o.list != "" {
		if o.file != "" || o.text != "" || o.wantsMessage() {
			return errors.New("-list cannot be combined with an upload")
		}
		_, err := enums.ParseUploadPhase(o.list)
		return err
	}
	if o.file == "" && o.text == "" {
		return errors.New("provide -file, -text or both")
	}
	if o.conversation != "" && o.to != "" {
		return errors.New("-conversation and -to are mutually exclusive")
	}
	if o.text != "" && !o.wantsMessage() {
		return errors.New("-text requires -conversation or -to")
	}
	if _, err := enums.ParseMediaCategory(o.category); err != nil {
		return err
	}
	return nil
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("uploader", flag.ContinueOnError)
	var opts options
	fs.StringVar(&opts.file, "file", "", "path of the media file to upload")
	fs.StringVar(&opts.category, "category", "", "media category hint (dm_image|dm_video|dm_gif|tweet_image|tweet_video|tweet_gif)")
	fs.StringVar(&opts.conversation, "conversation", "", "conversation id to send the media to")
	fs.StringVar(&opts.to, "to", "", "screen name to send the media to in a one-to-one conversation")
	fs.StringVar(&opts.text, "text", "", "message text")
	fs.StringVar(&opts.list, "list", "", "print journaled attempts in this phase instead of uploading")
	fs.StringVar(&opts.cursor, "cursor", "", "page cursor printed by a previous -list run")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.file = strings.TrimSpace(opts.file)
	opts.conversation = strings.TrimSpace(opts.conversation)
	opts.to = strings.TrimSpace(opts.to)
	return opts, opts.validate()
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "uploader"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "uploader",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	app, err := newApp(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap uploader", err)
		os.Exit(1)
	}

	runErr := app.run(ctx, opts, os.Stdout)
	if err := app.close(); err != nil {
		logg.Error(ctx, "error releasing resources", err)
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logg.Warn(ctx, "upload cancelled")
		}
		os.Exit(1)
	}
}
