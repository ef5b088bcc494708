package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/mediagrab/mediagrab"
	"github.com/mediagrab/mediagrab/async"
	"github.com/mediagrab/mediagrab/auth"
	"github.com/mediagrab/mediagrab/downloader/httpdl"
	_ "github.com/mediagrab/mediagrab/extractors"
	"github.com/mediagrab/mediagrab/generic"
	"github.com/mediagrab/mediagrab/history"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = mediagrab.WithLogger(ctx, logger)

	app := &cli.App{
		Name:  "mediagrab",
		Usage: "extract and download media from URLs",
		Commands: []*cli.Command{
			downloadCommand(ctx),
			authCommand(),
			extractorsCommand(),
			historyCommand(),
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
		if err != nil {
			logger.Fatal(err.Error())
		}
	case <-ctx.Done():
		stop()
		err = <-result
		if err != nil {
			logger.Fatal(err.Error())
		}
	}
}

func configDir() string {
	base := generic.NewResult(os.UserConfigDir()).UnwrapOr(os.TempDir())
	dir := filepath.Join(base, "mediagrab")
	generic.Unwrap_(os.MkdirAll(dir, 0700))
	return dir
}

func openAuthRegistry() (*auth.Store, *auth.Registry, error) {
	store, err := auth.OpenStore(filepath.Join(configDir(), "auth.db"))
	if err != nil {
		return nil, nil, err
	}
	registry := auth.NewRegistry()
	if err := store.Load(registry); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, registry, nil
}

func downloadCommand(ctx context.Context) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "download content from one or more URLs",
		ArgsUsage: "URL [URL ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Value: ".",
				Usage: "save downloaded content to `DIR`",
			},
			&cli.IntFlag{
				Name:  "fragments",
				Value: 1,
				Usage: "number of fragments fetched concurrently",
			},
			&cli.IntFlag{
				Name:  "connections",
				Value: 4,
				Usage: "number of connections per fragment (keep fragments * connections at or below ~10)",
			},
			&cli.DurationFlag{
				Name:  "update-delay",
				Value: httpdl.DefaultUpdateDelay,
				Usage: "minimum interval between progress updates",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("at least one URL is required")
			}
			for _, source := range c.Args().Slice() {
				if err := download(ctx, c, source); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func download(ctx context.Context, c *cli.Context, source string) error {
	logger := mediagrab.Logger(ctx).Sugar()
	target := c.String("target")
	logger.Infof("Downloading from %s into %s", source, target)

	extractor, err := mediagrab.DefaultExtractors.Get(source)
	if err != nil {
		return err
	}
	logger.Infof("Using extractor %q", extractor.Name())

	if extractor.Authentication() != auth.None {
		store, registry, err := openAuthRegistry()
		if err != nil {
			return err
		}
		authErr := extractor.Authenticate(registry)
		_ = store.Close()
		if authErr != nil {
			return authErr
		}
	}

	groups, err := extractor.Extract(ctx, source)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return &mediagrab.NotFoundError{URL: source}
	}

	historyStore, err := history.Open(filepath.Join(configDir(), "history.db"), logger.Desugar())
	if err != nil {
		return err
	}
	defer historyStore.Close()

	targetConfig := mediagrab.NewTargetConfig()
	for _, group := range groups {
		content := group.Best()
		if content == nil {
			continue
		}
		if _, err := mediagrab.DefaultDownloaders.Get(content); err != nil {
			return err
		}

		// Probe the total size while the progress bar is being set up
		sizeResult := async.RunResult(func() (int64, error) {
			return content.Size(ctx, nil)
		})
		bar := progressbar.DefaultBytes(1, "downloading")
		if size := <-sizeResult; size.IsOk() && size.Value != mediagrab.SizeUnknown {
			logger.Infof("Total size: %d bytes", size.Value)
		}
		downloader, err := httpdl.New(
			httpdl.WithMaxFragments(c.Int("fragments")),
			httpdl.WithMaxConnections(c.Int("connections")),
			httpdl.WithUpdateDelay(c.Duration("update-delay")),
			httpdl.WithProgress(func(done int64, total int64, elapsed time.Duration) {
				if total >= 0 && bar.GetMax64() != total {
					bar.ChangeMax64(total)
				}
				generic.Unwrap_(bar.Set64(done))
			}),
		)
		if err != nil {
			return err
		}

		events, err := downloader.Events()
		if err != nil {
			return err
		}
		eventsDone := async.Run(func() generic.Void {
			for event := range events.Receive() {
				switch e := event.(type) {
				case httpdl.FragmentCompleted:
					logger.Debugf("fragment %d complete", e.Fragment)
				case httpdl.Failed:
					logger.Debugf("download failed: %v", e.Err)
				}
			}
			return generic.NewVoid()
		})

		filename, err := targetConfig.TargetName(content)
		if err != nil {
			downloader.Close()
			<-eventsDone
			return err
		}
		destination := filepath.Join(target, filename)

		started := time.Now()
		err = downloader.Download(ctx, content, destination)
		downloader.Close()
		<-eventsDone
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}

		info, statErr := os.Stat(destination)
		record := &history.Record{
			UID:         content.UID,
			Source:      source,
			Destination: destination,
			Duration:    time.Since(started),
		}
		if statErr == nil {
			record.Bytes = info.Size()
		}
		if err := historyStore.Add(record); err != nil {
			logger.Warnf("failed to record download history: %v", err)
		}
		logger.Infof("Download complete: %s", destination)
	}
	return nil
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "manage stored credentials",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "store credentials for a domain",
				ArgsUsage: "DOMAIN TYPE KEY SECRET",
				Action: func(c *cli.Context) error {
					if c.NArg() != 4 {
						return fmt.Errorf("expected DOMAIN TYPE KEY SECRET")
					}
					store, _, err := openAuthRegistry()
					if err != nil {
						return err
					}
					defer store.Close()
					return store.Put(
						c.Args().Get(0),
						auth.Type(c.Args().Get(1)),
						auth.Credentials{Key: c.Args().Get(2), Secret: c.Args().Get(3)},
					)
				},
			},
			{
				Name:  "list",
				Usage: "list stored credential entries",
				Action: func(c *cli.Context) error {
					store, registry, err := openAuthRegistry()
					if err != nil {
						return err
					}
					defer store.Close()
					for _, entry := range registry.Entries() {
						// Secrets stay out of the output
						fmt.Printf("%s\t%s\n", entry.Domain, entry.Type)
					}
					return nil
				},
			},
			{
				Name:      "remove",
				Usage:     "remove credentials for a domain",
				ArgsUsage: "DOMAIN TYPE",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("expected DOMAIN TYPE")
					}
					store, _, err := openAuthRegistry()
					if err != nil {
						return err
					}
					defer store.Close()
					return store.Delete(c.Args().Get(0), auth.Type(c.Args().Get(1)))
				},
			},
		},
	}
}

func extractorsCommand() *cli.Command {
	return &cli.Command{
		Name:  "extractors",
		Usage: "list registered extractors in matching order",
		Action: func(c *cli.Context) error {
			for _, name := range mediagrab.DefaultExtractors.List() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "show recent downloads",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "maximum number of entries to show",
			},
		},
		Action: func(c *cli.Context) error {
			store, err := history.Open(filepath.Join(configDir(), "history.db"), zap.L())
			if err != nil {
				return err
			}
			defer store.Close()
			records, err := store.Recent(c.Int("limit"))
			if err != nil {
				return err
			}
			for _, record := range records {
				fmt.Printf("%s\t%s\t%d bytes\t%s\n",
					record.CreatedAt.Format(time.RFC3339), record.Destination, record.Bytes, record.Source)
			}
			return nil
		},
	}
}
