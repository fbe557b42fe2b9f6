package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwygoda/get/internal/adapter/feed"
	"github.com/cwygoda/get/internal/adapter/meili"
	"github.com/cwygoda/get/internal/ingest"
	"github.com/cwygoda/get/internal/poller"
)

func newPodcastsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "podcasts",
		Short: "Podcast feed tools",
	}
	cmd.AddCommand(newIngestRSSCommand(ctx))
	cmd.AddCommand(newOPMLCommand(ctx))
	return cmd
}

func newIngestRSSCommand(ctx *commandContext) *cobra.Command {
	var (
		opmlFile  string
		searchURL string
		index     string
	)

	cmd := &cobra.Command{
		Use:   "ingest-rss [RSS...]",
		Short: "Index podcast episodes into Meilisearch",
		Long: `Fetch every RSS feed and add its episodes to the search index, one
batch per feed. Feeds whose lastBuildDate has not moved since the last
successful ingest are skipped.`,
		RunE: ctx.run(func(cmd *cobra.Command, args []string) error {
			cfg := ctx.cfg
			f := cmd.Flags()
			if f.Changed("search-url") {
				cfg.Podcasts.SearchURL = searchURL
			}
			if f.Changed("index") {
				cfg.Podcasts.Index = index
			}
			if err := ctx.validate(); err != nil {
				return err
			}

			feeds := args
			if opmlFile != "" {
				urls, err := readOPMLFile(opmlFile)
				if err != nil {
					return err
				}
				feeds = append(feeds, urls...)
			}
			if len(feeds) == 0 {
				return fmt.Errorf("no feeds given, pass RSS URLs or --opml")
			}

			var header http.Header
			if cfg.Podcasts.APIKey != "" {
				header = http.Header{"X-Meili-API-Key": {cfg.Podcasts.APIKey}}
			}
			pool := ctx.originPool(header)
			store, err := meili.New(pool, cfg.Podcasts.SearchURL)
			if err != nil {
				return err
			}
			jobs, repo, err := ctx.jobService()
			if err != nil {
				return err
			}
			if err := ctx.lock(cfg.Podcasts.SearchURL + "/" + cfg.Podcasts.Index); err != nil {
				return err
			}
			if err := ctx.serve(); err != nil {
				return err
			}

			p := poller.New(store, poller.Options{
				InitialDelay: cfg.Podcasts.Poll.InitialDelay,
				Factor:       cfg.Podcasts.Poll.Factor,
				Ceiling:      cfg.Podcasts.Poll.Ceiling,
			}, ctx.logger)
			svc := ingest.NewService(store, p, jobs, repo, pool, ingest.Options{
				Workers:  cfg.Workers,
				Index:    cfg.Podcasts.Index,
				Retry:    ctx.retryPolicy(),
				Logger:   ctx.logger,
				Observer: ctx.metrics,
			})

			sum, err := svc.Run(cmd.Context(), feeds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d feeds: %d unchanged, %d succeeded, %d failed, %d abandoned, %d dropped\n",
				sum.Feeds, sum.Unchanged, sum.Succeeded, sum.Failed, sum.Abandoned, sum.Result.Failed())
			if n := sum.Failed + sum.Result.Failed(); n > 0 {
				return fmt.Errorf("%d feeds were not ingested", n)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&opmlFile, "opml", "", "Also ingest every feed of this OPML file")
	cmd.Flags().StringVar(&searchURL, "search-url", "", "Meilisearch base URL (default http://127.0.0.1:7700)")
	cmd.Flags().StringVar(&index, "index", "", "Index to add episodes to (default episodes)")

	return cmd
}

func newOPMLCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "opml FILE",
		Short: "Print the feeds of an OPML file as an aria2c input file",
		Long: `Print every feed URL of an OPML export followed by an out= line with a
random file name, ready for aria2c --input-file. Use - to read stdin.`,
		Args: withUsage(cobra.ExactArgs(1)),
		RunE: ctx.run(func(cmd *cobra.Command, args []string) error {
			var urls []string
			var err error
			if args[0] == "-" {
				urls, err = feed.ReadOPML(cmd.InOrStdin())
			} else {
				urls, err = readOPMLFile(args[0])
			}
			if err != nil {
				return err
			}
			return writeAria2Input(cmd.OutOrStdout(), urls)
		}),
	}
}

func readOPMLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return feed.ReadOPML(f)
}

func writeAria2Input(w io.Writer, urls []string) error {
	for _, u := range urls {
		if _, err := fmt.Fprintf(w, "%s\n out=podcast-%08x\n", u, rand.Uint32()); err != nil {
			return err
		}
	}
	return nil
}
