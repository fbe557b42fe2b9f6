package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwygoda/get/internal/adapter/blobstore"
	"github.com/cwygoda/get/internal/adapter/source"
	"github.com/cwygoda/get/internal/destination"
	"github.com/cwygoda/get/internal/domain"
	"github.com/cwygoda/get/internal/pipeline"
)

func newMangaDexCommand(ctx *commandContext) *cobra.Command {
	var (
		language    string
		dest        string
		api         string
		group       int
		allLanguage bool
	)

	cmd := &cobra.Command{
		Use:   "mangadex PAGE [WORKERS]",
		Short: "Download every chapter of a MangaDex title",
		Long: `Download every chapter of one scanlation group of a MangaDex title.

PAGE is a title page such as https://mangadex.org/title/499/teppu/ or a bare
title id. Chapters already present at the destination are skipped. When the
title has several groups, the group is chosen with --group or interactively.`,
		Args: withUsage(cobra.RangeArgs(1, 2)),
		RunE: ctx.run(func(cmd *cobra.Command, args []string) error {
			cfg := ctx.cfg
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("WORKERS must be a number, got %q", args[1])
				}
				cfg.Workers = n
			}
			f := cmd.Flags()
			if f.Changed("language") {
				cfg.MangaDex.Language = language
			}
			if allLanguage {
				cfg.MangaDex.Language = ""
			}
			if f.Changed("dest") {
				cfg.MangaDex.Destination = dest
			}
			if f.Changed("api") {
				cfg.MangaDex.API = api
			}
			if err := ctx.validate(); err != nil {
				return err
			}

			pool := ctx.originPool(nil)
			registry := source.NewRegistry()
			registry.Register(source.NewMangaDex(cfg.MangaDex.API, pool))
			src := registry.Match(args[0])
			if src == nil {
				return fmt.Errorf("%w %q, supported: %s", domain.ErrNoSource, args[0], sourceNames(registry))
			}

			if err := ctx.lock(cfg.MangaDex.Destination); err != nil {
				return err
			}
			store, err := blobstore.Open(cmd.Context(), cfg.MangaDex.Destination)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := ctx.serve(); err != nil {
				return err
			}

			p := pipeline.New(src, pool, destination.NewResolver(store), pipeline.Options{
				Workers:  cfg.Workers,
				Language: cfg.MangaDex.Language,
				Retry:    ctx.retryPolicy(),
				Logger:   ctx.logger,
				Observer: ctx.metrics,
			})
			sel := newGroupSelector(group, cmd.InOrStdin(), cmd.OutOrStdout())
			sum, err := p.Collect(cmd.Context(), args[0], sel)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d written, %d already present, %d failed\n",
				sum.Collection, sum.Written, sum.Skipped, sum.Failed())
			if sum.Failed() > 0 {
				return fmt.Errorf("%d tasks failed", sum.Failed())
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Chapter language code (default gb)")
	cmd.Flags().BoolVar(&allLanguage, "all-languages", false, "Do not filter chapters by language")
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination directory or bucket URL (default ~/Manga)")
	cmd.Flags().StringVar(&api, "api", "", "MangaDex API base URL")
	cmd.Flags().IntVarP(&group, "group", "g", 0, "Group number to download when the title has several")

	return cmd
}

func sourceNames(r *source.Registry) string {
	names := make([]string, 0, len(r.Sources()))
	for _, s := range r.Sources() {
		names = append(names, s.Name())
	}
	return strings.Join(names, ", ")
}
