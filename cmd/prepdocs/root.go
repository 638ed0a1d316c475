package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rubric-orchestrator/internal/di"
	"rubric-orchestrator/internal/infra/config"
	"rubric-orchestrator/internal/infra/logger"
	"rubric-orchestrator/internal/usecase"
)

// newRootCmd builds the prepdocs command. Every flag can also be set through a
// PREPDOCS_ prefixed environment variable.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("prepdocs")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "prepdocs <files-glob>",
		Short: "Split, embed and index documents into the search index",
		Long: `prepdocs reads the documents matching a glob, splits them into sections,
embeds each section and uploads them to the configured search backend.

Example usage:
  prepdocs './data/*'                          # Index every document in ./data
  prepdocs './data/*.md' --category policy     # Tag sections with a category
  prepdocs './data/benefits.md' --remove       # Remove one document's sections
  prepdocs --removeall                         # Clear the index`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, args)
		},
	}

	flags := cmd.Flags()
	flags.String("category", "", "category stored with every section")
	flags.Bool("remove", false, "remove the matching documents' sections")
	flags.Bool("removeall", false, "remove every section from the index")
	flags.Bool("novectors", false, "skip embeddings")
	flags.StringSlice("oids", nil, "user object IDs allowed to read the sections")
	flags.StringSlice("groups", nil, "group IDs allowed to read the sections")
	flags.String("backend", "", "search backend: azure or postgres (defaults to SEARCH_BACKEND)")
	flags.BoolP("verbose", "v", false, "verbose output")
	_ = v.BindPFlags(flags)

	return cmd
}

func run(ctx context.Context, v *viper.Viper, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	level := "info"
	if v.GetBool("verbose") {
		level = "debug"
	}
	log := logger.New(logger.Options{Level: level, ServiceName: "prepdocs", Output: os.Stderr})

	cfg := config.Load()
	if b := v.GetString("backend"); b != "" {
		cfg.Search.Backend = b
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts, err := ingestOptions(v, cfg.Ingest.EmbeddingBatchSize)
	if err != nil {
		return err
	}

	var files []usecase.IngestFile
	if opts.Action != usecase.IngestActionRemoveAll {
		if len(args) == 0 {
			return fmt.Errorf("a files glob is required unless --removeall is set")
		}
		if files, err = loadFiles(args[0], opts.Action == usecase.IngestActionAdd); err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no files match %q", args[0])
		}
	}

	comps, err := di.NewIngestionComponents(ctx, cfg, cfg.Search.Backend, log)
	if err != nil {
		return err
	}
	defer comps.Close()

	out, err := comps.Ingest.Execute(ctx, usecase.IngestDocumentsInput{Files: files, Options: opts})
	if out != nil {
		log.Info("prepdocs_finished",
			slog.String("action", string(opts.Action)),
			slog.Int("files", out.Files),
			slog.Int("sections", out.Sections),
			slog.Int("removed", out.Removed))
	}
	return err
}

func ingestOptions(v *viper.Viper, batchSize int) (usecase.IngestOptions, error) {
	opts := usecase.IngestOptions{
		Action:             usecase.IngestActionAdd,
		Category:           v.GetString("category"),
		NoVectors:          v.GetBool("novectors"),
		OIDs:               v.GetStringSlice("oids"),
		Groups:             v.GetStringSlice("groups"),
		EmbeddingBatchSize: batchSize,
	}

	remove, removeAll := v.GetBool("remove"), v.GetBool("removeall")
	switch {
	case remove && removeAll:
		return opts, fmt.Errorf("--remove and --removeall are mutually exclusive")
	case removeAll:
		opts.Action = usecase.IngestActionRemoveAll
	case remove:
		opts.Action = usecase.IngestActionRemove
	}
	return opts, nil
}

// loadFiles expands pattern and reads every regular file it matches, sorted by
// path. Content is only read when withContent is set.
func loadFiles(pattern string, withContent bool) ([]usecase.IngestFile, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
	}
	sort.Strings(matches)

	files := make([]usecase.IngestFile, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			continue
		}
		f := usecase.IngestFile{Name: filepath.Base(path)}
		if withContent {
			if f.Content, err = os.ReadFile(path); err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
		}
		files = append(files, f)
	}
	return files, nil
}
