package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/scriptura/internal/catalog"
	"github.com/sells-group/scriptura/internal/model"
)

// seedCorpus is the on-disk format for public-domain corpus files.
type seedCorpus struct {
	Edition  string        `json:"edition" yaml:"edition"`
	Chapters []seedChapter `json:"chapters" yaml:"chapters"`
}

type seedChapter struct {
	Work    string        `json:"work" yaml:"work"`
	Chapter int           `json:"chapter" yaml:"chapter"`
	Verses  []model.Verse `json:"verses" yaml:"verses"`
}

var seedCmd = &cobra.Command{
	Use:   "seed FILE...",
	Short: "Load public-domain corpus files into the local store",
	Long:  "Seeds chapters for local-only editions. Seeded records never expire; they are the sole text source for editions with the local acquisition strategy.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		for _, path := range args {
			if err := seedFile(cmd, path, env); err != nil {
				return err
			}
		}
		return nil
	},
}

func seedFile(cmd *cobra.Command, path string, env *env) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "seed: read %s", path)
	}

	var corpus seedCorpus
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &corpus); err != nil {
			return eris.Wrapf(err, "seed: parse yaml %s", path)
		}
	case ".json":
		if err := json.Unmarshal(raw, &corpus); err != nil {
			return eris.Wrapf(err, "seed: parse json %s", path)
		}
	default:
		return eris.Errorf("seed: unsupported file extension %q", ext)
	}

	edition, ok := catalog.Lookup(corpus.Edition)
	if !ok {
		return eris.Errorf("seed: unknown edition %q in %s", corpus.Edition, path)
	}
	if edition.Strategy != catalog.StrategyLocal {
		return eris.Errorf("seed: edition %s is not locally served", edition.Code)
	}

	now := time.Now().UTC()
	seeded := 0
	for _, ch := range corpus.Chapters {
		work, ok := catalog.ResolveWork(ch.Work)
		if !ok {
			return eris.Errorf("seed: unknown work %q in %s", ch.Work, path)
		}
		if ch.Chapter < 1 || ch.Chapter > work.Chapters {
			return eris.Errorf("seed: %s has %d chapters, file has chapter %d", work.Name, work.Chapters, ch.Chapter)
		}
		if len(ch.Verses) == 0 {
			return eris.Errorf("seed: %s %d has no verses in %s", work.Code, ch.Chapter, path)
		}

		rec := &model.CacheRecord{
			WorkName:      work.Name,
			ChapterNumber: ch.Chapter,
			EditionCode:   edition.Code,
			Verses:        model.NormalizeVerses(ch.Verses),
			CachedAt:      now,
			// ExpiresAt stays nil: seeded text never goes stale.
		}
		if err := env.Store.PutChapter(cmd.Context(), rec); err != nil {
			return eris.Wrapf(err, "seed: store %s %d", work.Code, ch.Chapter)
		}
		seeded++
	}

	zap.L().Info("seeded corpus file",
		zap.String("file", path),
		zap.String("edition", edition.Code),
		zap.Int("chapters", seeded),
	)
	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
