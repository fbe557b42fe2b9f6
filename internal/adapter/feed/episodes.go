// Package feed turns podcast RSS feeds into search documents and reads
// OPML subscription lists.
package feed

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/mmcdole/gofeed"
	"golang.org/x/crypto/blake2b"

	"github.com/cwygoda/get/internal/domain"
)

// AudioExt maps enclosure mime types to file extensions. Episodes with
// other types are skipped.
var AudioExt = map[string]string{
	"audio/mpeg": ".mp3",
	"audio/ogg":  ".opus",
	"audio/flac": ".flac",
}

// primary keys may hold only alphanumerics, hyphens and underscores
var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Feed is a parsed podcast feed. Updated is lastBuildDate as unix seconds,
// 0 when the feed has none.
type Feed struct {
	Title    string
	Updated  int64
	Episodes []domain.Document
	Skipped  int
}

// Parse decodes an RSS or Atom feed and builds one document per episode.
func Parse(data []byte, logger *slog.Logger) (*Feed, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFeed, err)
	}

	f := &Feed{Title: raw.Title}
	if raw.UpdatedParsed != nil {
		f.Updated = raw.UpdatedParsed.Unix()
	}
	logger = logger.With("podcast", f.Title)

	for _, item := range raw.Items {
		doc, ok := episode(f.Title, item, logger)
		if !ok {
			f.Skipped++
			continue
		}
		f.Episodes = append(f.Episodes, doc)
	}
	return f, nil
}

func episode(podcast string, item *gofeed.Item, logger *slog.Logger) (domain.Document, bool) {
	title := item.Title
	if v := item.Extensions["itunes"]["title"]; title == "" && len(v) > 0 {
		title = v[0].Value
	}

	if len(item.Enclosures) == 0 {
		logger.Warn("episode has no enclosure, skipping", "episode", title)
		return nil, false
	}
	if len(item.Enclosures) > 1 {
		logger.Debug("episode has several enclosures, using the first", "episode", title)
	}
	enc := item.Enclosures[0]
	ext, ok := AudioExt[enc.Type]
	if !ok {
		logger.Warn("unrecognized mimetype, skipping", "episode", title, "mimetype", enc.Type)
		return nil, false
	}

	key := item.GUID
	if !validKey.MatchString(key) {
		logger.Debug("invalid primary key, using checksum", "episode", title, "guid", key)
		key = EpisodeKey(podcast, title)
	}

	var published int64
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.Unix()
	}
	var notes, duration, number string
	if it := item.ITunesExt; it != nil {
		notes = it.Subtitle
		duration = it.Duration
		number = it.Episode
	}

	return domain.Document{
		"id":                  key,
		"audio_ext":           ext,
		"audio_src":           enc.URL,
		"title":               title,
		"podcast":             podcast,
		"description":         item.Description,
		"notes":               notes,
		"timestamp_published": published,
		"duration":            duration,
		"episode_no":          number,
	}, true
}

// EpisodeKey derives a stable primary key from the podcast and episode titles.
func EpisodeKey(podcast, title string) string {
	sum := blake2b.Sum512([]byte(podcast + " " + title))
	return hex.EncodeToString(sum[:])
}
