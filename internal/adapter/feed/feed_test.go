package feed

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwygoda/get/internal/domain"
)

func TestParse(t *testing.T) {
	data, err := os.ReadFile("testdata/podcast.xml")
	require.NoError(t, err)

	f, err := Parse(data, nil)
	require.NoError(t, err)

	assert.Equal(t, "Hardcore History", f.Title)
	assert.Equal(t, int64(1700000000), f.Updated)
	assert.Equal(t, 2, f.Skipped, "video enclosure and missing enclosure")
	require.Len(t, f.Episodes, 3)

	first := f.Episodes[0]
	assert.Equal(t, "dhh-43", first["id"])
	assert.Equal(t, ".mp3", first["audio_ext"])
	assert.Equal(t, "https://cdn.example.com/dhh43.mp3", first["audio_src"])
	assert.Equal(t, "Wrath of the Khans I", first["title"])
	assert.Equal(t, "Hardcore History", first["podcast"])
	assert.Equal(t, "Part one", first["notes"])
	assert.Equal(t, "4:12:00", first["duration"])
	assert.Equal(t, "43", first["episode_no"])
	assert.Equal(t, int64(1699869600), first["timestamp_published"])

	second := f.Episodes[1]
	assert.Equal(t, EpisodeKey("Hardcore History", "Supernova in the East"), second["id"])
	assert.Equal(t, ".opus", second["audio_ext"])
	assert.Equal(t, "", second["episode_no"])

	third := f.Episodes[2]
	assert.Equal(t, "dhh-50", third["id"])
	assert.Equal(t, "Blueprint for Armageddon I", third["title"], "falls back to itunes:title")
	assert.Equal(t, ".flac", third["audio_ext"])
}

func TestParse_NoLastBuildDate(t *testing.T) {
	data := `<rss version="2.0"><channel><title>Bare</title></channel></rss>`
	f, err := Parse([]byte(data), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.Updated)
	assert.Empty(t, f.Episodes)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("not a feed"), nil)
	assert.ErrorIs(t, err, domain.ErrMalformedFeed)
	assert.True(t, domain.IsDroppable(err))
}

func TestEpisodeKey(t *testing.T) {
	k := EpisodeKey("Podcast", "Title")
	assert.Len(t, k, 128)
	assert.Regexp(t, validKey, k)
	assert.Equal(t, k, EpisodeKey("Podcast", "Title"))
	assert.NotEqual(t, k, EpisodeKey("Podcast", "Other"))
}

func TestReadOPML(t *testing.T) {
	f, err := os.Open("testdata/subscriptions.opml")
	require.NoError(t, err)
	defer f.Close()

	urls, err := ReadOPML(f)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://feeds.example.com/dhh.xml",
		"https://feeds.example.com/revolutions.xml",
		"https://feeds.example.com/cortex.xml",
	}, urls)
}

func TestReadOPML_Malformed(t *testing.T) {
	_, err := ReadOPML(strings.NewReader("<opml><body>"))
	assert.ErrorIs(t, err, domain.ErrMalformedFeed)
}
