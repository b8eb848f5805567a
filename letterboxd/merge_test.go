package letterboxd_test

import (
	"fmt"
	"testing"

	"homefeed/letterboxd"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItem(title, description, pubDate string, extensions map[string]string) *gofeed.Item {
	item := &gofeed.Item{
		Title:       title,
		Link:        "https://letterboxd.com/someone/film/" + title + "/",
		Description: description,
		Published:   pubDate,
	}

	if len(extensions) > 0 {
		values := map[string][]ext.Extension{}
		for key, value := range extensions {
			values[key] = []ext.Extension{{Name: key, Value: value}}
		}
		item.Extensions = ext.Extensions{"letterboxd": values}
	}

	return item
}

func TestMergeDedupAdoptsRatingAndLatestReview(t *testing.T) {
	items := []*gofeed.Item{
		newItem("Heat, 1995", "first entry", "Sun, 01 Jan 2023 12:00:00 +0000", map[string]string{
			"filmTitle": "Heat",
		}),
		newItem("Heat, 1995", "the review", "Wed, 01 Feb 2023 12:00:00 +0000", map[string]string{
			"filmTitle":    "Heat",
			"memberRating": "4.0",
		}),
	}

	movies := letterboxd.Merge(items, 5)

	require.Len(t, movies, 1)
	assert.Equal(t, "Heat", movies[0].FilmTitle)
	assert.Equal(t, "4.0", movies[0].Rating)
	assert.Equal(t, "the review", movies[0].Description)
	assert.Equal(t, "Wed, 01 Feb 2023 12:00:00 +0000", movies[0].PubDate)
}

func TestMergeKeepsExistingRating(t *testing.T) {
	items := []*gofeed.Item{
		newItem("Alien, 1979", "rated", "Sun, 01 Jan 2023 12:00:00 +0000", map[string]string{
			"filmTitle":    "Alien",
			"memberRating": "5.0",
		}),
		newItem("Alien, 1979", "unrated resync", "Sun, 01 Jan 2023 12:00:00 +0000", map[string]string{
			"filmTitle": "Alien",
		}),
	}

	movies := letterboxd.Merge(items, 5)

	require.Len(t, movies, 1)
	assert.Equal(t, "5.0", movies[0].Rating)
}

func TestMergeAdoptsTitleWithRatingGlyph(t *testing.T) {
	items := []*gofeed.Item{
		newItem("Heat, 1995", "logged", "Sun, 01 Jan 2023 12:00:00 +0000", map[string]string{
			"filmTitle": "Heat",
		}),
		newItem("Heat, 1995 - ★★★★", "rated", "Sun, 01 Jan 2023 11:00:00 +0000", map[string]string{
			"filmTitle":    "Heat",
			"memberRating": "4.0",
		}),
	}

	movies := letterboxd.Merge(items, 5)

	require.Len(t, movies, 1)
	assert.Equal(t, "Heat, 1995 - ★★★★", movies[0].Title)
	// The earlier sighting must not take over the description
	assert.Equal(t, "logged", movies[0].Description)
}

func TestMergeTruncatesAndSortsDescending(t *testing.T) {
	var items []*gofeed.Item
	for day := 1; day <= 10; day++ {
		film := fmt.Sprintf("Film %02d", day)
		pubDate := fmt.Sprintf("Mon, %02d Jan 2024 12:00:00 +0000", day)
		items = append(items, newItem(film, "watched", pubDate, map[string]string{
			"filmTitle": film,
		}))
	}

	movies := letterboxd.Merge(items, 5)

	require.Len(t, movies, 5)
	for i, movie := range movies {
		assert.Equal(t, fmt.Sprintf("Film %02d", 10-i), movie.FilmTitle)
	}
}

func TestMergeDropsItemsWithoutFilmTitle(t *testing.T) {
	items := []*gofeed.Item{
		newItem("A list, not a film", "list entry", "Sun, 01 Jan 2023 12:00:00 +0000", nil),
		newItem("Heat, 1995", "watched", "Sun, 01 Jan 2023 12:00:00 +0000", map[string]string{
			"filmTitle": "Heat",
		}),
	}

	movies := letterboxd.Merge(items, 5)

	require.Len(t, movies, 1)
	assert.Equal(t, "Heat", movies[0].FilmTitle)
}

func TestMergeAllItemsWithoutIdentity(t *testing.T) {
	items := []*gofeed.Item{
		newItem("one", "x", "Sun, 01 Jan 2023 12:00:00 +0000", nil),
		newItem("two", "y", "Sun, 01 Jan 2023 12:00:00 +0000", nil),
	}

	assert.Empty(t, letterboxd.Merge(items, 5))
}

func TestMergeEmptyInput(t *testing.T) {
	assert.Empty(t, letterboxd.Merge(nil, 5))
}

func TestMergeUnparsableDatesFallBackToLexicalOrder(t *testing.T) {
	items := []*gofeed.Item{
		newItem("First", "x", "aaa not a date", map[string]string{"filmTitle": "First"}),
		newItem("Second", "y", "zzz not a date", map[string]string{"filmTitle": "Second"}),
	}

	movies := letterboxd.Merge(items, 5)

	require.Len(t, movies, 2)
	// Lexical comparison, not chronological: "zzz" sorts before "aaa"
	assert.Equal(t, "Second", movies[0].FilmTitle)
	assert.Equal(t, "First", movies[1].FilmTitle)
}

func TestMergeUndatedMoviesSortLast(t *testing.T) {
	items := []*gofeed.Item{
		newItem("Undated", "x", "", map[string]string{"filmTitle": "Undated"}),
		newItem("Dated", "y", "Mon, 01 Jan 2024 12:00:00 +0000", map[string]string{"filmTitle": "Dated"}),
	}

	movies := letterboxd.Merge(items, 5)

	require.Len(t, movies, 2)
	assert.Equal(t, "Dated", movies[0].FilmTitle)
	assert.Equal(t, "Undated", movies[1].FilmTitle)
}
