package letterboxd

import (
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	// Namespace prefix Letterboxd uses for its RSS extension elements
	extensionNamespace = "letterboxd"

	// DefaultDisplayCount is how many movies a merged feed is truncated to.
	DefaultDisplayCount = 5
)

// Letterboxd puts the star rating in the entry title for rated log entries
const ratingGlyph = '★'

// RSS pub dates are RFC 2822-ish; feeds are inconsistent about leading
// zeroes on the day, so try both forms.
var pubDateFormats = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 MST",
}

// Merge collapses raw feed items into at most limit movies, one per film.
// Items without a filmTitle extension are dropped. When the same film shows
// up more than once the accumulated record adopts a rating it lacked, takes
// over a title carrying the rating glyph, and keeps the description and pub
// date of the most recent sighting. The result is sorted by pub date,
// newest first, with undated movies last.
func Merge(items []*gofeed.Item, limit int) []Movie {
	if limit <= 0 {
		limit = DefaultDisplayCount
	}

	merged := make(map[string]Movie)

	for _, item := range items {
		filmTitle := extensionValue(item, "filmTitle")
		if filmTitle == "" {
			log.WithFields(log.Fields{"title": item.Title}).Debug("Skipping item without film title")
			continue
		}

		movie := Movie{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			PubDate:     item.Published,
			FilmTitle:   filmTitle,
			Rating:      extensionValue(item, "memberRating"),
			Rewatch:     extensionValue(item, "rewatch"),
		}

		existing, ok := merged[filmTitle]
		if !ok {
			merged[filmTitle] = movie
			continue
		}

		if existing.Rating == "" && movie.Rating != "" {
			existing.Rating = movie.Rating
		}

		if !strings.ContainsRune(existing.Title, ratingGlyph) && strings.ContainsRune(movie.Title, ratingGlyph) {
			existing.Title = movie.Title
		}

		if existing.PubDate != "" && movie.PubDate != "" && comparePubDates(movie.PubDate, existing.PubDate) > 0 {
			existing.Description = movie.Description
			existing.PubDate = movie.PubDate
		}

		merged[filmTitle] = existing
	}

	movies := lo.Values(merged)

	sort.Slice(movies, func(i, j int) bool {
		return comparePubDates(movies[i].PubDate, movies[j].PubDate) > 0
	})

	if len(movies) > limit {
		movies = movies[:limit]
	}

	return movies
}

// comparePubDates returns >0 if a is more recent than b. Missing dates order
// after present ones; if either side fails to parse, both are compared as
// raw strings (lexical, not chronological).
func comparePubDates(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}

	aParsed, aErr := parsePubDate(a)
	bParsed, bErr := parsePubDate(b)
	if aErr == nil && bErr == nil {
		return aParsed.Compare(bParsed)
	}

	return strings.Compare(a, b)
}

func parsePubDate(value string) (time.Time, error) {
	var err error
	for _, format := range pubDateFormats {
		var parsed time.Time
		if parsed, err = time.Parse(format, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, err
}

func extensionValue(item *gofeed.Item, key string) string {
	values := item.Extensions[extensionNamespace][key]
	if len(values) == 0 {
		return ""
	}
	return values[0].Value
}
