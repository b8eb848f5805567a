package spotify

import (
	"strings"

	"github.com/samber/lo"
)

// ExcludeGenres drops tracks whose genre list matches any entry of excluded.
// Matching is case-insensitive substring containment in either direction, so
// excluding "metal" drops a "doom metal" track and excluding "classic rock"
// drops a plain "rock" track. An empty exclusion list drops nothing.
func ExcludeGenres(tracks []Track, excluded []string) []Track {
	if len(excluded) == 0 {
		return tracks
	}

	return lo.Filter(tracks, func(track Track, _ int) bool {
		return !hasExcludedGenre(track.Genres, excluded)
	})
}

func hasExcludedGenre(genres, excluded []string) bool {
	return lo.SomeBy(genres, func(genre string) bool {
		genre = strings.ToLower(genre)
		return lo.SomeBy(excluded, func(exclusion string) bool {
			exclusion = strings.ToLower(exclusion)
			return strings.Contains(genre, exclusion) || strings.Contains(exclusion, genre)
		})
	})
}
