package letterboxd

// Movie is one watched film distilled from the Letterboxd RSS feed. A film
// may be reported by several feed entries (a log entry plus a review, or a
// re-sync); Merge collapses them into one record per film.
type Movie struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	PubDate     string `json:"pub_date,omitempty"`
	FilmTitle   string `json:"film_title,omitempty"`
	Rating      string `json:"rating,omitempty"`
	Rewatch     string `json:"rewatch,omitempty"`
}
