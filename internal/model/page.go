package model

// MaxTextRunes is the maximum length of the extracted plain text in a
// page record. Longer text is truncated; the cap keeps output lines and
// database rows bounded on content-heavy pages.
const MaxTextRunes = 4000

// PageRecord is the structured record emitted for one fetched page.
// One record is appended per successfully completed URL, as a single
// JSON object per line in the output file.
//
// Design decision: The JSON field names form the output contract of the
// crawler and are consumed by downstream tooling; changing them is a
// breaking change even though the Go names are free to evolve.
type PageRecord struct {
	// URL is the canonical URL of the fetched page.
	URL string `json:"url"`

	// Status is the HTTP response status code.
	Status int `json:"status"`

	// ContentType is the MIME type from the Content-Type header.
	ContentType string `json:"content_type"`

	// Title is the page title from the <title> tag.
	// Empty for non-HTML content.
	Title string `json:"title"`

	// Description is the meta description, falling back to the
	// OpenGraph og:description property.
	Description string `json:"description"`

	// Text is the visible plain text of the page, whitespace-collapsed
	// and truncated to MaxTextRunes.
	Text string `json:"text"`

	// NumLinks is the number of outgoing links that survived
	// normalization, before any domain filtering.
	NumLinks int `json:"num_links"`
}
