// Package extract parses fetched HTML pages into structured page data:
// title, description, visible text, and outgoing links. Links are
// resolved against the page URL and canonicalized, so the engine can
// feed them straight into the frontier.
package extract
