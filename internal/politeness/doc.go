// Package politeness gates fetches per domain.
//
// Politeness is the combination of robots-exclusion compliance and a
// minimum per-domain request spacing. The Controller keeps one state
// record per hostname (robots rules, last-request timestamp, in-flight
// count) and answers a single question: may this URL be fetched right
// now?
//
// # Decisions
//
// Check returns one of three verdicts:
//   - Disallowed: the URL path matches a robots disallow rule
//   - MustWait: too soon since the domain's last request; the caller
//     must wait out the returned duration and check again
//   - Allowed: the fetch may proceed; the domain's request slot is
//     reserved as part of the decision
//
// Reserving the slot atomically with the Allowed verdict is what makes
// the spacing guarantee hold for any number of concurrent workers: two
// workers asking about the same domain at the same instant cannot both
// be granted.
//
// # robots.txt
//
// Rules are fetched lazily, once per domain, with a short timeout, and
// cached for the process lifetime. A fetch failure or non-2xx response
// is treated as "no restrictions" - the permissive default used by most
// crawlers, which avoids a hard dependency on an unreliable endpoint.
// The effective inter-request delay is the maximum of the configured
// delay, the robots crawl-delay, and any per-domain override.
package politeness
