// Package engine runs the crawl: a pool of workers leasing URLs from
// the frontier, gating each fetch through the politeness controller,
// extracting links, and feeding discoveries back into the frontier
// until no work remains.
package engine
