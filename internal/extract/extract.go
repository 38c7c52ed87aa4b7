package extract

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/mshibata-dev/crawld/internal/model"
	"github.com/mshibata-dev/crawld/internal/urlnorm"
)

// Result contains all information extracted from an HTML page.
//
// Design decision: We return a single result struct from one parsing
// pass rather than separate title/text/links methods because the engine
// always wants all of it, and walking the DOM once is cheaper.
type Result struct {
	// Title is the page title from the <title> tag, whitespace-trimmed.
	Title string

	// Description is the content of <meta name="description">, falling
	// back to <meta property="og:description"> when absent.
	Description string

	// Text is the visible text of the page with whitespace collapsed,
	// capped at model.MaxTextRunes.
	Text string

	// Links contains the canonicalized outgoing anchor URLs in document
	// order. Duplicates are preserved; the frontier deduplicates.
	Links []string
}

// Parse reads an HTML document and extracts page data. Relative links
// are resolved against base. contentType is the HTTP Content-Type
// header and drives character set detection; pass "" when unknown.
func Parse(base *url.URL, r io.Reader, contentType string) (*Result, error) {
	// Decode legacy encodings (e.g. Shift_JIS, ISO-8859-1) to UTF-8
	// before parsing. Detection falls back to sniffing the body.
	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(decoded)
	if err != nil {
		return nil, err
	}

	result := &Result{Links: make([]string, 0)}

	var (
		text     strings.Builder
		descName string // name of the meta tag Description came from
	)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				// Not visible text.
				return
			case "title":
				if result.Title == "" {
					result.Title = strings.TrimSpace(textOf(n))
				}
			case "a":
				href := strings.TrimSpace(getAttr(n, "href"))
				// Fragment-only anchors point back at the page itself.
				if href != "" && !strings.HasPrefix(href, "#") {
					if link, err := urlnorm.Normalize(base, href); err == nil {
						result.Links = append(result.Links, link)
					}
				}
			case "meta":
				name := getAttr(n, "name")
				if name == "" {
					name = getAttr(n, "property") // OpenGraph uses property
				}
				content := strings.TrimSpace(getAttr(n, "content"))
				if content != "" && betterDescription(descName, name) {
					result.Description = content
					descName = name
				}
			}
		case html.TextNode:
			text.WriteString(n.Data)
			text.WriteString(" ")
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	result.Text = collapseText(text.String())
	return result, nil
}

// betterDescription reports whether a meta tag named candidate should
// replace the description taken from a tag named current. The plain
// description tag wins over og:description; the first of each kind
// wins over later duplicates.
func betterDescription(current, candidate string) bool {
	switch candidate {
	case "description":
		return current != "description"
	case "og:description":
		return current == ""
	default:
		return false
	}
}

// textOf concatenates the text content of a node's subtree.
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// collapseText joins all whitespace runs into single spaces and caps
// the result at model.MaxTextRunes runes.
func collapseText(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")

	runes := []rune(collapsed)
	if len(runes) > model.MaxTextRunes {
		return string(runes[:model.MaxTextRunes])
	}
	return collapsed
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
