package report

import (
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/mshibata-dev/crawld/internal/frontier"
	"github.com/mshibata-dev/crawld/internal/model"
)

// MarkdownWriter renders a crawl summary in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	output io.Writer
	now    func() time.Time
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		output: output,
		now:    time.Now,
	}
}

// Write renders the crawl summary.
func (w *MarkdownWriter) Write(sum *frontier.Summary) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, sum)
	w.writeStates(md, sum)
	w.writeStatuses(md, sum)
	w.writeDomains(md, sum)
	w.writeFailures(md, sum)
	w.writeFooter(md)

	return md.Build()
}

// writeHeader writes the report header with overall crawl numbers.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, sum *frontier.Summary) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Report Date", w.now().Format("2006-01-02 15:04:05 MST")},
			{"Pages Stored", strconv.Itoa(sum.Pages)},
			{"Link Edges", strconv.Itoa(sum.Links)},
			{"Max Depth Reached", strconv.Itoa(sum.MaxDepth)},
		},
	})
	md.PlainText("")
}

// writeStates writes the frontier state breakdown.
func (w *MarkdownWriter) writeStates(md *markdown.Markdown, sum *frontier.Summary) {
	md.H2("Frontier")
	md.PlainText("")

	total := 0
	rows := make([][]string, 0, len(sum.ByState)+1)
	for _, state := range []model.CrawlState{
		model.StateDone,
		model.StateFailed,
		model.StatePending,
		model.StateInProgress,
	} {
		n := sum.ByState[state]
		total += n
		rows = append(rows, []string{state.String(), strconv.Itoa(n)})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(total) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"State", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if total > 0 {
		w.writeStateChart(md, sum)
	}

	if pending := sum.ByState[model.StatePending]; pending > 0 {
		md.Notef("%d URL(s) still pending. Resume the crawl to continue where it left off.", pending)
		md.PlainText("")
	}
}

// writeStateChart writes a mermaid pie chart of the state distribution.
func (w *MarkdownWriter) writeStateChart(md *markdown.Markdown, sum *frontier.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Frontier State Distribution"),
		piechart.WithShowData(true),
	)

	for _, state := range []model.CrawlState{
		model.StateDone,
		model.StateFailed,
		model.StatePending,
		model.StateInProgress,
	} {
		if n := sum.ByState[state]; n > 0 {
			chart.LabelAndIntValue(state.String(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeStatuses writes the HTTP status code breakdown.
func (w *MarkdownWriter) writeStatuses(md *markdown.Markdown, sum *frontier.Summary) {
	md.H2("HTTP Status Codes")
	md.PlainText("")

	if len(sum.ByStatus) == 0 {
		md.PlainText("No pages stored.")
		md.PlainText("")
		return
	}

	codes := make([]int, 0, len(sum.ByStatus))
	for code := range sum.ByStatus {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	rows := make([][]string, len(codes))
	for i, code := range codes {
		rows[i] = []string{strconv.Itoa(code), strconv.Itoa(sum.ByStatus[code])}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeDomains writes the per-domain page counts.
func (w *MarkdownWriter) writeDomains(md *markdown.Markdown, sum *frontier.Summary) {
	md.H2("Domains")
	md.PlainText("")

	if len(sum.ByDomain) == 0 {
		md.PlainText("No pages stored.")
		md.PlainText("")
		return
	}

	domains := make([]string, 0, len(sum.ByDomain))
	for d := range sum.ByDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	rows := make([][]string, len(domains))
	for i, d := range domains {
		rows[i] = []string{"`" + d + "`", strconv.Itoa(sum.ByDomain[d])}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the failure reason breakdown, if any.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, sum *frontier.Summary) {
	if len(sum.ByReason) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	reasons := make([]string, 0, len(sum.ByReason))
	for r := range sum.ByReason {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)

	rows := make([][]string, len(reasons))
	for i, r := range reasons {
		rows[i] = []string{r, strconv.Itoa(sum.ByReason[model.FailReason(r)])}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Reason", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [crawld](https://github.com/mshibata-dev/crawld)*")
}
