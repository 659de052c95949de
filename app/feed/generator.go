package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/veritas-media/veritas/app/cfg"
	"github.com/veritas-media/veritas/app/database"
)

// Generator renders a sector's checked articles as an RSS 2.0 digest.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(sector string, rows []database.ArticleWithChecks) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	label := cmp.Or(sector, "all sectors")
	g.writeElement(&buf, "title", fmt.Sprintf("Veritas digest: %s", label), 4)

	selfLink := g.selfLink(sector)
	g.writeElement(&buf, "link", selfLink, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Verification results for %s", label), 4)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	if len(rows) > 0 {
		lastBuildDate = cmp.Or(rows[0].CreatedAt, lastBuildDate)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Veritas/%s", cfg.Get().Version), 4)
	g.writeElement(&buf, "language", "en", 4)

	for _, row := range rows {
		g.writeItem(&buf, row)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) selfLink(sector string) string {
	base := cfg.Get().BaseURL
	if base == "" {
		base = fmt.Sprintf("http://localhost:%s", cfg.Get().Port)
	}
	if sector == "" {
		return base + "/feeds"
	}
	return fmt.Sprintf("%s/feeds/%s", base, sector)
}

func (g *Generator) writeItem(buf *bytes.Buffer, row database.ArticleWithChecks) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(row.ID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", row.Title, 6)
	g.writeElement(buf, "link", row.URL, 6)
	g.writeElement(buf, "description", g.describe(row), 6)
	g.writeElement(buf, "pubDate", row.PublishedAt.Format(time.RFC1123Z), 6)

	if row.Sector != "" {
		g.writeElement(buf, "category", row.Sector, 6)
	}
	for _, label := range g.labels(row) {
		g.writeElement(buf, "category", label, 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) describe(row database.ArticleWithChecks) string {
	var parts []string

	switch {
	case row.TextCheck != nil:
		parts = append(parts, fmt.Sprintf("Claim: %s (%d%% confidence).", row.TextCheck.VerificationStatus, row.TextCheck.ConfidenceScore))
	default:
		parts = append(parts, "Claim: processing.")
	}

	switch {
	case row.ImageCheck != nil:
		parts = append(parts, fmt.Sprintf("Image: %s, %d matches.", row.ImageCheck.Status, row.ImageCheck.MatchCount))
	case row.HasImage():
		parts = append(parts, "Image: processing.")
	}

	if row.Strategy != nil && row.Strategy.Summary != "" {
		parts = append(parts, row.Strategy.Summary)
	}

	parts = append(parts, cmp.Or(row.Content, "No description available"))
	return strings.Join(parts, " ")
}

func (g *Generator) labels(row database.ArticleWithChecks) []string {
	var labels []string
	if row.TextCheck != nil {
		labels = append(labels, "claim:"+row.TextCheck.VerificationStatus)
	}
	if row.ImageCheck != nil {
		labels = append(labels, "image:"+row.ImageCheck.Status)
	}
	if row.Strategy != nil {
		labels = append(labels, "priority:"+row.Strategy.PriorityLevel)
	}
	return labels
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
