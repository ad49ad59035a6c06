package export

import (
	"bytes"
	"html/template"
	"io"
	"log/slog"
	"strings"

	"github.com/russross/blackfriday/v2"

	"github.com/riskscope/riskscope/pkg/report"
)

// HTMLRenderer writes a self-contained, print-ready HTML document.
// If the template fails, the plain text rendering is written instead.
type HTMLRenderer struct {
	Logger *slog.Logger
}

type htmlMetric struct {
	Name         string
	Score        string
	Status       string
	Weight       int
	Contribution string
	Evidence     template.HTML
}

type htmlView struct {
	Title           string
	Platform        string
	ScannedAt       string
	Score           int
	Verdict         string
	Tier            string
	Confidence      string
	RedFlags        []string
	Metrics         []htmlMetric
	Recommendations []string
	Sources         []string
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} - Risk Report</title>
<style>
body{font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;color:#1f2328;max-width:900px;margin:2rem auto;padding:0 1rem;line-height:1.5}
h1{margin-bottom:.25rem}
.meta{color:#656d76;font-size:.9rem}
.score{display:flex;gap:1.5rem;margin:1.5rem 0;padding:1rem;border-radius:8px;background:#f6f8fa}
.score div{font-size:.85rem;color:#656d76}
.score strong{display:block;font-size:1.5rem;color:#1f2328}
.verdict-pass strong{color:#1a7f37}.verdict-flag strong{color:#9a6700}.verdict-reject strong{color:#cf222e}
.metric{border:1px solid #d0d7de;border-radius:8px;padding:1rem;margin:1rem 0;page-break-inside:avoid}
.metric h3{margin:0 0 .5rem}
.status{font-size:.8rem;padding:.1rem .5rem;border-radius:1rem;background:#eaeef2}
.status-high,.status-critical{background:#ffebe9;color:#cf222e}
.status-moderate{background:#fff8c5;color:#9a6700}
.status-low{background:#dafbe1;color:#1a7f37}
.evidence h3{font-size:.95rem}
@media print{body{margin:0}.metric{border-color:#999}}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">Platform: {{.Platform}} &middot; Scanned: {{.ScannedAt}}</p>
<section class="score verdict-{{.Verdict}}">
<div>Risk score<strong>{{.Score}}/100</strong></div>
<div>Verdict<strong>{{.Verdict}}</strong></div>
<div>Tier<strong>{{.Tier}}</strong></div>
<div>Confidence<strong>{{.Confidence}}</strong></div>
</section>
{{if .RedFlags}}<h2>Red Flags</h2>
<ul>{{range .RedFlags}}<li>{{.}}</li>{{end}}</ul>{{end}}
<h2>Recommendations</h2>
<ol>{{range .Recommendations}}<li>{{.}}</li>{{end}}</ol>
<h2>Metric Breakdown</h2>
{{range .Metrics}}<div class="metric">
<h3>{{.Name}} <span class="status status-{{.Status}}">{{.Status}}</span></h3>
<p class="meta">Score {{.Score}} &middot; Weight {{.Weight}} &middot; Contribution {{.Contribution}}</p>
<div class="evidence">{{.Evidence}}</div>
</div>
{{end}}{{if .Sources}}<h2>Sources</h2>
<ul>{{range .Sources}}<li>{{.}}</li>{{end}}</ul>{{end}}
</body>
</html>
`))

// markdownHTML converts evidence markdown to HTML. Raw HTML in the input is dropped.
// The blackfriday renderer keeps per-document state, so one is built per call.
func markdownHTML(md string) template.HTML {
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.SkipHTML | blackfriday.Safelink,
	})
	out := blackfriday.Run([]byte(md), blackfriday.WithRenderer(renderer))
	return template.HTML(out)
}

func (h *HTMLRenderer) Render(w io.Writer, r *report.Report) error {
	if r == nil {
		r = &report.Report{}
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, newHTMLView(r)); err != nil {
		h.logger().Warn("html export failed, falling back to text", "report", r.ID, "error", err)
		return (&TextRenderer{}).Render(w, r)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (h *HTMLRenderer) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// ReportHTML renders the HTML document for r into a string.
func ReportHTML(r *report.Report) string {
	var sb strings.Builder
	_ = (&HTMLRenderer{}).Render(&sb, r)
	return sb.String()
}

func newHTMLView(r *report.Report) htmlView {
	v := htmlView{
		Title:           orDefault(r.Name(), "Unnamed project"),
		Platform:        orDefault(r.Metadata.Platform, "unknown"),
		ScannedAt:       "n/a",
		Score:           r.Metadata.RiskScore,
		Verdict:         orDefault(string(r.Metadata.Verdict), "n/a"),
		Tier:            orDefault(string(r.Metadata.RiskTier), "n/a"),
		Confidence:      formatFloat(r.Metadata.Confidence) + "%",
		RedFlags:        r.RedFlags(),
		Recommendations: r.Recommendations,
		Sources:         r.Sources,
	}
	if !r.Metadata.ScannedAt.IsZero() {
		v.ScannedAt = r.Metadata.ScannedAt.Format("2006-01-02 15:04 MST")
	}
	if len(v.Recommendations) == 0 {
		v.Recommendations = report.Recommendations(r.Metadata.RiskScore)
	}

	for _, m := range r.Metrics {
		evidence := markdownHTML(m.Evidence.Markdown())
		if m.Evidence.Headline == "" && len(m.Evidence.Sections) == 0 {
			evidence = template.HTML("<p>No evidence recorded.</p>")
		}
		v.Metrics = append(v.Metrics, htmlMetric{
			Name:         orDefault(m.Name, m.Key),
			Score:        formatFloat(m.Score),
			Status:       orDefault(string(m.Status), "unknown"),
			Weight:       m.Weight,
			Contribution: formatFloat(m.Contribution),
			Evidence:     evidence,
		})
	}
	return v
}
