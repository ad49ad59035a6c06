// Package export renders reports and batch results for consumers: CSV, JSON,
// HTML, terminal text and chat webhook payloads. Delivery to files, writers,
// webhooks and blob storage goes through Pipeline.Share, which never fails loudly.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/riskscope/riskscope/pkg/report"
)

// ErrUnsupportedFormat is returned for unknown export formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ErrNilReport is returned when a renderer or payload builder is handed no report.
var ErrNilReport = errors.New("no report")

// Renderer produces formatted output from a Report.
type Renderer interface {
	// Render writes the formatted report to the writer.
	Render(w io.Writer, r *report.Report) error
}

// Format names an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatHTML     Format = "html"
	FormatText     Format = "text"
	FormatTerminal Format = "terminal"
	FormatSlack    Format = "slack"
	FormatTeams    Format = "teams"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatJSON, FormatCSV, FormatHTML, FormatText, FormatTerminal, FormatSlack, FormatTeams:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Renderer returns the renderer for the format.
func (f Format) Renderer() (Renderer, error) {
	switch f {
	case FormatJSON:
		return &JSONRenderer{}, nil
	case FormatCSV:
		return &CSVRenderer{}, nil
	case FormatHTML:
		return &HTMLRenderer{}, nil
	case FormatText:
		return &TextRenderer{}, nil
	case FormatTerminal:
		return &TerminalRenderer{}, nil
	case FormatSlack:
		return &WebhookRenderer{Platform: PlatformSlack}, nil
	case FormatTeams:
		return &WebhookRenderer{Platform: PlatformTeams}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON, FormatSlack, FormatTeams:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatJSON, FormatSlack, FormatTeams:
		return "json"
	case FormatCSV:
		return "csv"
	case FormatHTML:
		return "html"
	default:
		return "txt"
	}
}
