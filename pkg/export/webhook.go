package export

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/riskscope/riskscope/pkg/batch"
	"github.com/riskscope/riskscope/pkg/report"
	"github.com/riskscope/riskscope/pkg/scoring"
)

// ErrUnsupportedPlatform is returned for webhook platforms other than Slack and Teams.
var ErrUnsupportedPlatform = errors.New("unsupported webhook platform")

// Platform is a chat webhook flavour.
type Platform string

const (
	PlatformSlack Platform = "slack"
	PlatformTeams Platform = "teams"
)

// ParsePlatform validates a platform name.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformSlack, PlatformTeams:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, s)
}

// SlackPayload is an incoming-webhook message with one attachment.
type SlackPayload struct {
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

type SlackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []SlackField `json:"fields"`
	Footer string       `json:"footer,omitempty"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// TeamsPayload is an Office 365 connector MessageCard.
type TeamsPayload struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor"`
	Summary    string         `json:"summary"`
	Title      string         `json:"title"`
	Sections   []TeamsSection `json:"sections"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	Text          string      `json:"text,omitempty"`
	Facts         []TeamsFact `json:"facts"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type fact struct{ name, value string }

func verdictHex(v scoring.Verdict) string {
	switch v {
	case scoring.VerdictPass:
		return "#2EB67D"
	case scoring.VerdictFlag:
		return "#ECB22E"
	default:
		return "#E01E5A"
	}
}

// WebhookPayload builds the chat message summarising a report.
func WebhookPayload(r *report.Report, platform Platform) (any, error) {
	if r == nil {
		return nil, ErrNilReport
	}
	title := fmt.Sprintf("Risk report: %s", orDefault(r.Name(), "Unnamed project"))
	facts := []fact{
		{"Score", fmt.Sprintf("%d/100", r.Metadata.RiskScore)},
		{"Verdict", strings.ToUpper(orDefault(string(r.Metadata.Verdict), "n/a"))},
		{"Tier", orDefault(string(r.Metadata.RiskTier), "n/a")},
		{"Confidence", formatFloat(r.Metadata.Confidence) + "%"},
	}
	if top := r.TopRedFlag(); top != "" {
		facts = append(facts, fact{"Top Red Flag", top})
	}
	text := ""
	if len(r.Recommendations) > 0 {
		text = r.Recommendations[0]
	}
	return buildPayload(platform, title, text, verdictHex(r.Metadata.Verdict), facts)
}

// BatchWebhookPayload builds the chat message summarising a batch.
func BatchWebhookPayload(s batch.Summary, platform Platform) (any, error) {
	title := fmt.Sprintf("Batch screening: %d projects", s.Total)
	facts := []fact{
		{"Passed", strconv.Itoa(s.Passed)},
		{"Flagged", strconv.Itoa(s.Flagged)},
		{"Rejected", strconv.Itoa(s.Rejected)},
		{"Average Score", strconv.Itoa(s.AverageRiskScore)},
		{"Processing Time", fmt.Sprintf("%dms", s.ProcessingTime)},
	}
	if len(s.Errors) > 0 {
		facts = append(facts, fact{"Errors", strconv.Itoa(len(s.Errors))})
	}
	if top := s.TopFlags(); len(top) > 0 {
		facts = append(facts, fact{"Most Common Red Flag", fmt.Sprintf("%s (%d)", top[0].Flag, top[0].Count)})
	}

	color := verdictHex(scoring.VerdictPass)
	switch {
	case s.Rejected > 0:
		color = verdictHex(scoring.VerdictReject)
	case s.Flagged > 0:
		color = verdictHex(scoring.VerdictFlag)
	}
	return buildPayload(platform, title, "", color, facts)
}

func buildPayload(platform Platform, title, text, color string, facts []fact) (any, error) {
	switch platform {
	case PlatformSlack:
		att := SlackAttachment{Color: color, Title: title, Text: text, Footer: "riskscope"}
		for _, f := range facts {
			att.Fields = append(att.Fields, SlackField{Title: f.name, Value: f.value, Short: len(f.value) <= 20})
		}
		return SlackPayload{Text: title, Attachments: []SlackAttachment{att}}, nil
	case PlatformTeams:
		sec := TeamsSection{ActivityTitle: title, Text: text}
		for _, f := range facts {
			sec.Facts = append(sec.Facts, TeamsFact{Name: f.name, Value: f.value})
		}
		return TeamsPayload{
			Type:       "MessageCard",
			Context:    "https://schema.org/extensions",
			ThemeColor: strings.TrimPrefix(color, "#"),
			Summary:    title,
			Title:      title,
			Sections:   []TeamsSection{sec},
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, string(platform))
}

// WebhookRenderer writes the webhook payload for a platform as JSON.
type WebhookRenderer struct {
	Platform Platform
}

func (wr *WebhookRenderer) Render(w io.Writer, r *report.Report) error {
	payload, err := WebhookPayload(r, wr.Platform)
	if err != nil {
		return err
	}
	return encodeJSON(w, payload)
}
