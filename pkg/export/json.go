package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/riskscope/riskscope/pkg/batch"
	"github.com/riskscope/riskscope/pkg/report"
)

// JSONRenderer marshals a Report to indented JSON.
type JSONRenderer struct{}

func (j *JSONRenderer) Render(w io.Writer, r *report.Report) error {
	return ReportJSON(w, r)
}

// ReportJSON writes the full report contract.
func ReportJSON(w io.Writer, r *report.Report) error {
	if r == nil {
		return ErrNilReport
	}
	return encodeJSON(w, r)
}

// DecodeReport reads a report written by ReportJSON.
func DecodeReport(rd io.Reader) (*report.Report, error) {
	var r report.Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &r, nil
}

// PacketJSON writes a partner packet.
func PacketJSON(w io.Writer, p batch.PartnerPacket) error {
	return encodeJSON(w, p)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
