package render

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("render: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be parsed.
	ErrMalformedFrontMatter = errors.New("render: malformed frontmatter")
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// ReportMeta is the frontmatter of a markdown board report.
type ReportMeta struct {
	Report    string
	Table     string
	Snapshot  string
	Projects  int
	Generated time.Time
}

type reportEnvelope struct {
	Workbench reportMetadata `yaml:"workbench"`
}

type reportMetadata struct {
	Report    string `yaml:"report"`
	Table     string `yaml:"table"`
	Snapshot  string `yaml:"snapshot,omitempty"`
	Projects  int    `yaml:"projects"`
	Generated string `yaml:"generated"`
}

// WriteFrontMatter renders meta + body with YAML fences.
func WriteFrontMatter(meta ReportMeta, body []byte) ([]byte, error) {
	if meta.Report == "" {
		return nil, fmt.Errorf("render: frontmatter missing report kind")
	}
	envelope := reportEnvelope{Workbench: reportMetadata{
		Report:    meta.Report,
		Table:     meta.Table,
		Snapshot:  meta.Snapshot,
		Projects:  meta.Projects,
		Generated: meta.Generated.UTC().Format(timeLayout),
	}}
	data, err := yaml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("render: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

// ParseFrontMatter splits a report into its metadata and body.
func ParseFrontMatter(content []byte) (ReportMeta, []byte, error) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return ReportMeta{}, nil, ErrMissingFrontMatter
	}
	parts := bytes.SplitN(normalized[4:], []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return ReportMeta{}, nil, ErrMalformedFrontMatter
	}
	var envelope reportEnvelope
	if err := yaml.Unmarshal(parts[0], &envelope); err != nil {
		return ReportMeta{}, nil, fmt.Errorf("render: parse frontmatter: %w", err)
	}
	if envelope.Workbench.Report == "" {
		return ReportMeta{}, nil, ErrMalformedFrontMatter
	}
	generated, err := time.Parse(timeLayout, envelope.Workbench.Generated)
	if err != nil {
		return ReportMeta{}, nil, fmt.Errorf("render: parse generated timestamp: %w", err)
	}
	meta := ReportMeta{
		Report:    envelope.Workbench.Report,
		Table:     envelope.Workbench.Table,
		Snapshot:  envelope.Workbench.Snapshot,
		Projects:  envelope.Workbench.Projects,
		Generated: generated.UTC(),
	}
	return meta, bytes.TrimLeft(parts[1], "\n"), nil
}
