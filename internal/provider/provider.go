// Package provider parses provider-db records: text files holding a YAML
// front matter block between "---" separators followed by free text.
package provider

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// separator delimits the sections of a provider file.
const separator = "---"

// Server protocols understood by the prober.
const (
	TypeSMTP = "smtp"
	TypeIMAP = "imap"
)

// Transport security modes.
const (
	SocketSSL      = "SSL"
	SocketSTARTTLS = "STARTTLS"
	SocketPlain    = "PLAIN"
)

// ServerSpec is one declared endpoint of a provider.
type ServerSpec struct {
	Type            string `yaml:"type"`
	Hostname        string `yaml:"hostname"`
	Port            int    `yaml:"port"`
	Socket          string `yaml:"socket"`
	UsernamePattern string `yaml:"username_pattern"`
}

// Address returns "host:port" as printed in report lines.
func (s ServerSpec) Address() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}

// Provider is a parsed provider record.
type Provider struct {
	Name    string
	Servers []ServerSpec

	// HasServers is false when the record declares no "server" key, or
	// declares it as null. Such records are never probed.
	HasServers bool

	// Freetext is the section following the front matter, verbatim.
	Freetext string

	// Fields holds every declared key, plus "freetext".
	Fields map[string]any

	// Path is the file the record was read from, if any.
	Path string
}

// ParseError reports a provider file that could not be parsed.
type ParseError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrTooFewSections is wrapped by a ParseError when a file has fewer than
// three separator-delimited sections.
var ErrTooFewSections = errors.New("expected at least 3 sections separated by " + separator)

// frontMatter is the subset of declared fields the checker relies on.
type frontMatter struct {
	Name    string       `yaml:"name"`
	Servers []ServerSpec `yaml:"server"`
}

// Parse decodes the raw text of a provider file. Section 1 is decoded as
// YAML and section 2 becomes Freetext; any further sections are ignored.
func Parse(raw string) (*Provider, error) {
	parts := strings.Split(raw, separator)
	if len(parts) < 3 {
		return nil, &ParseError{
			Msg: "invalid format",
			Err: fmt.Errorf("%w, got %d", ErrTooFewSections, len(parts)),
		}
	}

	var fields map[string]any
	if err := yaml.Unmarshal([]byte(parts[1]), &fields); err != nil {
		return nil, &ParseError{Msg: "failed to decode front matter", Err: err}
	}
	if fields == nil {
		return nil, &ParseError{Msg: "failed to decode front matter", Err: errors.New("front matter is not a mapping")}
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return nil, &ParseError{Msg: "failed to decode server list", Err: err}
	}

	fields["freetext"] = parts[2]

	return &Provider{
		Name:       fm.Name,
		Servers:    fm.Servers,
		HasServers: fields["server"] != nil,
		Freetext:   parts[2],
		Fields:     fields,
	}, nil
}

// ParseFile reads and parses the provider file at path.
func ParseFile(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider file: %w", err)
	}

	p, err := Parse(string(data))
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	p.Path = path
	return p, nil
}
