package lint

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Engine output formats understood by DecodeIssues.
const (
	OutputHTMLLint = "htmllint"
	OutputESLint   = "eslint"
)

// IssueDecoder converts raw engine output into issues.
type IssueDecoder func(data []byte) ([]Issue, error)

var decoders = map[string]IssueDecoder{
	OutputHTMLLint: decodeNative,
	OutputESLint:   decodeESLint,
}

// KnownOutput reports whether name is a supported engine output format.
func KnownOutput(name string) bool {
	_, ok := decoders[name]
	return ok
}

// DecodeIssues parses engine output in the named format. Blank output means no
// issues.
func DecodeIssues(format string, data []byte) ([]Issue, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("unknown engine output format %q", format)
	}
	return dec(data)
}

func decodeNative(data []byte) ([]Issue, error) {
	var issues []Issue
	if err := json.Unmarshal(data, &issues); err != nil {
		return nil, fmt.Errorf("parse engine issues: %w", err)
	}
	return issues, nil
}

type eslintFile struct {
	FilePath string          `json:"filePath"`
	Messages []eslintMessage `json:"messages"`
}

type eslintMessage struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"` // 1=warning, 2=error
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// decodeESLint flattens ESLint JSON results. Severity is dropped: every
// finding in this system is an error.
func decodeESLint(data []byte) ([]Issue, error) {
	var files []eslintFile
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("parse ESLint JSON: %w", err)
	}

	var issues []Issue
	for _, f := range files {
		for _, m := range f.Messages {
			issues = append(issues, Issue{
				Rule:   m.RuleID,
				Line:   m.Line,
				Column: m.Column,
				Msg:    m.Message,
			})
		}
	}
	return issues, nil
}
