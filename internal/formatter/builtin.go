package formatter

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/lucasnoah/lintgate/internal/lint"
)

// styles holds the text decorations used by the human-readable formatters.
// With color disabled every style renders its input unchanged.
type styles struct {
	color bool
	file  lipgloss.Style
	pos   lipgloss.Style
	err   lipgloss.Style
	rule  lipgloss.Style
	total lipgloss.Style
}

func newStyles(color bool) styles {
	return styles{
		color: color,
		file:  lipgloss.NewStyle().Underline(true),
		pos:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		err:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		rule:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		total: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

func (s styles) apply(st lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return st.Render(text)
}

// padRight pads text to width visible cells.
func padRight(text string, width int) string {
	if n := width - lipgloss.Width(text); n > 0 {
		return text + strings.Repeat(" ", n)
	}
	return text
}

func problems(n int) string {
	if n == 1 {
		return "1 problem"
	}
	return fmt.Sprintf("%d problems", n)
}

func errorsWord(n int) string {
	if n == 1 {
		return "1 error"
	}
	return fmt.Sprintf("%d errors", n)
}

func position(f lint.Finding) string {
	return fmt.Sprintf("%d:%d", f.Line, f.Column)
}

// prettyFormatter groups findings per file with aligned columns and a
// one-line total.
type prettyFormatter struct{ st styles }

func (p *prettyFormatter) Render(report lint.Report) (string, error) {
	if report.TotalErrors() == 0 {
		return "", nil
	}

	posWidth, msgWidth := 0, 0
	for _, fr := range report {
		for _, f := range fr.Messages {
			posWidth = max(posWidth, len(position(f)))
			msgWidth = max(msgWidth, lipgloss.Width(f.Message))
		}
	}

	var b strings.Builder
	for _, fr := range report {
		if len(fr.Messages) == 0 {
			continue
		}
		b.WriteString("\n  ")
		b.WriteString(p.st.apply(p.st.file, fr.FilePath))
		b.WriteString("\n")
		for _, f := range fr.Messages {
			pos := p.st.apply(p.st.pos, strings.Repeat(" ", posWidth-len(position(f)))+position(f))
			b.WriteString("  ")
			b.WriteString(p.st.apply(p.st.err, "✖"))
			b.WriteString("  ")
			b.WriteString(pos)
			b.WriteString("  ")
			b.WriteString(padRight(f.Message, msgWidth))
			b.WriteString("  ")
			b.WriteString(p.st.apply(p.st.rule, f.RuleID))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n  ")
	b.WriteString(p.st.apply(p.st.total, errorsWord(report.TotalErrors())))
	b.WriteString("\n")
	return b.String(), nil
}

// stylishFormatter mirrors the classic per-file listing with a problem summary.
type stylishFormatter struct{ st styles }

func (s *stylishFormatter) Render(report lint.Report) (string, error) {
	total := report.TotalErrors()
	if total == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, fr := range report {
		if len(fr.Messages) == 0 {
			continue
		}
		posWidth, msgWidth := 0, 0
		for _, f := range fr.Messages {
			posWidth = max(posWidth, len(position(f)))
			msgWidth = max(msgWidth, lipgloss.Width(f.Message))
		}

		b.WriteString("\n")
		b.WriteString(s.st.apply(s.st.file, fr.FilePath))
		b.WriteString("\n")
		for _, f := range fr.Messages {
			b.WriteString("  ")
			b.WriteString(s.st.apply(s.st.pos, padRight(position(f), posWidth)))
			b.WriteString("  ")
			b.WriteString(s.st.apply(s.st.err, "error"))
			b.WriteString("  ")
			b.WriteString(padRight(f.Message, msgWidth))
			b.WriteString("  ")
			b.WriteString(s.st.apply(s.st.rule, f.RuleID))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(s.st.apply(s.st.total, fmt.Sprintf("✖ %s (%s, 0 warnings)", problems(total), errorsWord(total))))
	b.WriteString("\n")
	return b.String(), nil
}

func renderCompact(report lint.Report) (string, error) {
	var b strings.Builder
	for _, fr := range report {
		for _, f := range fr.Messages {
			fmt.Fprintf(&b, "%s: line %d, col %d, Error - %s (%s)\n", fr.FilePath, f.Line, f.Column, f.Message, f.RuleID)
		}
	}
	if total := report.TotalErrors(); total > 0 {
		fmt.Fprintf(&b, "\n%s\n", problems(total))
	}
	return b.String(), nil
}

func renderUnix(report lint.Report) (string, error) {
	var b strings.Builder
	for _, fr := range report {
		for _, f := range fr.Messages {
			fmt.Fprintf(&b, "%s:%d:%d: %s [Error/%s]\n", fr.FilePath, f.Line, f.Column, f.Message, f.RuleID)
		}
	}
	if total := report.TotalErrors(); total > 0 {
		fmt.Fprintf(&b, "\n%s\n", problems(total))
	}
	return b.String(), nil
}

func renderJSON(report lint.Report) (string, error) {
	if report == nil {
		report = lint.Report{}
	}
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data), nil
}

type checkstyleResult struct {
	XMLName xml.Name         `xml:"checkstyle"`
	Version string           `xml:"version,attr"`
	Files   []checkstyleFile `xml:"file"`
}

type checkstyleFile struct {
	Name   string            `xml:"name,attr"`
	Errors []checkstyleError `xml:"error"`
}

type checkstyleError struct {
	Line     int    `xml:"line,attr"`
	Column   int    `xml:"column,attr"`
	Severity string `xml:"severity,attr"`
	Message  string `xml:"message,attr"`
	Source   string `xml:"source,attr"`
}

func renderCheckstyle(report lint.Report) (string, error) {
	doc := checkstyleResult{Version: "4.3"}
	for _, fr := range report {
		cf := checkstyleFile{Name: fr.FilePath}
		for _, f := range fr.Messages {
			cf.Errors = append(cf.Errors, checkstyleError{
				Line:     f.Line,
				Column:   f.Column,
				Severity: "error",
				Message:  f.Message,
				Source:   f.RuleID,
			})
		}
		doc.Files = append(doc.Files, cf)
	}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal checkstyle: %w", err)
	}
	return xml.Header + string(data), nil
}

func renderTable(report lint.Report) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Line", "Col", "Rule", "Message"})
	for _, fr := range report {
		for _, f := range fr.Messages {
			t.AppendRow(table.Row{fr.FilePath, strconv.Itoa(f.Line), strconv.Itoa(f.Column), f.RuleID, f.Message})
		}
	}
	t.AppendFooter(table.Row{"", "", "", "", problems(report.TotalErrors())})
	return t.Render(), nil
}
