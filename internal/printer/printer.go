// Package printer renders human facing CLI output. Colors are dropped
// automatically when the destination is not a terminal.
package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hay-kot/criterio"

	"github.com/hay-kot/courier/internal/styles"
)

// Symbols
const (
	Check = "✔"
	Cross = "✘"
	Dot   = "•"
)

type ctxKey struct{}

// Printer handles formatted output with colors and styles
type Printer struct {
	writer io.Writer

	red     lipgloss.Style
	green   lipgloss.Style
	yellow  lipgloss.Style
	gray    lipgloss.Style
	section lipgloss.Style
	border  lipgloss.Style
	header  lipgloss.Style
}

// New creates a new Printer that writes to the given writer. The color
// profile is detected from w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		writer:  w,
		red:     r.NewStyle().Foreground(styles.ColorRed),
		green:   r.NewStyle().Foreground(styles.ColorGreen),
		yellow:  r.NewStyle().Foreground(styles.ColorYellow),
		gray:    r.NewStyle().Foreground(styles.ColorGray),
		section: r.NewStyle().Bold(true).Underline(true),
		border:  r.NewStyle().Foreground(styles.ColorGray),
		header:  r.NewStyle().Foreground(styles.ColorBlue).Bold(true).Padding(0, 1),
	}
}

// NewContext returns a context with the printer attached
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx retrieves the printer from context, or creates a default one
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stderr)
}

// FatalError prints a formatted error box and does NOT exit.
// Caller should handle exit code.
func (p *Printer) FatalError(err error) {
	if err == nil {
		return
	}

	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		p.printValidationErrors(err, fieldErrs)
		return
	}

	lines := []string{
		p.red.Render("╭ Error"),
		p.red.Render("│") + " " + p.gray.Render(err.Error()),
		p.red.Render("╵"),
	}
	p.write(strings.Join(lines, "\n"))
}

// printValidationErrors lists each field error under the context the
// error was wrapped with, e.g. "load config: invalid config".
func (p *Printer) printValidationErrors(wrappedErr error, fieldErrs criterio.FieldErrors) {
	errStr := wrappedErr.Error()
	fieldErrStr := fieldErrs.Error()

	errContext := ""
	if idx := strings.Index(errStr, fieldErrStr); idx > 0 {
		errContext = strings.TrimSuffix(errStr[:idx], ": ")
	}

	p.write(p.red.Render("╭ Validation Error"))

	if errContext != "" {
		p.write(p.red.Render("│") + " " + p.gray.Render(errContext))
		p.write(p.red.Render("│"))
	}

	for _, fe := range fieldErrs {
		line := p.red.Render("│") + " " + p.red.Render(Cross) + " "
		if fe.Field != "" {
			line += p.gray.Render(fe.Field + ": ")
		}
		line += fe.Err.Error()
		p.write(line)
	}

	p.write(p.red.Render("╵"))
}

// Errorf prints an error message in red
func (p *Printer) Errorf(format string, args ...any) {
	p.write(p.red.Render(Cross + " " + fmt.Sprintf(format, args...)))
}

// Successf prints a success message in green
func (p *Printer) Successf(format string, args ...any) {
	p.write(p.green.Render(Check + " " + fmt.Sprintf(format, args...)))
}

// Infof prints an info message in gray
func (p *Printer) Infof(format string, args ...any) {
	p.write(p.gray.Render(Dot + " " + fmt.Sprintf(format, args...)))
}

// Warnf prints a warning message in yellow
func (p *Printer) Warnf(format string, args ...any) {
	p.write(p.yellow.Render(Dot + " " + fmt.Sprintf(format, args...)))
}

// Printf prints a plain message without colors
func (p *Printer) Printf(format string, args ...any) {
	p.write(fmt.Sprintf(format, args...))
}

// Section prints a section header (bold + underlined)
func (p *Printer) Section(title string) {
	p.write(p.section.Render(title))
}

// CheckItem prints a success item with green checkmark
func (p *Printer) CheckItem(label, detail string) {
	p.printItem(p.green, Check, label, detail)
}

// WarnItem prints a warning item with yellow dot
func (p *Printer) WarnItem(label, detail string) {
	p.printItem(p.yellow, Dot, label, detail)
}

// FailItem prints a failure item with red cross
func (p *Printer) FailItem(label, detail string) {
	p.printItem(p.red, Cross, label, detail)
}

func (p *Printer) printItem(style lipgloss.Style, symbol, label, detail string) {
	line := "  " + style.Render(symbol) + " " + label
	if detail != "" {
		line += ": " + detail
	}
	p.write(line)
}

// Table prints rows under the given headers with a rounded border.
func (p *Printer) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	p.write(t.String())
}

func (p *Printer) write(s string) {
	_, _ = io.WriteString(p.writer, s+"\n")
}
