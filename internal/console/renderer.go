package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/temirov/testgate/internal/gate"
)

const (
	passMarkerConstant    = "PASS"
	failMarkerConstant    = "FAIL"
	summaryLineTemplate   = "%s %s %s (%s)"
	findingCountTemplate  = "%g findings"
	singleFindingConstant = "1 finding"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	moduleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// Renderer writes the per-audit summary lines for one run.
type Renderer struct {
	writer io.Writer
}

// NewRenderer constructs a Renderer targeting the given writer.
func NewRenderer(writer io.Writer) *Renderer {
	return &Renderer{writer: writer}
}

// RenderSummary prints one line per audit result in snapshot order.
func (renderer *Renderer) RenderSummary(results []gate.AuditResult) {
	if renderer == nil || renderer.writer == nil {
		return
	}
	for _, result := range results {
		fmt.Fprintln(renderer.writer, summaryLine(result))
	}
}

func summaryLine(result gate.AuditResult) string {
	marker := passStyle.Render(passMarkerConstant)
	if result.Status == gate.StatusFail {
		marker = failStyle.Render(failMarkerConstant)
	}
	return fmt.Sprintf(
		summaryLineTemplate,
		marker,
		moduleStyle.Render(result.Module),
		result.Name,
		findingCountLabel(result),
	)
}

func findingCountLabel(result gate.AuditResult) string {
	if len(result.Findings) == 1 && result.FindingCount == 1 {
		return singleFindingConstant
	}
	return fmt.Sprintf(findingCountTemplate, result.FindingCount)
}
