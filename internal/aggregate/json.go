package aggregate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/temirov/testgate/internal/gate"
)

const (
	indentUnitConstant = "  "
)

// SerializeResults renders the results as the canonical pretty-JSON array.
// Absent filePath, line, and severity fields serialize as null; tolerance
// and findingCount are numeric; strings are escaped per RFC 8259.
func SerializeResults(results []gate.AuditResult) string {
	var builder strings.Builder
	builder.WriteString("[")
	for resultIndex, result := range results {
		if resultIndex > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("\n")
		writeResult(&builder, result, 1)
	}
	if len(results) > 0 {
		builder.WriteString("\n")
	}
	builder.WriteString("]")
	builder.WriteString("\n")
	return builder.String()
}

func writeResult(builder *strings.Builder, result gate.AuditResult, depth int) {
	indent := strings.Repeat(indentUnitConstant, depth)
	fieldIndent := strings.Repeat(indentUnitConstant, depth+1)

	builder.WriteString(indent + "{\n")
	builder.WriteString(fieldIndent + quoted("module") + ": " + quoted(result.Module) + ",\n")
	builder.WriteString(fieldIndent + quoted("name") + ": " + quoted(result.Name) + ",\n")
	builder.WriteString(fieldIndent + quoted("findings") + ": ")
	writeFindings(builder, result.Findings, depth+1)
	builder.WriteString(",\n")
	builder.WriteString(fieldIndent + quoted("tolerance") + ": " + strconv.Itoa(result.Tolerance) + ",\n")
	builder.WriteString(fieldIndent + quoted("findingCount") + ": " + formatNumber(result.FindingCount) + ",\n")
	builder.WriteString(fieldIndent + quoted("status") + ": " + quoted(string(result.Status)) + "\n")
	builder.WriteString(indent + "}")
}

func writeFindings(builder *strings.Builder, findings []gate.Finding, depth int) {
	if len(findings) == 0 {
		builder.WriteString("[]")
		return
	}
	indent := strings.Repeat(indentUnitConstant, depth)
	builder.WriteString("[\n")
	for findingIndex, finding := range findings {
		if findingIndex > 0 {
			builder.WriteString(",\n")
		}
		writeFinding(builder, finding, depth+1)
	}
	builder.WriteString("\n" + indent + "]")
}

func writeFinding(builder *strings.Builder, finding gate.Finding, depth int) {
	indent := strings.Repeat(indentUnitConstant, depth)
	fieldIndent := strings.Repeat(indentUnitConstant, depth+1)

	builder.WriteString(indent + "{\n")
	builder.WriteString(fieldIndent + quoted("type") + ": " + quoted(finding.Type) + ",\n")
	builder.WriteString(fieldIndent + quoted("filePath") + ": " + optionalString(finding.FilePath) + ",\n")
	builder.WriteString(fieldIndent + quoted("line") + ": " + optionalLine(finding.Line) + ",\n")
	builder.WriteString(fieldIndent + quoted("severity") + ": " + optionalString(finding.Severity) + ",\n")
	builder.WriteString(fieldIndent + quoted("message") + ": " + quoted(finding.Message) + ",\n")
	builder.WriteString(fieldIndent + quoted("stacktrace") + ": ")
	writeStacktrace(builder, finding.Stacktrace, depth+1)
	builder.WriteString("\n" + indent + "}")
}

func writeStacktrace(builder *strings.Builder, stacktrace []string, depth int) {
	if len(stacktrace) == 0 {
		builder.WriteString("[]")
		return
	}
	indent := strings.Repeat(indentUnitConstant, depth)
	entryIndent := strings.Repeat(indentUnitConstant, depth+1)
	builder.WriteString("[\n")
	for entryIndex, entry := range stacktrace {
		if entryIndex > 0 {
			builder.WriteString(",\n")
		}
		builder.WriteString(entryIndent + quoted(entry))
	}
	builder.WriteString("\n" + indent + "]")
}

func optionalString(value string) string {
	if len(value) == 0 {
		return "null"
	}
	return quoted(value)
}

func optionalLine(line int) string {
	if line <= 0 {
		return "null"
	}
	return strconv.Itoa(line)
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func quoted(value string) string {
	return `"` + EscapeJSONString(value) + `"`
}

// EscapeJSONString escapes a string per RFC 8259: backslash, quote, the
// named control escapes, and \u escapes for the remaining controls.
func EscapeJSONString(value string) string {
	var builder strings.Builder
	for _, character := range value {
		switch character {
		case '\\':
			builder.WriteString(`\\`)
		case '"':
			builder.WriteString(`\"`)
		case '\b':
			builder.WriteString(`\b`)
		case '\f':
			builder.WriteString(`\f`)
		case '\n':
			builder.WriteString(`\n`)
		case '\r':
			builder.WriteString(`\r`)
		case '\t':
			builder.WriteString(`\t`)
		default:
			if character < 0x20 {
				builder.WriteString(fmt.Sprintf(`\u%04x`, character))
				continue
			}
			builder.WriteRune(character)
		}
	}
	return builder.String()
}
