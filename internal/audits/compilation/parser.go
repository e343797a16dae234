package compilation

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/temirov/testgate/internal/gate"
)

const (
	findingTypeCompilationError = "CompilationError"
	errorSeverityConstant       = "error"

	symbolContinuationPrefixConstant   = "symbol:"
	locationContinuationPrefixConstant = "location:"
	stackAtPrefixConstant              = "at "
	stackTaskPrefixConstant            = "> Task :"
	stackTabPrefixConstant             = "\t"
	stackSpacesPrefixConstant          = "    "
	stackCaretPrefixConstant           = "^"
)

// Recognized error starts, most specific first. The short annotation
// processor form precedes the Kotlin build-tool form because both open
// with "e:".
var (
	annotationProcessorShortPattern    = regexp.MustCompile(`^e:\s*\[(ksp\d*|kapt)\]\s*(.*)$`)
	kotlinBuildToolPattern             = regexp.MustCompile(`^e:\s*(.+?):\s*\((\d+),\s*(\d+)\):\s*(.*)$`)
	annotationProcessorLocationPattern = regexp.MustCompile(`^\[ksp(\d*)\]\s*(.+?):(\d+):(\d+):\s*(.*)$`)
	kotlinCommandLinePattern           = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s*error:\s*(.*)$`)
	javacPattern                       = regexp.MustCompile(`^(.+?):(\d+):\s*error:\s*(.*)$`)
)

// parserState distinguishes the two states of the line classifier.
type parserState int

const (
	parserStateIdle parserState = iota
	parserStatePending
)

// Parser turns captured compiler stderr into findings.
type Parser struct {
	moduleDirectory string
}

// NewParser constructs a parser that relativizes paths under the module
// directory.
func NewParser(moduleDirectory string) *Parser {
	return &Parser{moduleDirectory: moduleDirectory}
}

// Parse runs the state machine over the captured text and returns the
// findings in encounter order.
func (parser *Parser) Parse(capturedText string) []gate.Finding {
	normalizedText := strings.ReplaceAll(capturedText, "\r\n", "\n")
	lines := strings.Split(normalizedText, "\n")

	var findings []gate.Finding
	state := parserStateIdle
	var pending gate.Finding

	flush := func() {
		if state == parserStatePending {
			findings = append(findings, pending)
		}
		state = parserStateIdle
		pending = gate.Finding{}
	}

	for _, line := range lines {
		if started, finding := parser.classifyStart(line); started {
			flush()
			pending = finding
			state = parserStatePending
			continue
		}

		if len(strings.TrimSpace(line)) == 0 {
			flush()
			continue
		}

		if state != parserStatePending {
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, symbolContinuationPrefixConstant), strings.HasPrefix(trimmed, locationContinuationPrefixConstant):
			pending.Message = pending.Message + "\n" + trimmed
		case isStacktraceLine(line):
			pending.Stacktrace = append(pending.Stacktrace, trimmed)
		}
	}
	flush()

	return findings
}

func (parser *Parser) classifyStart(line string) (bool, gate.Finding) {
	if shortMatch := annotationProcessorShortPattern.FindStringSubmatch(line); shortMatch != nil {
		return true, gate.Finding{
			Type:     findingTypeCompilationError,
			Severity: errorSeverityConstant,
			Message:  strings.TrimSpace(shortMatch[2]),
		}
	}
	if buildToolMatch := kotlinBuildToolPattern.FindStringSubmatch(line); buildToolMatch != nil {
		return true, parser.locatedFinding(buildToolMatch[1], buildToolMatch[2], buildToolMatch[4])
	}
	if processorMatch := annotationProcessorLocationPattern.FindStringSubmatch(line); processorMatch != nil {
		return true, parser.locatedFinding(processorMatch[2], processorMatch[3], processorMatch[5])
	}
	if commandLineMatch := kotlinCommandLinePattern.FindStringSubmatch(line); commandLineMatch != nil {
		return true, parser.locatedFinding(commandLineMatch[1], commandLineMatch[2], commandLineMatch[4])
	}
	if javacMatch := javacPattern.FindStringSubmatch(line); javacMatch != nil {
		return true, parser.locatedFinding(javacMatch[1], javacMatch[2], javacMatch[3])
	}
	return false, gate.Finding{}
}

func (parser *Parser) locatedFinding(rawPath string, rawLine string, message string) gate.Finding {
	lineNumber, _ := strconv.Atoi(rawLine)
	return gate.Finding{
		Type:     findingTypeCompilationError,
		FilePath: parser.normalizePath(rawPath),
		Line:     lineNumber,
		Severity: errorSeverityConstant,
		Message:  strings.TrimSpace(message),
	}
}

// normalizePath renders paths under the module directory module-relative
// with forward slashes; other paths keep their canonical form.
func (parser *Parser) normalizePath(rawPath string) string {
	trimmed := strings.TrimSpace(rawPath)
	if len(parser.moduleDirectory) == 0 {
		return filepath.ToSlash(trimmed)
	}
	relativePath, relativeError := filepath.Rel(parser.moduleDirectory, trimmed)
	if relativeError != nil || strings.HasPrefix(relativePath, "..") {
		return filepath.ToSlash(trimmed)
	}
	return filepath.ToSlash(relativePath)
}

func isStacktraceLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, stackAtPrefixConstant) {
		return true
	}
	if strings.HasPrefix(line, stackTabPrefixConstant) || strings.HasPrefix(line, stackSpacesPrefixConstant) {
		return true
	}
	if strings.HasPrefix(line, stackCaretPrefixConstant) || strings.HasPrefix(trimmed, stackCaretPrefixConstant) {
		return true
	}
	return strings.HasPrefix(line, stackTaskPrefixConstant)
}
