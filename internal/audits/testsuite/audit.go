package testsuite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/testgate/internal/gate"
	"github.com/temirov/testgate/internal/match"
	"github.com/temirov/testgate/internal/sourceset"
	"github.com/temirov/testgate/internal/xmlreport"
)

const (
	auditNameConstant = "TestsAudit"

	findingTypeTestFailure = "TestFailure"

	testSuitesElementNameConstant = "testsuites"
	testSuiteElementNameConstant  = "testsuite"
	testCaseElementNameConstant   = "testcase"
	skippedElementNameConstant    = "skipped"
	failureElementNameConstant    = "failure"
	errorElementNameConstant      = "error"
	classNameAttributeConstant    = "classname"
	nameAttributeConstant         = "name"
	messageAttributeConstant      = "message"

	xmlExtensionConstant = ".xml"

	missingDirectoryMessageConstant = "test results directory missing; treating the suite as passed"
	noReportsMessageTemplate        = "no XML test reports found (tasks: %s)"
	noReportsMessageConstant        = "no XML test reports found"
	failureMessageTemplate          = "%s#%s: %s"
	errorSeverityConstant           = "error"
	logFieldDirectoryConstant       = "results_directory"
	logFieldModuleConstant          = "module"
)

// Settings configures one tests audit execution.
type Settings struct {
	ModuleName        string
	ResultsDirectory  string
	TolerancePercent  int
	Whitelist         *match.WhitelistMatcher
	ExecutedTaskNames []string
}

// Audit evaluates JUnit XML results.
type Audit struct {
	settings Settings
	logger   *zap.Logger
}

// NewAudit constructs a tests audit.
func NewAudit(settings Settings, logger *zap.Logger) *Audit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Audit{settings: settings, logger: logger}
}

// Name identifies the audit.
func (audit *Audit) Name() string {
	return auditNameConstant
}

// testCaseOutcome is one classified test case.
type testCaseOutcome struct {
	className string
	method    string
	skipped   bool
	failed    bool
	message   string
	textLines []string
}

// Check reads every XML report in the results directory and reports the
// verdict.
func (audit *Audit) Check(callback gate.ResultCallback) error {
	directoryInfo, statError := os.Stat(audit.settings.ResultsDirectory)
	if os.IsNotExist(statError) || (statError == nil && !directoryInfo.IsDir()) {
		audit.logger.Warn(
			missingDirectoryMessageConstant,
			zap.String(logFieldModuleConstant, audit.settings.ModuleName),
			zap.String(logFieldDirectoryConstant, audit.settings.ResultsDirectory),
		)
		callback(gate.NewListResult(audit.settings.ModuleName, auditNameConstant, nil, audit.settings.TolerancePercent, gate.StatusPass))
		return nil
	}
	if statError != nil {
		return gate.NewProcessingError(noReportsMessageConstant, audit.settings.ResultsDirectory, statError)
	}

	reportPaths := sourceset.CollectFiles(audit.settings.ResultsDirectory, func(path string) bool {
		return strings.EqualFold(filepath.Ext(path), xmlExtensionConstant)
	})
	if len(reportPaths) == 0 {
		return gate.NewProcessingError(audit.noReportsMessage(), audit.settings.ResultsDirectory, nil)
	}

	var outcomes []testCaseOutcome
	for _, reportPath := range reportPaths {
		document, parseError := xmlreport.Parse(reportPath)
		if parseError != nil {
			return parseError
		}
		outcomes = append(outcomes, collectTestCases(document)...)
	}

	executedCount := 0
	failedCount := 0
	var findings []gate.Finding
	for _, outcome := range outcomes {
		if outcome.skipped || audit.isWhitelisted(outcome) {
			continue
		}
		executedCount++
		if !outcome.failed {
			continue
		}
		failedCount++
		findings = append(findings, gate.Finding{
			Type:       findingTypeTestFailure,
			Severity:   errorSeverityConstant,
			Message:    fmt.Sprintf(failureMessageTemplate, outcome.className, outcome.method, firstLine(outcome.message, outcome.textLines)),
			Stacktrace: outcome.textLines,
		})
	}

	status := gate.StatusPass
	if failedCount*100 > audit.settings.TolerancePercent*executedCount {
		status = gate.StatusFail
	}

	callback(gate.NewListResult(audit.settings.ModuleName, auditNameConstant, findings, audit.settings.TolerancePercent, status))
	return nil
}

func (audit *Audit) noReportsMessage() string {
	if len(audit.settings.ExecutedTaskNames) == 0 {
		return noReportsMessageConstant
	}
	return fmt.Sprintf(noReportsMessageTemplate, strings.Join(audit.settings.ExecutedTaskNames, ", "))
}

// isWhitelisted tests both the ClassName#method and the bare ClassName
// forms, dot- and slash-normalized.
func (audit *Audit) isWhitelisted(outcome testCaseOutcome) bool {
	qualified := outcome.className + "#" + outcome.method
	return audit.settings.Whitelist.MatchesSymbol(qualified) || audit.settings.Whitelist.MatchesSymbol(outcome.className)
}

// collectTestCases gathers test cases from a testsuite root or a
// testsuites wrapper.
func collectTestCases(document *xmlreport.Element) []testCaseOutcome {
	var suites []*xmlreport.Element
	switch document.Name {
	case testSuitesElementNameConstant:
		suites = document.ChildrenNamed(testSuiteElementNameConstant)
	case testSuiteElementNameConstant:
		suites = []*xmlreport.Element{document}
	}

	var outcomes []testCaseOutcome
	for _, suite := range suites {
		for _, testCase := range suite.ChildrenNamed(testCaseElementNameConstant) {
			outcome := testCaseOutcome{
				className: testCase.Attribute(classNameAttributeConstant),
				method:    testCase.Attribute(nameAttributeConstant),
			}
			if testCase.FirstChildNamed(skippedElementNameConstant) != nil {
				outcome.skipped = true
			}
			failureElement := testCase.FirstChildNamed(failureElementNameConstant)
			if failureElement == nil {
				failureElement = testCase.FirstChildNamed(errorElementNameConstant)
			}
			if failureElement != nil {
				outcome.failed = true
				outcome.message = failureElement.Attribute(messageAttributeConstant)
				outcome.textLines = nonBlankLines(failureElement.Text)
			}
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}

func firstLine(message string, textLines []string) string {
	trimmed := strings.TrimSpace(message)
	if len(trimmed) > 0 {
		return strings.SplitN(trimmed, "\n", 2)[0]
	}
	if len(textLines) > 0 {
		return textLines[0]
	}
	return ""
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 0 {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
