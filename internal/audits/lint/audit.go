package lint

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/testgate/internal/gate"
	"github.com/temirov/testgate/internal/match"
	"github.com/temirov/testgate/internal/sourceset"
	"github.com/temirov/testgate/internal/xmlreport"
)

const (
	auditNameConstant = "AndroidLintAudit"

	issueElementNameConstant    = "issue"
	locationElementNameConstant = "location"
	idAttributeConstant         = "id"
	severityAttributeConstant   = "severity"
	messageAttributeConstant    = "message"
	fileAttributeConstant       = "file"
	lineAttributeConstant       = "line"

	errorSeverityValueConstant = "Error"
	fatalSeverityValueConstant = "Fatal"
)

// Settings configures one lint audit execution.
type Settings struct {
	ModuleName       string
	ModuleDirectory  string
	ReportPath       string
	TolerancePercent int
	Whitelist        *match.WhitelistMatcher
}

// Audit evaluates an Android Lint report.
type Audit struct {
	settings Settings
	logger   *zap.Logger
}

// NewAudit constructs a lint audit.
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

// Check parses the report and emits one finding per counted issue
// location.
func (audit *Audit) Check(callback gate.ResultCallback) error {
	document, parseError := xmlreport.Parse(audit.settings.ReportPath)
	if parseError != nil {
		return parseError
	}

	var findings []gate.Finding
	for _, issueElement := range document.ChildrenNamed(issueElementNameConstant) {
		severity := issueElement.Attribute(severityAttributeConstant)
		if !isCountedSeverity(severity) {
			continue
		}
		issueID := issueElement.Attribute(idAttributeConstant)
		message := issueElement.Attribute(messageAttributeConstant)
		for _, locationElement := range issueElement.ChildrenNamed(locationElementNameConstant) {
			filePath := locationElement.Attribute(fileAttributeConstant)
			if audit.settings.Whitelist.MatchesPath(filePath) {
				continue
			}
			lineNumber, _ := strconv.Atoi(locationElement.Attribute(lineAttributeConstant))
			findings = append(findings, gate.Finding{
				Type:     issueID,
				FilePath: filePath,
				Line:     lineNumber,
				Severity: severity,
				Message:  message,
			})
		}
	}

	scannedFiles := sourceset.ScanSourceFiles(audit.settings.ModuleDirectory)

	status := gate.StatusPass
	if len(findings)*100 > audit.settings.TolerancePercent*scannedFiles {
		status = gate.StatusFail
	}

	callback(gate.NewListResult(audit.settings.ModuleName, auditNameConstant, findings, audit.settings.TolerancePercent, status))
	return nil
}

func isCountedSeverity(severity string) bool {
	return strings.EqualFold(severity, errorSeverityValueConstant) || strings.EqualFold(severity, fatalSeverityValueConstant)
}
