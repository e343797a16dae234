package detekt

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/testgate/internal/gate"
	"github.com/temirov/testgate/internal/match"
	"github.com/temirov/testgate/internal/sourceset"
	"github.com/temirov/testgate/internal/xmlreport"
)

const (
	auditNameConstant = "DetektAudit"

	fileElementNameConstant  = "file"
	errorElementNameConstant = "error"
	nameAttributeConstant    = "name"
	severityAttributeConstant = "severity"
	sourceAttributeConstant  = "source"
	messageAttributeConstant = "message"
	lineAttributeConstant    = "line"

	errorSeverityValueConstant = "error"
	detektSourcePrefixConstant = "detekt."
	unknownRuleIDConstant      = "Unknown"
)

var (
	bracketedRuleIDPattern = regexp.MustCompile(`\[(\w+)\]`)
	prefixedRuleIDPattern  = regexp.MustCompile(`^(\w+):`)
)

// Settings configures one detekt audit execution.
type Settings struct {
	ModuleName       string
	ModuleDirectory  string
	ReportPath       string
	TolerancePercent int
	Whitelist        *match.WhitelistMatcher
	HardFailRuleIDs  []string
}

// Audit evaluates a detekt Checkstyle report against the configured
// tolerance and hard-fail rule set.
type Audit struct {
	settings      Settings
	hardFailRules map[string]struct{}
	logger        *zap.Logger
}

// NewAudit constructs a detekt audit.
func NewAudit(settings Settings, logger *zap.Logger) *Audit {
	if logger == nil {
		logger = zap.NewNop()
	}
	hardFailRules := make(map[string]struct{}, len(settings.HardFailRuleIDs))
	for _, ruleID := range settings.HardFailRuleIDs {
		trimmed := strings.TrimSpace(ruleID)
		if len(trimmed) > 0 {
			hardFailRules[trimmed] = struct{}{}
		}
	}
	return &Audit{settings: settings, hardFailRules: hardFailRules, logger: logger}
}

// Name identifies the audit.
func (audit *Audit) Name() string {
	return auditNameConstant
}

// Check parses the report, applies the whitelist, and reports the verdict.
func (audit *Audit) Check(callback gate.ResultCallback) error {
	document, parseError := xmlreport.Parse(audit.settings.ReportPath)
	if parseError != nil {
		return parseError
	}

	var findings []gate.Finding
	hardCount := 0

	for _, fileElement := range document.ChildrenNamed(fileElementNameConstant) {
		filePath := fileElement.Attribute(nameAttributeConstant)
		if audit.settings.Whitelist.MatchesPath(filePath) {
			continue
		}
		for _, errorElement := range fileElement.ChildrenNamed(errorElementNameConstant) {
			if !strings.EqualFold(errorElement.Attribute(severityAttributeConstant), errorSeverityValueConstant) {
				continue
			}
			ruleID := extractRuleID(errorElement.Attribute(sourceAttributeConstant), errorElement.Attribute(messageAttributeConstant))
			lineNumber, _ := strconv.Atoi(errorElement.Attribute(lineAttributeConstant))
			findings = append(findings, gate.Finding{
				Type:     ruleID,
				FilePath: filePath,
				Line:     lineNumber,
				Severity: errorSeverityValueConstant,
				Message:  errorElement.Attribute(messageAttributeConstant),
			})
			if _, isHardFailure := audit.hardFailRules[ruleID]; isHardFailure {
				hardCount++
			}
		}
	}

	softCount := len(findings) - hardCount
	scannedFiles := sourceset.ScanSourceFiles(audit.settings.ModuleDirectory)

	status := gate.StatusPass
	if hardCount > 0 || softCount*100 > audit.settings.TolerancePercent*scannedFiles {
		status = gate.StatusFail
	}

	callback(gate.NewListResult(audit.settings.ModuleName, auditNameConstant, findings, audit.settings.TolerancePercent, status))
	return nil
}

// extractRuleID resolves the rule identifier, preferring the source
// attribute over the bracketed or prefixed message forms.
func extractRuleID(sourceAttribute string, message string) string {
	source := strings.TrimSpace(sourceAttribute)
	if len(source) > 0 {
		if strings.HasPrefix(source, detektSourcePrefixConstant) {
			return strings.TrimPrefix(source, detektSourcePrefixConstant)
		}
		if lastDotIndex := strings.LastIndex(source, "."); lastDotIndex >= 0 {
			return source[lastDotIndex+1:]
		}
		return source
	}
	if bracketedMatch := bracketedRuleIDPattern.FindStringSubmatch(message); bracketedMatch != nil {
		return bracketedMatch[1]
	}
	if prefixedMatch := prefixedRuleIDPattern.FindStringSubmatch(strings.TrimSpace(message)); prefixedMatch != nil {
		return prefixedMatch[1]
	}
	return unknownRuleIDConstant
}
