package coverage

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/temirov/testgate/internal/gate"
	"github.com/temirov/testgate/internal/match"
	"github.com/temirov/testgate/internal/xmlreport"
)

const (
	auditNameConstant = "CoverageBranchesAudit"

	findingTypeClassBelowThreshold = "ClassBelowThreshold"

	packageElementNameConstant = "package"
	classElementNameConstant   = "class"
	counterElementNameConstant = "counter"
	nameAttributeConstant      = "name"
	typeAttributeConstant      = "type"
	missedAttributeConstant    = "missed"
	coveredAttributeConstant   = "covered"

	branchCounterTypeConstant = "BRANCH"

	belowThresholdMessageTemplate = "branch coverage %.1f%% is below the %d%% threshold"
	warningSeverityConstant       = "warning"
)

// Settings configures one coverage audit execution.
type Settings struct {
	ModuleName       string
	ReportPath       string
	ThresholdPercent int
	Whitelist        *match.WhitelistMatcher
}

// classCoverage aggregates one class's branch counters.
type classCoverage struct {
	name    string
	missed  int
	covered int
}

func (coverage classCoverage) percent() float64 {
	denominator := coverage.missed + coverage.covered
	if denominator == 0 {
		return 0
	}
	return float64(coverage.covered) / float64(denominator) * 100
}

// Audit evaluates class-level branch coverage.
type Audit struct {
	settings Settings
	logger   *zap.Logger
}

// NewAudit constructs a coverage audit.
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

// Check parses the coverage report and reports the verdict. The result's
// finding count carries the total branch percentage rounded to one
// decimal, not the findings list length.
func (audit *Audit) Check(callback gate.ResultCallback) error {
	document, parseError := xmlreport.Parse(audit.settings.ReportPath)
	if parseError != nil {
		return parseError
	}

	var classes []classCoverage
	totalMissed := 0
	totalCovered := 0
	for _, packageElement := range document.ChildrenNamed(packageElementNameConstant) {
		for _, classElement := range packageElement.ChildrenNamed(classElementNameConstant) {
			className := classElement.Attribute(nameAttributeConstant)
			if audit.settings.Whitelist.MatchesSymbol(className) {
				continue
			}
			coverage := classCoverage{name: className}
			// Only counters directly under the class element participate;
			// method counters are children of method elements.
			for _, counterElement := range classElement.ChildrenNamed(counterElementNameConstant) {
				if counterElement.Attribute(typeAttributeConstant) != branchCounterTypeConstant {
					continue
				}
				missed, _ := strconv.Atoi(counterElement.Attribute(missedAttributeConstant))
				covered, _ := strconv.Atoi(counterElement.Attribute(coveredAttributeConstant))
				coverage.missed += missed
				coverage.covered += covered
			}
			classes = append(classes, coverage)
			totalMissed += coverage.missed
			totalCovered += coverage.covered
		}
	}

	totalPercent := 0.0
	if totalMissed+totalCovered > 0 {
		totalPercent = float64(totalCovered) / float64(totalMissed+totalCovered) * 100
	}
	totalPercent = math.Round(totalPercent*10) / 10

	status := gate.StatusPass
	var findings []gate.Finding
	if totalPercent < float64(audit.settings.ThresholdPercent) {
		status = gate.StatusFail
		findings = offendingClassFindings(classes, audit.settings.ThresholdPercent)
	}

	callback(gate.AuditResult{
		Module:       audit.settings.ModuleName,
		Name:         auditNameConstant,
		Findings:     findings,
		Tolerance:    audit.settings.ThresholdPercent,
		FindingCount: totalPercent,
		Status:       status,
	})
	return nil
}

// offendingClassFindings lists covered-measurable classes below the
// threshold, worst first.
func offendingClassFindings(classes []classCoverage, thresholdPercent int) []gate.Finding {
	var offenders []classCoverage
	for _, coverage := range classes {
		if coverage.missed+coverage.covered == 0 {
			continue
		}
		if coverage.percent() < float64(thresholdPercent) {
			offenders = append(offenders, coverage)
		}
	}
	sort.SliceStable(offenders, func(first int, second int) bool {
		return offenders[first].percent() < offenders[second].percent()
	})

	findings := make([]gate.Finding, 0, len(offenders))
	for _, offender := range offenders {
		findings = append(findings, gate.Finding{
			Type:     findingTypeClassBelowThreshold,
			FilePath: offender.name,
			Severity: warningSeverityConstant,
			Message:  fmt.Sprintf(belowThresholdMessageTemplate, offender.percent(), thresholdPercent),
		})
	}
	return findings
}
