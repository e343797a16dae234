package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/testgate/internal/gate"
	"github.com/temirov/testgate/internal/match"
	"github.com/temirov/testgate/internal/sourceset"
)

const (
	auditNameConstant = "FixturesAudit"

	findingTypeMissingFixture  = "MissingFixture"
	findingTypeFixtureTooSmall = "FixtureTooSmall"
	findingTypeFixtureOversize = "FixtureOversize"

	fixturesRootConstant       = "src/test/resources"
	jsonExtensionConstant      = ".json"
	warningSeverityConstant    = "warning"
	errorSeverityConstant      = "error"

	missingFixtureMessageConstant = "module declares no JSON test fixtures"
	tooSmallMessageTemplate       = "fixture is %d bytes, below the %d byte minimum"
	oversizeMessageTemplate       = "fixture is %d bytes, above the %d byte maximum"
	fixtureStatFailureMessage     = "unable to stat fixture"
)

// Settings configures one fixtures audit execution.
type Settings struct {
	ModuleName       string
	ModuleDirectory  string
	TolerancePercent int
	MinBytes         int64
	MaxBytes         int64
	Whitelist        *match.WhitelistMatcher
}

// Audit checks fixture presence and the fixture size window.
type Audit struct {
	settings Settings
	logger   *zap.Logger
}

// NewAudit constructs a fixtures audit.
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

// Check walks the fixture tree and reports the verdict. Boundary sizes are
// allowed; only fixtures strictly outside the window count against the
// tolerance.
func (audit *Audit) Check(callback gate.ResultCallback) error {
	fixturesRoot := filepath.Join(audit.settings.ModuleDirectory, filepath.FromSlash(fixturesRootConstant))
	fixturePaths := sourceset.CollectFiles(fixturesRoot, func(path string) bool {
		return strings.EqualFold(filepath.Ext(path), jsonExtensionConstant)
	})

	var findings []gate.Finding
	presenceSatisfied := true
	outOfWindowCount := 0
	totalCount := 0

	if len(fixturePaths) == 0 {
		moduleWhitelisted := audit.settings.Whitelist.MatchesPath(audit.settings.ModuleDirectory) || audit.settings.Whitelist.MatchesPath(audit.settings.ModuleName)
		if !moduleWhitelisted {
			presenceSatisfied = false
			findings = append(findings, gate.Finding{
				Type:     findingTypeMissingFixture,
				Severity: errorSeverityConstant,
				Message:  missingFixtureMessageConstant,
			})
		}
	}

	for _, fixturePath := range fixturePaths {
		relativePath := sourceset.ModuleRelativePath(audit.settings.ModuleDirectory, fixturePath)
		if audit.settings.Whitelist.MatchesPath(relativePath) || audit.settings.Whitelist.MatchesPath(fixturePath) {
			continue
		}
		fileInfo, statError := os.Stat(fixturePath)
		if statError != nil {
			return gate.NewProcessingError(fixtureStatFailureMessage, fixturePath, statError)
		}
		totalCount++
		size := fileInfo.Size()
		switch {
		case size < audit.settings.MinBytes:
			outOfWindowCount++
			findings = append(findings, gate.Finding{
				Type:     findingTypeFixtureTooSmall,
				FilePath: relativePath,
				Severity: warningSeverityConstant,
				Message:  fmt.Sprintf(tooSmallMessageTemplate, size, audit.settings.MinBytes),
			})
		case size > audit.settings.MaxBytes:
			outOfWindowCount++
			findings = append(findings, gate.Finding{
				Type:     findingTypeFixtureOversize,
				FilePath: relativePath,
				Severity: errorSeverityConstant,
				Message:  fmt.Sprintf(oversizeMessageTemplate, size, audit.settings.MaxBytes),
			})
		}
	}

	status := gate.StatusPass
	if !presenceSatisfied {
		status = gate.StatusFail
	}
	if totalCount > 0 && outOfWindowCount*100 > audit.settings.TolerancePercent*totalCount {
		status = gate.StatusFail
	}

	callback(gate.NewListResult(audit.settings.ModuleName, auditNameConstant, findings, audit.settings.TolerancePercent, status))
	return nil
}
