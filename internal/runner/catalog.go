package runner

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/testgate/internal/audits/compilation"
	"github.com/temirov/testgate/internal/audits/coverage"
	"github.com/temirov/testgate/internal/audits/detekt"
	"github.com/temirov/testgate/internal/audits/fixtures"
	"github.com/temirov/testgate/internal/audits/harness"
	"github.com/temirov/testgate/internal/audits/lint"
	"github.com/temirov/testgate/internal/audits/sqlfts"
	"github.com/temirov/testgate/internal/audits/structure"
	"github.com/temirov/testgate/internal/audits/teststack"
	"github.com/temirov/testgate/internal/audits/testsuite"
	"github.com/temirov/testgate/internal/gate"
	"github.com/temirov/testgate/internal/match"
)

const (
	compilerLogReadFailureMessageConstant = "unable to read compiler log"
)

// ModuleTarget names one module directory to audit.
type ModuleTarget struct {
	Name             string
	Directory        string
	CompilerLogPaths []string
}

// BuildCatalog assembles the full audit catalog for one module from the
// run configuration.
func BuildCatalog(target ModuleTarget, configuration Configuration, logger *zap.Logger) ([]gate.Audit, error) {
	detektWhitelist, detektError := match.NewWhitelistMatcher(SplitPatternList(configuration.Audits.Detekt.WhitelistPatterns))
	if detektError != nil {
		return nil, detektError
	}
	lintWhitelist, lintError := match.NewWhitelistMatcher(SplitPatternList(configuration.Audits.Lint.WhitelistPatterns))
	if lintError != nil {
		return nil, lintError
	}
	sqlWhitelist, sqlError := match.NewWhitelistMatcher(SplitPatternList(configuration.Audits.SQLFts.WhitelistPatterns))
	if sqlError != nil {
		return nil, sqlError
	}
	instrumentedAllowList, instrumentedError := match.NewWhitelistMatcher(SplitPatternList(configuration.Audits.Structure.InstrumentedAllowList))
	if instrumentedError != nil {
		return nil, instrumentedError
	}
	harnessWhitelist, harnessError := match.NewWhitelistMatcher(SplitPatternList(configuration.Audits.Harness.WhitelistPatterns))
	if harnessError != nil {
		return nil, harnessError
	}
	stackWhitelist, stackError := match.NewWhitelistMatcher(SplitPatternList(configuration.Audits.Stack.WhitelistFiles))
	if stackError != nil {
		return nil, stackError
	}
	fixturesWhitelist, fixturesError := match.NewWhitelistMatcher(SplitPatternList(configuration.Audits.Fixtures.WhitelistPatterns))
	if fixturesError != nil {
		return nil, fixturesError
	}
	testsWhitelist, testsError := match.NewWhitelistMatcher(SplitPatternList(configuration.Audits.Tests.WhitelistPatterns))
	if testsError != nil {
		return nil, testsError
	}
	coverageWhitelist, coverageError := match.NewWhitelistMatcher(SplitPatternList(configuration.Audits.Coverage.WhitelistPatterns))
	if coverageError != nil {
		return nil, coverageError
	}

	capture, captureError := loadCompilerCapture(target)
	if captureError != nil {
		return nil, captureError
	}

	catalog := []gate.Audit{
		compilation.NewAudit(target.Name, target.Directory, capture, logger),
		detekt.NewAudit(detekt.Settings{
			ModuleName:       target.Name,
			ModuleDirectory:  target.Directory,
			ReportPath:       filepath.Join(target.Directory, filepath.FromSlash(configuration.Audits.Detekt.ReportPath)),
			TolerancePercent: configuration.Audits.Detekt.TolerancePercent,
			Whitelist:        detektWhitelist,
			HardFailRuleIDs:  SplitPatternList(configuration.Audits.Detekt.HardFailRuleIDs),
		}, logger),
		lint.NewAudit(lint.Settings{
			ModuleName:       target.Name,
			ModuleDirectory:  target.Directory,
			ReportPath:       filepath.Join(target.Directory, filepath.FromSlash(configuration.Audits.Lint.ReportPath)),
			TolerancePercent: configuration.Audits.Lint.TolerancePercent,
			Whitelist:        lintWhitelist,
		}, logger),
		harness.NewAudit(harness.Settings{
			ModuleName:        target.Name,
			ModuleDirectory:   target.Directory,
			RootPackage:       configuration.Audits.Harness.RootPackage,
			HarnessPackage:    configuration.Audits.Harness.HarnessPackage,
			DataHelpers:       SplitPatternList(configuration.Audits.Harness.DataHelpers),
			SyncHelpers:       SplitPatternList(configuration.Audits.Harness.SyncHelpers),
			UIHelpers:         SplitPatternList(configuration.Audits.Harness.UIHelpers),
			CrossLayerHelpers: SplitPatternList(configuration.Audits.Harness.CrossLayerHelpers),
			Whitelist:         harnessWhitelist,
		}, logger),
		sqlfts.NewAudit(sqlfts.Settings{
			ModuleName:       target.Name,
			ModuleDirectory:  target.Directory,
			TolerancePercent: configuration.Audits.SQLFts.TolerancePercent,
			Whitelist:        sqlWhitelist,
		}, logger),
		structure.NewAudit(structure.Settings{
			ModuleName:                   target.Name,
			ModuleDirectory:              target.Directory,
			HarnessCoordinate:            configuration.Audits.Structure.HarnessCoordinate,
			InstrumentedRootPackage:      configuration.Audits.Structure.InstrumentedRootPackage,
			InstrumentedAllowList:        instrumentedAllowList,
			InstrumentedTolerancePercent: configuration.Audits.Structure.InstrumentedTolerancePercent,
		}, logger),
		teststack.NewAudit(teststack.Settings{
			ModuleName:      target.Name,
			ModuleDirectory: target.Directory,
			Whitelist:       stackWhitelist,
		}, logger),
		fixtures.NewAudit(fixtures.Settings{
			ModuleName:       target.Name,
			ModuleDirectory:  target.Directory,
			TolerancePercent: configuration.Audits.Fixtures.TolerancePercent,
			MinBytes:         configuration.Audits.Fixtures.MinBytes,
			MaxBytes:         configuration.Audits.Fixtures.MaxBytes,
			Whitelist:        fixturesWhitelist,
		}, logger),
		testsuite.NewAudit(testsuite.Settings{
			ModuleName:        target.Name,
			ResultsDirectory:  filepath.Join(target.Directory, filepath.FromSlash(configuration.Audits.Tests.ResultsDirectory)),
			TolerancePercent:  configuration.Audits.Tests.TolerancePercent,
			Whitelist:         testsWhitelist,
			ExecutedTaskNames: configuration.Audits.Tests.ExecutedTaskNames,
		}, logger),
		coverage.NewAudit(coverage.Settings{
			ModuleName:       target.Name,
			ReportPath:       filepath.Join(target.Directory, filepath.FromSlash(configuration.Audits.Coverage.ReportPath)),
			ThresholdPercent: configuration.Audits.Coverage.MinPercent,
			Whitelist:        coverageWhitelist,
		}, logger),
	}

	return catalog, nil
}

// loadCompilerCapture replays captured compiler logs through the capture
// buffer so the compilation audit sees the same stream the build saw.
func loadCompilerCapture(target ModuleTarget) (*compilation.Capture, error) {
	capture := compilation.NewCapture()
	capture.RegisterCapture()
	defer capture.UnregisterCapture()

	for _, logPath := range target.CompilerLogPaths {
		contentBytes, readError := os.ReadFile(logPath)
		if readError != nil {
			return nil, gate.NewProcessingError(compilerLogReadFailureMessageConstant, logPath, readError)
		}
		capture.Append(string(contentBytes))
	}
	return capture, nil
}
