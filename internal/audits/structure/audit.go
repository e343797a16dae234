package structure

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/testgate/internal/gate"
	"github.com/temirov/testgate/internal/match"
	"github.com/temirov/testgate/internal/sourceset"
)

const (
	auditNameConstant             = "StructureAudit"
	structuralToleranceConstant   = 0

	findingTypeSharedTestForbidden       = "SharedTestForbidden"
	findingTypeMisplacedTestSource       = "MisplacedTestSource"
	findingTypeMissingHarnessDependency  = "MissingHarnessDependency"
	findingTypeInstrumentedScope         = "InstrumentedScopeViolation"

	sharedTestRootConstant    = "src/sharedTest"
	testSourceRootConstant    = "src/test"
	testKotlinRootConstant    = "src/test/kotlin"
	testResourcesRootConstant = "src/test/resources"
	androidTestRootConstant   = "src/androidTest"

	groovyBuildFileNameConstant = "build.gradle"
	kotlinBuildFileNameConstant = "build.gradle.kts"

	sharedTestMessageConstant        = "sharedTest source sets are banned"
	misplacedJavaMessageConstant     = "Java test sources are banned under src/test"
	misplacedKotlinMessageConstant   = "Kotlin test sources must live under src/test/kotlin"
	missingHarnessMessageTemplate    = "build file declares no dependency on the harness project %s"
	instrumentedScopeMessageTemplate = "instrumented test imports %s outside the allow-list"

	buildFileMissingMessageConstant  = "module build file not found"
	buildFileReadFailureMessage      = "unable to read module build file"
	headerReadFailureMessageConstant = "unable to read source header"
	errorSeverityConstant            = "error"
)

var (
	blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentPattern  = regexp.MustCompile(`(?m)//[^\n]*`)
)

// Settings configures one structure audit execution.
type Settings struct {
	ModuleName                   string
	ModuleDirectory              string
	HarnessCoordinate            string
	InstrumentedRootPackage      string
	InstrumentedAllowList        *match.WhitelistMatcher
	InstrumentedTolerancePercent int
}

// Audit validates module layout and dependency wiring.
type Audit struct {
	settings Settings
	logger   *zap.Logger
}

// NewAudit constructs a structure audit.
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

// Check runs all structural rules and the instrumented-scope rule.
// Structural findings always fail; instrumented-scope findings fail once
// their file share exceeds the instrumented tolerance.
func (audit *Audit) Check(callback gate.ResultCallback) error {
	var structuralFindings []gate.Finding

	structuralFindings = append(structuralFindings, audit.checkSharedTest()...)
	structuralFindings = append(structuralFindings, audit.checkMisplacedTests()...)

	harnessFindings, harnessError := audit.checkHarnessDependency()
	if harnessError != nil {
		return harnessError
	}
	structuralFindings = append(structuralFindings, harnessFindings...)

	instrumentedFindings, androidTestFiles, instrumentedError := audit.checkInstrumentedScope()
	if instrumentedError != nil {
		return instrumentedError
	}

	status := gate.StatusPass
	if len(structuralFindings) > 0 {
		status = gate.StatusFail
	}
	if len(instrumentedFindings)*100 > audit.settings.InstrumentedTolerancePercent*androidTestFiles {
		status = gate.StatusFail
	}

	findings := append(structuralFindings, instrumentedFindings...)
	callback(gate.NewListResult(audit.settings.ModuleName, auditNameConstant, findings, structuralToleranceConstant, status))
	return nil
}

func (audit *Audit) checkSharedTest() []gate.Finding {
	var findings []gate.Finding
	sharedTestRoot := filepath.Join(audit.settings.ModuleDirectory, filepath.FromSlash(sharedTestRootConstant))
	for _, path := range sourceset.CollectFiles(sharedTestRoot, nil) {
		findings = append(findings, gate.Finding{
			Type:     findingTypeSharedTestForbidden,
			FilePath: sourceset.ModuleRelativePath(audit.settings.ModuleDirectory, path),
			Severity: errorSeverityConstant,
			Message:  sharedTestMessageConstant,
		})
	}
	return findings
}

func (audit *Audit) checkMisplacedTests() []gate.Finding {
	var findings []gate.Finding
	testRoot := filepath.Join(audit.settings.ModuleDirectory, filepath.FromSlash(testSourceRootConstant))
	kotlinRoot := filepath.Join(audit.settings.ModuleDirectory, filepath.FromSlash(testKotlinRootConstant))

	for _, path := range sourceset.CollectSourceFiles(testRoot) {
		switch {
		case sourceset.IsJavaFile(path):
			findings = append(findings, gate.Finding{
				Type:     findingTypeMisplacedTestSource,
				FilePath: sourceset.ModuleRelativePath(audit.settings.ModuleDirectory, path),
				Severity: errorSeverityConstant,
				Message:  misplacedJavaMessageConstant,
			})
		case sourceset.IsKotlinFile(path) && !isUnderDirectory(path, kotlinRoot):
			findings = append(findings, gate.Finding{
				Type:     findingTypeMisplacedTestSource,
				FilePath: sourceset.ModuleRelativePath(audit.settings.ModuleDirectory, path),
				Severity: errorSeverityConstant,
				Message:  misplacedKotlinMessageConstant,
			})
		}
	}
	return findings
}

// checkHarnessDependency requires the module build file to declare the
// harness project dependency whenever test sources or test resources
// exist. A missing build file is a processing error.
func (audit *Audit) checkHarnessDependency() ([]gate.Finding, error) {
	testRoot := filepath.Join(audit.settings.ModuleDirectory, filepath.FromSlash(testSourceRootConstant))
	resourcesRoot := filepath.Join(audit.settings.ModuleDirectory, filepath.FromSlash(testResourcesRootConstant))

	hasTestSources := len(sourceset.CollectSourceFiles(testRoot)) > 0
	hasTestResources := len(sourceset.CollectFiles(resourcesRoot, nil)) > 0
	if !hasTestSources && !hasTestResources {
		return nil, nil
	}

	buildFileContent, buildFilePath, buildFileError := audit.readBuildFile()
	if buildFileError != nil {
		return nil, buildFileError
	}

	stripped := lineCommentPattern.ReplaceAllString(blockCommentPattern.ReplaceAllString(buildFileContent, ""), "")
	if audit.harnessDependencyDeclared(stripped) {
		return nil, nil
	}

	return []gate.Finding{{
		Type:     findingTypeMissingHarnessDependency,
		FilePath: sourceset.ModuleRelativePath(audit.settings.ModuleDirectory, buildFilePath),
		Severity: errorSeverityConstant,
		Message:  fmt.Sprintf(missingHarnessMessageTemplate, audit.settings.HarnessCoordinate),
	}}, nil
}

func (audit *Audit) readBuildFile() (string, string, error) {
	for _, buildFileName := range []string{groovyBuildFileNameConstant, kotlinBuildFileNameConstant} {
		buildFilePath := filepath.Join(audit.settings.ModuleDirectory, buildFileName)
		contentBytes, readError := os.ReadFile(buildFilePath)
		if readError == nil {
			return string(contentBytes), buildFilePath, nil
		}
		if !os.IsNotExist(readError) {
			return "", "", gate.NewProcessingError(buildFileReadFailureMessage, buildFilePath, readError)
		}
	}
	return "", "", gate.NewProcessingError(buildFileMissingMessageConstant, audit.settings.ModuleDirectory, nil)
}

// harnessDependencyDeclared accepts both the parenthesized Kotlin form and
// the unparenthesized Groovy form of the dependency declaration.
func (audit *Audit) harnessDependencyDeclared(buildFileContent string) bool {
	coordinate := regexp.QuoteMeta(strings.TrimSpace(audit.settings.HarnessCoordinate))
	if len(coordinate) == 0 {
		return true
	}
	parenthesizedForm := regexp.MustCompile(`\w+\s*\(\s*project\s*\(\s*["']` + coordinate + `["']\s*\)\s*\)`)
	unparenthesizedForm := regexp.MustCompile(`\w+\s+project\s*\(\s*["']` + coordinate + `["']\s*\)`)
	return parenthesizedForm.MatchString(buildFileContent) || unparenthesizedForm.MatchString(buildFileContent)
}

// checkInstrumentedScope flags androidTest files importing from the
// instrumented root package outside the allow-list.
func (audit *Audit) checkInstrumentedScope() ([]gate.Finding, int, error) {
	androidTestRoot := filepath.Join(audit.settings.ModuleDirectory, filepath.FromSlash(androidTestRootConstant))
	sourcePaths := sourceset.CollectSourceFiles(androidTestRoot)

	rootPackage := strings.TrimSpace(audit.settings.InstrumentedRootPackage)
	if len(rootPackage) == 0 {
		return nil, len(sourcePaths), nil
	}

	var findings []gate.Finding
	for _, sourcePath := range sourcePaths {
		header, headerError := sourceset.ReadHeader(sourcePath)
		if headerError != nil {
			return nil, 0, gate.NewProcessingError(headerReadFailureMessageConstant, sourcePath, headerError)
		}
		for _, importedName := range header.Imports {
			if !strings.HasPrefix(importedName, rootPackage) {
				continue
			}
			if audit.settings.InstrumentedAllowList.MatchesSymbol(importedName) {
				continue
			}
			findings = append(findings, gate.Finding{
				Type:     findingTypeInstrumentedScope,
				FilePath: sourceset.ModuleRelativePath(audit.settings.ModuleDirectory, sourcePath),
				Severity: errorSeverityConstant,
				Message:  fmt.Sprintf(instrumentedScopeMessageTemplate, importedName),
			})
			break
		}
	}
	return findings, len(sourcePaths), nil
}

func isUnderDirectory(path string, directory string) bool {
	relativePath, relativeError := filepath.Rel(directory, path)
	return relativeError == nil && !strings.HasPrefix(relativePath, "..")
}
