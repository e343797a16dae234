package harness

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/testgate/internal/gate"
	"github.com/temirov/testgate/internal/match"
	"github.com/temirov/testgate/internal/sourceset"
)

const (
	auditNameConstant      = "HarnessReuseIsolationAudit"
	auditToleranceConstant = 0

	findingTypeMissingHarnessDependency = "MissingHarnessDependency"
	findingTypeLocalHelperClone         = "LocalHelperClone"

	testSourceRootConstant = "src/test"
	sourceRootConstant     = "src"

	missingDependencyMessageTemplate = "test file in the %s area imports no %s harness helper"
	localCloneMessageTemplate        = "%s clones harness helper %s outside the harness package"

	headerReadFailureMessageConstant = "unable to read source header"
)

// Area names recognized by the layered reuse rule.
const (
	areaData = "data"
	areaSync = "sync"
	areaUI   = "ui"
)

// Settings configures one harness audit execution.
type Settings struct {
	ModuleName        string
	ModuleDirectory   string
	RootPackage       string
	HarnessPackage    string
	DataHelpers       []string
	SyncHelpers       []string
	UIHelpers         []string
	CrossLayerHelpers []string
	Whitelist         *match.WhitelistMatcher
}

// Audit applies the layered reuse rule and the helper clone rule.
type Audit struct {
	settings    Settings
	areaHelpers map[string]map[string]struct{}
	simpleNames map[string]struct{}
	logger      *zap.Logger
}

// NewAudit constructs a harness audit, indexing the configured helper sets.
func NewAudit(settings Settings, logger *zap.Logger) *Audit {
	if logger == nil {
		logger = zap.NewNop()
	}
	audit := &Audit{
		settings: settings,
		areaHelpers: map[string]map[string]struct{}{
			areaData: fqcnSet(settings.DataHelpers),
			areaSync: fqcnSet(settings.SyncHelpers),
			areaUI:   fqcnSet(settings.UIHelpers),
		},
		simpleNames: map[string]struct{}{},
		logger:      logger,
	}
	for _, helperSet := range [][]string{settings.DataHelpers, settings.SyncHelpers, settings.UIHelpers, settings.CrossLayerHelpers} {
		for _, helper := range helperSet {
			simpleName := simpleNameOf(helper)
			if len(simpleName) > 0 {
				audit.simpleNames[simpleName] = struct{}{}
			}
		}
	}
	return audit
}

// Name identifies the audit.
func (audit *Audit) Name() string {
	return auditNameConstant
}

// Check runs both rules over the module sources and reports the verdict.
// Any finding fails the audit.
func (audit *Audit) Check(callback gate.ResultCallback) error {
	var findings []gate.Finding

	reuseFindings, reuseError := audit.checkLayeredReuse()
	if reuseError != nil {
		return reuseError
	}
	findings = append(findings, reuseFindings...)

	cloneFindings, cloneError := audit.checkHelperClones()
	if cloneError != nil {
		return cloneError
	}
	findings = append(findings, cloneFindings...)

	status := gate.StatusPass
	if len(findings) > 0 {
		status = gate.StatusFail
	}

	callback(gate.NewListResult(audit.settings.ModuleName, auditNameConstant, findings, auditToleranceConstant, status))
	return nil
}

// checkLayeredReuse requires each layered test file to import at least one
// helper from its area's set. Cross-layer helpers never satisfy the rule.
func (audit *Audit) checkLayeredReuse() ([]gate.Finding, error) {
	var findings []gate.Finding
	testRoot := filepath.Join(audit.settings.ModuleDirectory, filepath.FromSlash(testSourceRootConstant))

	for _, sourcePath := range sourceset.CollectSourceFiles(testRoot) {
		header, headerError := sourceset.ReadHeader(sourcePath)
		if headerError != nil {
			return nil, gate.NewProcessingError(headerReadFailureMessageConstant, sourcePath, headerError)
		}
		if len(header.Package) == 0 {
			continue
		}
		area := audit.areaOfPackage(header.Package)
		if len(area) == 0 {
			continue
		}
		if audit.anyImportWhitelisted(header.Imports) {
			continue
		}
		if audit.importsAreaHelper(header.Imports, area) {
			continue
		}
		findings = append(findings, gate.Finding{
			Type:     findingTypeMissingHarnessDependency,
			FilePath: sourceset.ModuleRelativePath(audit.settings.ModuleDirectory, sourcePath),
			Message:  missingDependencyMessage(area),
		})
	}
	return findings, nil
}

// checkHelperClones flags top-level declarations outside the harness
// package whose simple name shadows a canonical helper.
func (audit *Audit) checkHelperClones() ([]gate.Finding, error) {
	var findings []gate.Finding
	sourceRoot := filepath.Join(audit.settings.ModuleDirectory, sourceRootConstant)

	for _, sourcePath := range sourceset.CollectSourceFiles(sourceRoot) {
		header, headerError := sourceset.ReadHeader(sourcePath)
		if headerError != nil {
			return nil, gate.NewProcessingError(headerReadFailureMessageConstant, sourcePath, headerError)
		}
		if audit.isHarnessPackage(header.Package) {
			continue
		}
		for _, declaration := range header.Declarations {
			if _, isCanonical := audit.simpleNames[declaration.Name]; !isCanonical {
				continue
			}
			qualifiedName := declaration.Name
			if len(header.Package) > 0 {
				qualifiedName = header.Package + "." + declaration.Name
			}
			if audit.settings.Whitelist.MatchesSymbol(qualifiedName) {
				continue
			}
			findings = append(findings, gate.Finding{
				Type:     findingTypeLocalHelperClone,
				FilePath: sourceset.ModuleRelativePath(audit.settings.ModuleDirectory, sourcePath),
				Line:     declaration.Line,
				Message:  localCloneMessage(qualifiedName, declaration.Name),
			})
		}
	}
	return findings, nil
}

func (audit *Audit) areaOfPackage(packageName string) string {
	rootPackage := strings.TrimSpace(audit.settings.RootPackage)
	if len(rootPackage) == 0 {
		return ""
	}
	for _, area := range []string{areaData, areaSync, areaUI} {
		areaPackage := rootPackage + "." + area
		if packageName == areaPackage || strings.HasPrefix(packageName, areaPackage+".") {
			return area
		}
	}
	return ""
}

func (audit *Audit) anyImportWhitelisted(imports []string) bool {
	for _, importedName := range imports {
		if audit.settings.Whitelist.MatchesSymbol(importedName) {
			return true
		}
	}
	return false
}

func (audit *Audit) importsAreaHelper(imports []string, area string) bool {
	helperSet := audit.areaHelpers[area]
	for _, importedName := range imports {
		if _, isHelper := helperSet[importedName]; isHelper {
			return true
		}
	}
	return false
}

func (audit *Audit) isHarnessPackage(packageName string) bool {
	harnessPackage := strings.TrimSpace(audit.settings.HarnessPackage)
	if len(harnessPackage) == 0 || len(packageName) == 0 {
		return false
	}
	return packageName == harnessPackage || strings.HasPrefix(packageName, harnessPackage+".")
}

func fqcnSet(names []string) map[string]struct{} {
	indexed := make(map[string]struct{}, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if len(trimmed) > 0 {
			indexed[trimmed] = struct{}{}
		}
	}
	return indexed
}

func simpleNameOf(qualifiedName string) string {
	trimmed := strings.TrimSpace(qualifiedName)
	if lastDotIndex := strings.LastIndex(trimmed, "."); lastDotIndex >= 0 {
		return trimmed[lastDotIndex+1:]
	}
	return trimmed
}

func missingDependencyMessage(area string) string {
	return fmt.Sprintf(missingDependencyMessageTemplate, area, area)
}

func localCloneMessage(qualifiedName string, simpleName string) string {
	return fmt.Sprintf(localCloneMessageTemplate, qualifiedName, simpleName)
}
