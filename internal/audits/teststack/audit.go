package teststack

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
	auditNameConstant      = "TestStackAudit"
	auditToleranceConstant = 0

	findingTypeBannedImport          = "BANNED_IMPORT"
	findingTypeBannedAnnotation      = "BANNED_ANNOTATION"
	findingTypeCoroutinesMisuse      = "COROUTINES_MISUSE"
	findingTypeMissingDispatcherRule = "MISSING_MAIN_DISPATCHER_RULE"

	testKotlinRootConstant = "src/test/kotlin"

	bannedImportMessageTemplate       = "banned import %s"
	bannedAnnotationMessageConstant   = "tests must not be ignored or disabled"
	blockingMisuseMessageConstant     = "blocking primitives are banned in coroutine tests"
	schedulerMisuseMessageConstant    = "coroutine scheduler control requires runTest"
	missingDispatcherMessageConstant  = "main-dispatcher usage requires MainDispatcherRule"
	sourceReadFailureMessageConstant  = "unable to read test source"
	errorSeverityConstant             = "error"

	bannedExactImportConstant       = "org.junit.Test"
	mainDispatcherRuleTokenConstant = "MainDispatcherRule"
)

// Import prefixes banned from JVM unit tests.
var bannedImportPrefixes = []string{
	"androidx.test.",
	"org.robolectric.",
	"androidx.test.espresso.",
	"androidx.compose.ui.test.",
}

// Tokens that indicate virtual-scheduler control.
var schedulerTokens = []string{
	"advanceUntilIdle(",
	"advanceTimeBy(",
	"runCurrent(",
	"TestCoroutineScheduler",
	"StandardTestDispatcher",
	"UnconfinedTestDispatcher",
	"TestScope",
}

var (
	importLinePattern      = regexp.MustCompile(`^\s*import\s+([\w.]+(?:\.\*)?)`)
	bannedAnnotationPattern = regexp.MustCompile(`@(?:org\.junit\.[\w.]*\.)?(?:Ignore\b|Disabled\w*)`)
	runBlockingPattern      = regexp.MustCompile(`runBlocking\s*[({]`)
	threadSleepPattern      = regexp.MustCompile(`Thread\.sleep\(`)
	runTestPattern          = regexp.MustCompile(`runTest\s*[({]`)
	mainDispatcherPattern   = regexp.MustCompile(`Dispatchers\.Main|viewModelScope`)
)

// Settings configures one test-stack audit execution.
type Settings struct {
	ModuleName      string
	ModuleDirectory string
	Whitelist       *match.WhitelistMatcher
}

// Audit scans JVM test sources for stack violations. Each finding type is
// reported at most once per file, at its first match line.
type Audit struct {
	settings Settings
	logger   *zap.Logger
}

// NewAudit constructs a test-stack audit.
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

// Check scans every Kotlin file under src/test/kotlin and reports the
// verdict. Any finding fails the audit.
func (audit *Audit) Check(callback gate.ResultCallback) error {
	kotlinRoot := filepath.Join(audit.settings.ModuleDirectory, filepath.FromSlash(testKotlinRootConstant))

	var findings []gate.Finding
	for _, sourcePath := range sourceset.CollectFiles(kotlinRoot, sourceset.IsKotlinFile) {
		relativePath := sourceset.ModuleRelativePath(audit.settings.ModuleDirectory, sourcePath)
		if audit.settings.Whitelist.MatchesPath(relativePath) || audit.settings.Whitelist.MatchesPath(sourcePath) {
			continue
		}
		contentBytes, readError := os.ReadFile(sourcePath)
		if readError != nil {
			return gate.NewProcessingError(sourceReadFailureMessageConstant, sourcePath, readError)
		}
		findings = append(findings, auditFile(relativePath, string(contentBytes))...)
	}

	status := gate.StatusPass
	if len(findings) > 0 {
		status = gate.StatusFail
	}

	callback(gate.NewListResult(audit.settings.ModuleName, auditNameConstant, findings, auditToleranceConstant, status))
	return nil
}

// auditFile evaluates all four rule families over one file.
func auditFile(relativePath string, content string) []gate.Finding {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var findings []gate.Finding

	emit := func(findingType string, line int, message string) {
		findings = append(findings, gate.Finding{
			Type:     findingType,
			FilePath: relativePath,
			Line:     line,
			Severity: errorSeverityConstant,
			Message:  message,
		})
	}

	hasRunTest := runTestPattern.MatchString(content)
	hasDispatcherRule := strings.Contains(content, mainDispatcherRuleTokenConstant)

	reportedBannedImport := false
	reportedAnnotation := false
	reportedCoroutines := false
	reportedDispatcher := false

	for lineIndex, line := range lines {
		lineNumber := lineIndex + 1

		if !reportedBannedImport {
			if importMatch := importLinePattern.FindStringSubmatch(line); importMatch != nil && isBannedImport(importMatch[1]) {
				emit(findingTypeBannedImport, lineNumber, bannedImportMessage(importMatch[1]))
				reportedBannedImport = true
			}
		}
		if !reportedAnnotation && bannedAnnotationPattern.MatchString(line) {
			emit(findingTypeBannedAnnotation, lineNumber, bannedAnnotationMessageConstant)
			reportedAnnotation = true
		}
		if !reportedCoroutines {
			switch {
			case runBlockingPattern.MatchString(line), threadSleepPattern.MatchString(line):
				emit(findingTypeCoroutinesMisuse, lineNumber, blockingMisuseMessageConstant)
				reportedCoroutines = true
			case !hasRunTest && containsSchedulerToken(line):
				emit(findingTypeCoroutinesMisuse, lineNumber, schedulerMisuseMessageConstant)
				reportedCoroutines = true
			}
		}
		if !reportedDispatcher && !hasDispatcherRule && mainDispatcherPattern.MatchString(line) {
			emit(findingTypeMissingDispatcherRule, lineNumber, missingDispatcherMessageConstant)
			reportedDispatcher = true
		}
	}

	return findings
}

func isBannedImport(importedName string) bool {
	if importedName == bannedExactImportConstant {
		return true
	}
	for _, prefix := range bannedImportPrefixes {
		if strings.HasPrefix(importedName, prefix) {
			return true
		}
	}
	return false
}

func containsSchedulerToken(line string) bool {
	for _, token := range schedulerTokens {
		if strings.Contains(line, token) {
			return true
		}
	}
	return false
}

func bannedImportMessage(importedName string) string {
	return fmt.Sprintf(bannedImportMessageTemplate, importedName)
}
