package fixtures_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/testgate/internal/audits/fixtures"
	"github.com/temirov/testgate/internal/gate"
	"github.com/temirov/testgate/internal/match"
)

func writeFixture(testInstance *testing.T, moduleDirectory string, fileName string, sizeBytes int) {
	testInstance.Helper()
	targetPath := filepath.Join(moduleDirectory, "src", "test", "resources", fileName)
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(targetPath), 0o755))
	require.NoError(testInstance, os.WriteFile(targetPath, []byte(strings.Repeat("x", sizeBytes)), 0o644))
}

func runFixturesAudit(testInstance *testing.T, settings fixtures.Settings) gate.AuditResult {
	testInstance.Helper()
	if settings.MinBytes == 0 {
		settings.MinBytes = 256
	}
	if settings.MaxBytes == 0 {
		settings.MaxBytes = 8192
	}
	var received []gate.AuditResult
	require.NoError(testInstance, fixtures.NewAudit(settings, nil).Check(func(result gate.AuditResult) {
		received = append(received, result)
	}))
	require.Len(testInstance, received, 1)
	return received[0]
}

func TestMissingFixturesFailUnlessWhitelisted(testInstance *testing.T) {
	testInstance.Run("missing_fixtures_fail", func(subtest *testing.T) {
		result := runFixturesAudit(subtest, fixtures.Settings{
			ModuleName:      ":app",
			ModuleDirectory: subtest.TempDir(),
		})

		require.Equal(subtest, gate.StatusFail, result.Status)
		require.Equal(subtest, "MissingFixture", result.Findings[0].Type)
	})

	testInstance.Run("whitelisted_module_passes_without_fixtures", func(subtest *testing.T) {
		whitelist, whitelistError := match.NewWhitelistMatcher([]string{":app"})
		require.NoError(subtest, whitelistError)

		result := runFixturesAudit(subtest, fixtures.Settings{
			ModuleName:      ":app",
			ModuleDirectory: subtest.TempDir(),
			Whitelist:       whitelist,
		})

		require.Empty(subtest, result.Findings)
		require.Equal(subtest, gate.StatusPass, result.Status)
	})
}

func TestSizeWindowBoundariesAreAllowed(testInstance *testing.T) {
	moduleDirectory := testInstance.TempDir()
	writeFixture(testInstance, moduleDirectory, "exact_min.json", 256)
	writeFixture(testInstance, moduleDirectory, "exact_max.json", 8192)

	result := runFixturesAudit(testInstance, fixtures.Settings{
		ModuleName:       ":app",
		ModuleDirectory:  moduleDirectory,
		TolerancePercent: 0,
	})

	require.Empty(testInstance, result.Findings)
	require.Equal(testInstance, gate.StatusPass, result.Status)
}

func TestSizeWindowViolations(testInstance *testing.T) {
	moduleDirectory := testInstance.TempDir()
	writeFixture(testInstance, moduleDirectory, "tiny.json", 10)
	writeFixture(testInstance, moduleDirectory, "huge.json", 9000)
	writeFixture(testInstance, moduleDirectory, "ok.json", 1024)

	result := runFixturesAudit(testInstance, fixtures.Settings{
		ModuleName:       ":app",
		ModuleDirectory:  moduleDirectory,
		TolerancePercent: 10,
	})

	require.Len(testInstance, result.Findings, 2)
	typesBySuffix := map[string]string{}
	for _, finding := range result.Findings {
		typesBySuffix[filepath.Base(finding.FilePath)] = finding.Type
	}
	require.Equal(testInstance, "FixtureOversize", typesBySuffix["huge.json"])
	require.Equal(testInstance, "FixtureTooSmall", typesBySuffix["tiny.json"])

	// 2 of 3 fixtures out of the window exceeds the 10% tolerance.
	require.Equal(testInstance, gate.StatusFail, result.Status)
}

func TestTooSmallIsWarningSeverity(testInstance *testing.T) {
	moduleDirectory := testInstance.TempDir()
	writeFixture(testInstance, moduleDirectory, "tiny.json", 10)

	result := runFixturesAudit(testInstance, fixtures.Settings{
		ModuleName:       ":app",
		ModuleDirectory:  moduleDirectory,
		TolerancePercent: 100,
	})

	require.Equal(testInstance, "warning", result.Findings[0].Severity)
	require.Equal(testInstance, gate.StatusPass, result.Status)
}

func TestNonJSONFilesAreIgnored(testInstance *testing.T) {
	moduleDirectory := testInstance.TempDir()
	targetPath := filepath.Join(moduleDirectory, "src", "test", "resources", "notes.txt")
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(targetPath), 0o755))
	require.NoError(testInstance, os.WriteFile(targetPath, []byte("not a fixture"), 0o644))

	result := runFixturesAudit(testInstance, fixtures.Settings{
		ModuleName:      ":app",
		ModuleDirectory: moduleDirectory,
	})

	require.Equal(testInstance, gate.StatusFail, result.Status)
	require.Equal(testInstance, "MissingFixture", result.Findings[0].Type)
}
