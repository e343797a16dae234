package sqlfts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/testgate/internal/audits/sqlfts"
	"github.com/temirov/testgate/internal/gate"
	"github.com/temirov/testgate/internal/match"
)

func writeModuleSource(testInstance *testing.T, moduleDirectory string, relativePath string, content string) {
	testInstance.Helper()
	targetPath := filepath.Join(moduleDirectory, filepath.FromSlash(relativePath))
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(targetPath), 0o755))
	require.NoError(testInstance, os.WriteFile(targetPath, []byte(content), 0o644))
}

func runSQLFtsAudit(testInstance *testing.T, settings sqlfts.Settings) gate.AuditResult {
	testInstance.Helper()
	var received []gate.AuditResult
	require.NoError(testInstance, sqlfts.NewAudit(settings, nil).Check(func(result gate.AuditResult) {
		received = append(received, result)
	}))
	require.Len(testInstance, received, 1)
	return received[0]
}

func findingTypes(result gate.AuditResult) []string {
	var types []string
	for _, finding := range result.Findings {
		types = append(types, finding.Type)
	}
	return types
}

func TestRawQueryAndSupportQueryBans(testInstance *testing.T) {
	moduleDirectory := testInstance.TempDir()
	writeModuleSource(testInstance, moduleDirectory, "src/main/kotlin/Dao.kt", `package com.example

@RawQuery
fun raw(query: SupportSQLiteQuery): Int
`)

	result := runSQLFtsAudit(testInstance, sqlfts.Settings{
		ModuleName:      ":app",
		ModuleDirectory: moduleDirectory,
	})

	require.ElementsMatch(testInstance, []string{"RawQueryUsage", "SupportSQLiteQueryUsage"}, findingTypes(result))
	require.Equal(testInstance, gate.StatusFail, result.Status)
}

func TestComplexKeywordInsideQueryBody(testInstance *testing.T) {
	moduleDirectory := testInstance.TempDir()
	writeModuleSource(testInstance, moduleDirectory, "src/main/kotlin/Dao.kt", `package com.example

@Query("""
    SELECT * FROM track
    JOIN album ON album.id = track.albumId
""")
fun tracksWithAlbums(): List<Track>
`)

	result := runSQLFtsAudit(testInstance, sqlfts.Settings{
		ModuleName:      ":app",
		ModuleDirectory: moduleDirectory,
	})

	require.Equal(testInstance, []string{"ComplexSqlKeyword"}, findingTypes(result))
	require.Contains(testInstance, result.Findings[0].Message, "JOIN")
	require.Equal(testInstance, 3, result.Findings[0].Line)
}

func TestWhitelistSkipsBansButNotRailsGuard(testInstance *testing.T) {
	moduleDirectory := testInstance.TempDir()
	writeModuleSource(testInstance, moduleDirectory, "src/main/kotlin/LegacyDao.kt", `package com.example

@RawQuery
fun raw(): Int

@Query("SELECT * FROM RailEntry ORDER BY popularity DESC")
fun rails(): List<RailEntry>
`)

	whitelist, whitelistError := match.NewWhitelistMatcher([]string{"**/LegacyDao.kt"})
	require.NoError(testInstance, whitelistError)

	result := runSQLFtsAudit(testInstance, sqlfts.Settings{
		ModuleName:      ":app",
		ModuleDirectory: moduleDirectory,
		Whitelist:       whitelist,
	})

	require.Equal(testInstance, []string{"RailsOrderForbidden"}, findingTypes(result))
}

func TestRailsGuardScenarios(testInstance *testing.T) {
	testCases := []struct {
		name            string
		query           string
		expectedType    string
		expectedMessage string
	}{
		{
			name:            "popularity_ordering_is_forbidden",
			query:           "SELECT * FROM RailEntry ORDER BY popularity DESC",
			expectedType:    "RailsOrderForbidden",
			expectedMessage: "popularity is forbidden",
		},
		{
			name:            "missing_position_ordering",
			query:           "SELECT * FROM RailEntry WHERE x=1",
			expectedType:    "RailsOrderMissing",
			expectedMessage: "must ORDER BY position",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			moduleDirectory := subtest.TempDir()
			writeModuleSource(subtest, moduleDirectory, "src/main/kotlin/RailsDao.kt",
				"package com.example\n\n@Query(\""+testCase.query+"\")\nfun rails(): List<RailEntry>\n")

			result := runSQLFtsAudit(subtest, sqlfts.Settings{
				ModuleName:      ":app",
				ModuleDirectory: moduleDirectory,
			})

			require.Equal(subtest, []string{testCase.expectedType}, findingTypes(result))
			require.Contains(subtest, result.Findings[0].Message, testCase.expectedMessage)
		})
	}
}

func TestRailsGuardPositionOrderingPasses(testInstance *testing.T) {
	moduleDirectory := testInstance.TempDir()
	writeModuleSource(testInstance, moduleDirectory, "src/main/kotlin/RailsDao.kt", `package com.example

@Query("SELECT * FROM RailEntry ORDER BY position ASC")
fun rails(): List<RailEntry>
`)

	result := runSQLFtsAudit(testInstance, sqlfts.Settings{
		ModuleName:      ":app",
		ModuleDirectory: moduleDirectory,
	})

	require.Empty(testInstance, result.Findings)
	require.Equal(testInstance, gate.StatusPass, result.Status)
}

func TestFtsEngineLock(testInstance *testing.T) {
	testInstance.Run("fts5_is_always_banned", func(subtest *testing.T) {
		moduleDirectory := subtest.TempDir()
		writeModuleSource(subtest, moduleDirectory, "src/main/kotlin/SearchEntity.kt", `package com.example

@Fts5
class SearchEntity
`)

		result := runSQLFtsAudit(subtest, sqlfts.Settings{ModuleName: ":app", ModuleDirectory: moduleDirectory})

		require.Equal(subtest, []string{"Fts5Usage", "FtsMissingFts4"}, findingTypes(result))
	})

	testInstance.Run("fts4_satisfies_the_lock", func(subtest *testing.T) {
		moduleDirectory := subtest.TempDir()
		writeModuleSource(subtest, moduleDirectory, "src/main/kotlin/SearchEntity.kt", `package com.example

@Fts4
class SearchEntity
`)

		result := runSQLFtsAudit(subtest, sqlfts.Settings{ModuleName: ":app", ModuleDirectory: moduleDirectory})

		require.Empty(subtest, result.Findings)
	})
}

func TestToleranceUsesScannedFileShare(testInstance *testing.T) {
	moduleDirectory := testInstance.TempDir()
	writeModuleSource(testInstance, moduleDirectory, "src/main/kotlin/BadDao.kt", "package com.example\n\n@RawQuery\nfun raw(): Int\n")
	for fileIndex := 0; fileIndex < 9; fileIndex++ {
		writeModuleSource(testInstance, moduleDirectory, filepath.ToSlash(filepath.Join("src/main/kotlin", "Clean"+string(rune('A'+fileIndex))+".kt")), "package com.example\n")
	}

	result := runSQLFtsAudit(testInstance, sqlfts.Settings{
		ModuleName:       ":app",
		ModuleDirectory:  moduleDirectory,
		TolerancePercent: 10,
	})

	// One finding over ten scanned files sits exactly on the 10% boundary.
	require.Equal(testInstance, gate.StatusPass, result.Status)
	require.Len(testInstance, result.Findings, 1)
}
