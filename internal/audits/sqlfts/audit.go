package sqlfts

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
	auditNameConstant = "SqlFtsAudit"

	findingTypeRawQueryUsage         = "RawQueryUsage"
	findingTypeSupportQueryUsage     = "SupportSQLiteQueryUsage"
	findingTypeComplexSQLKeyword     = "ComplexSqlKeyword"
	findingTypeRailsOrderForbidden   = "RailsOrderForbidden"
	findingTypeRailsOrderMissing     = "RailsOrderMissing"
	findingTypeFts5Usage             = "Fts5Usage"
	findingTypeFtsMissingFts4        = "FtsMissingFts4"

	rawQueryMessageConstant       = "@RawQuery is banned; declare the query with @Query"
	supportQueryMessageConstant   = "SupportSQLiteQuery is banned; declare the query with @Query"
	complexKeywordMessageTemplate = "complex SQL keyword %s is banned in @Query bodies"
	railsForbiddenMessageConstant = "rail queries ordering by popularity is forbidden"
	railsMissingMessageConstant   = "rail queries must ORDER BY position"
	fts5MessageConstant           = "@Fts5 is banned; full-text tables must use @Fts4"
	ftsMissingFts4MessageConstant = "full-text tables detected without any @Fts4 declaration"

	sourceReadFailureMessageConstant = "unable to read source file"
	sourceRootConstant               = "src"
	errorSeverityConstant            = "error"
)

var (
	tripleQuotedQueryPattern = regexp.MustCompile(`(?s)@Query\s*\(\s*"""(.*?)"""`)
	singleQuotedQueryPattern = regexp.MustCompile(`@Query\s*\(\s*"((?:[^"\\]|\\.)*)"`)
	rawQueryLinePattern      = regexp.MustCompile(`(?m)^\s*@RawQuery\b`)
	supportQueryPattern      = regexp.MustCompile(`\bSupportSQLiteQuery\b`)
	complexKeywordPattern    = regexp.MustCompile(`(?i)\b(JOIN|UNION|WITH|CREATE|ALTER|INSERT|UPDATE|DELETE)\b`)
	railSelectPattern        = regexp.MustCompile(`(?i)\bFROM\s+\S*RailEntry`)
	orderByPositionPattern   = regexp.MustCompile(`(?i)\bORDER\s+BY\s+position\b`)
	orderByPopularityPattern = regexp.MustCompile(`(?i)\bORDER\s+BY\s+popularity\b`)
	fts4AnnotationPattern    = regexp.MustCompile(`@Fts4\b`)
	fts5AnnotationPattern    = regexp.MustCompile(`@Fts5\b`)
)

// Settings configures one SQL/FTS audit execution.
type Settings struct {
	ModuleName       string
	ModuleDirectory  string
	TolerancePercent int
	Whitelist        *match.WhitelistMatcher
}

// Audit scans Kotlin and Java sources for SQL rule violations.
type Audit struct {
	settings Settings
	logger   *zap.Logger
}

// NewAudit constructs a SQL/FTS audit.
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

// extractedQuery is one @Query body with the 1-based line of its opening.
type extractedQuery struct {
	sql  string
	line int
}

// Check scans every source file under src and reports the verdict.
func (audit *Audit) Check(callback gate.ResultCallback) error {
	sourceRoot := filepath.Join(audit.settings.ModuleDirectory, sourceRootConstant)
	sourcePaths := sourceset.CollectSourceFiles(sourceRoot)

	var findings []gate.Finding
	sawAnyFts := false
	sawFts4 := false

	for _, sourcePath := range sourcePaths {
		contentBytes, readError := os.ReadFile(sourcePath)
		if readError != nil {
			return gate.NewProcessingError(sourceReadFailureMessageConstant, sourcePath, readError)
		}
		content := string(contentBytes)
		relativePath := sourceset.ModuleRelativePath(audit.settings.ModuleDirectory, sourcePath)
		whitelisted := audit.settings.Whitelist.MatchesPath(relativePath) || audit.settings.Whitelist.MatchesPath(sourcePath)

		queries := extractQueries(content)

		if !whitelisted {
			findings = append(findings, bannedUsageFindings(content, relativePath)...)
			for _, query := range queries {
				if keywordMatch := complexKeywordPattern.FindStringSubmatch(query.sql); keywordMatch != nil {
					findings = append(findings, gate.Finding{
						Type:     findingTypeComplexSQLKeyword,
						FilePath: relativePath,
						Line:     query.line,
						Severity: errorSeverityConstant,
						Message:  complexKeywordMessage(strings.ToUpper(keywordMatch[1])),
					})
				}
			}
		}

		// The rails guard and the FTS lock ignore the whitelist.
		for _, query := range queries {
			if !railSelectPattern.MatchString(query.sql) {
				continue
			}
			if orderByPopularityPattern.MatchString(query.sql) {
				findings = append(findings, gate.Finding{
					Type:     findingTypeRailsOrderForbidden,
					FilePath: relativePath,
					Line:     query.line,
					Severity: errorSeverityConstant,
					Message:  railsForbiddenMessageConstant,
				})
				continue
			}
			if !orderByPositionPattern.MatchString(query.sql) {
				findings = append(findings, gate.Finding{
					Type:     findingTypeRailsOrderMissing,
					FilePath: relativePath,
					Line:     query.line,
					Severity: errorSeverityConstant,
					Message:  railsMissingMessageConstant,
				})
			}
		}

		if fts4AnnotationPattern.MatchString(content) {
			sawAnyFts = true
			sawFts4 = true
		}
		for _, matchIndex := range fts5AnnotationPattern.FindAllStringIndex(content, -1) {
			sawAnyFts = true
			findings = append(findings, gate.Finding{
				Type:     findingTypeFts5Usage,
				FilePath: relativePath,
				Line:     lineOfOffset(content, matchIndex[0]),
				Severity: errorSeverityConstant,
				Message:  fts5MessageConstant,
			})
		}
	}

	if sawAnyFts && !sawFts4 {
		findings = append(findings, gate.Finding{
			Type:     findingTypeFtsMissingFts4,
			Severity: errorSeverityConstant,
			Message:  ftsMissingFts4MessageConstant,
		})
	}

	scannedFiles := len(sourcePaths)
	if scannedFiles < 1 {
		scannedFiles = 1
	}

	status := gate.StatusPass
	if len(findings)*100 > audit.settings.TolerancePercent*scannedFiles {
		status = gate.StatusFail
	}

	callback(gate.NewListResult(audit.settings.ModuleName, auditNameConstant, findings, audit.settings.TolerancePercent, status))
	return nil
}

// extractQueries collects @Query bodies, triple-quoted bodies first so a
// triple-quoted opening never reparses as an empty single-quoted string.
func extractQueries(content string) []extractedQuery {
	var queries []extractedQuery
	consumed := make([]bool, len(content))

	for _, indexes := range tripleQuotedQueryPattern.FindAllStringSubmatchIndex(content, -1) {
		queries = append(queries, extractedQuery{
			sql:  content[indexes[2]:indexes[3]],
			line: lineOfOffset(content, indexes[0]),
		})
		for position := indexes[0]; position < indexes[1]; position++ {
			consumed[position] = true
		}
	}

	for _, indexes := range singleQuotedQueryPattern.FindAllStringSubmatchIndex(content, -1) {
		if consumed[indexes[0]] {
			continue
		}
		queries = append(queries, extractedQuery{
			sql:  content[indexes[2]:indexes[3]],
			line: lineOfOffset(content, indexes[0]),
		})
	}

	return queries
}

func bannedUsageFindings(content string, relativePath string) []gate.Finding {
	var findings []gate.Finding
	if rawQueryIndexes := rawQueryLinePattern.FindStringIndex(content); rawQueryIndexes != nil {
		findings = append(findings, gate.Finding{
			Type:     findingTypeRawQueryUsage,
			FilePath: relativePath,
			Line:     lineOfOffset(content, rawQueryIndexes[0]),
			Severity: errorSeverityConstant,
			Message:  rawQueryMessageConstant,
		})
	}
	if supportQueryIndexes := supportQueryPattern.FindStringIndex(content); supportQueryIndexes != nil {
		findings = append(findings, gate.Finding{
			Type:     findingTypeSupportQueryUsage,
			FilePath: relativePath,
			Line:     lineOfOffset(content, supportQueryIndexes[0]),
			Severity: errorSeverityConstant,
			Message:  supportQueryMessageConstant,
		})
	}
	return findings
}

func complexKeywordMessage(keyword string) string {
	return fmt.Sprintf(complexKeywordMessageTemplate, keyword)
}

func lineOfOffset(content string, offset int) int {
	return strings.Count(content[:offset], "\n") + 1
}
