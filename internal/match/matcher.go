package match

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	forwardSlashConstant            = "/"
	backslashConstant               = "\\"
	dotConstant                     = "."
	anySubpackageShorthandConstant  = "..*"
	singleSegmentShorthandConstant  = ".*"
	anyDepthGlobConstant            = "/**"
	singleSegmentGlobConstant       = "/*"
	unanchoredPrefixExpression      = "(?:.*/)?"
	anyDepthExpression              = "(?:.*/)?"
	optionalTailExpression          = "(?:/.*)?"
	anyDepthTailExpression          = ".*"
	singleSegmentExpression         = "[^/]*"
	singleCharacterExpression       = "[^/]"
	patternCompileErrorTemplate     = "whitelist pattern %q: %w"
)

// WhitelistMatcher tests paths and fully qualified names against a fixed
// set of compiled whitelist patterns.
type WhitelistMatcher struct {
	patterns []string
	compiled []*regexp.Regexp
	// symbolCompiled holds the glob form of patterns that are not FQCN
	// shorthands; only these are tested against a symbol's dotted form.
	symbolCompiled []*regexp.Regexp
}

// NewWhitelistMatcher compiles the provided patterns. Blank patterns are
// ignored; an empty pattern set matches nothing.
func NewWhitelistMatcher(patterns []string) (*WhitelistMatcher, error) {
	matcher := &WhitelistMatcher{}
	for _, rawPattern := range patterns {
		pattern := strings.TrimSpace(rawPattern)
		if len(pattern) == 0 {
			continue
		}
		matcher.patterns = append(matcher.patterns, pattern)

		pathExpression, pathError := compileGlobPattern(pattern)
		if pathError != nil {
			return nil, fmt.Errorf(patternCompileErrorTemplate, pattern, pathError)
		}
		matcher.compiled = append(matcher.compiled, pathExpression)

		if isFqcnShorthand(pattern) {
			expandedExpression, expandedError := compileGlobPattern(fqcnToGlobPattern(pattern))
			if expandedError != nil {
				return nil, fmt.Errorf(patternCompileErrorTemplate, pattern, expandedError)
			}
			matcher.compiled = append(matcher.compiled, expandedExpression)
		} else {
			matcher.symbolCompiled = append(matcher.symbolCompiled, pathExpression)
		}
	}
	return matcher, nil
}

// Patterns returns the retained pattern strings in compilation order.
func (matcher *WhitelistMatcher) Patterns() []string {
	return append([]string{}, matcher.patterns...)
}

// IsEmpty reports whether the matcher holds no patterns.
func (matcher *WhitelistMatcher) IsEmpty() bool {
	return matcher == nil || len(matcher.compiled) == 0
}

// MatchesPath normalizes the supplied path (backslashes to slashes, leading
// slash prepended) and tests it against every compiled pattern. Blank input
// never matches.
func (matcher *WhitelistMatcher) MatchesPath(candidatePath string) bool {
	if matcher.IsEmpty() {
		return false
	}
	normalized := NormalizePath(candidatePath)
	if len(normalized) == 0 {
		return false
	}
	for _, expression := range matcher.compiled {
		if expression.MatchString(normalized) {
			return true
		}
	}
	return false
}

// MatchesSymbol tests a fully qualified name or symbol. Its slash-normalized
// form is tested against every pattern; its dotted form only against
// patterns that are not FQCN shorthands, so a shorthand ".*" never spans a
// package separator.
func (matcher *WhitelistMatcher) MatchesSymbol(candidateSymbol string) bool {
	if matcher.IsEmpty() {
		return false
	}
	trimmed := strings.TrimSpace(candidateSymbol)
	if len(trimmed) == 0 {
		return false
	}
	if matcher.MatchesPath(strings.ReplaceAll(trimmed, dotConstant, forwardSlashConstant)) {
		return true
	}
	normalized := NormalizePath(trimmed)
	for _, expression := range matcher.symbolCompiled {
		if expression.MatchString(normalized) {
			return true
		}
	}
	return false
}

// NormalizePath converts backslashes to forward slashes and anchors the
// path with a leading slash. Blank input normalizes to the empty string.
func NormalizePath(candidatePath string) string {
	trimmed := strings.TrimSpace(candidatePath)
	if len(trimmed) == 0 {
		return ""
	}
	normalized := strings.ReplaceAll(trimmed, backslashConstant, forwardSlashConstant)
	if !strings.HasPrefix(normalized, forwardSlashConstant) {
		normalized = forwardSlashConstant + normalized
	}
	return normalized
}

func isFqcnShorthand(pattern string) bool {
	return strings.Contains(pattern, dotConstant) && !strings.Contains(pattern, forwardSlashConstant)
}

// fqcnToGlobPattern rewrites a dotted pattern into its slash glob form:
// "..*" becomes "/**", ".*" becomes "/*", remaining dots become slashes.
func fqcnToGlobPattern(pattern string) string {
	var builder strings.Builder
	remaining := pattern
	for len(remaining) > 0 {
		switch {
		case strings.HasPrefix(remaining, anySubpackageShorthandConstant):
			builder.WriteString(anyDepthGlobConstant)
			remaining = remaining[len(anySubpackageShorthandConstant):]
		case strings.HasPrefix(remaining, singleSegmentShorthandConstant):
			builder.WriteString(singleSegmentGlobConstant)
			remaining = remaining[len(singleSegmentShorthandConstant):]
		case strings.HasPrefix(remaining, dotConstant):
			builder.WriteString(forwardSlashConstant)
			remaining = remaining[len(dotConstant):]
		default:
			builder.WriteByte(remaining[0])
			remaining = remaining[1:]
		}
	}
	return builder.String()
}

// compileGlobPattern translates one glob pattern into an anchored regular
// expression over a normalized forward-slash path.
func compileGlobPattern(pattern string) (*regexp.Regexp, error) {
	normalized := strings.ReplaceAll(pattern, backslashConstant, forwardSlashConstant)

	var builder strings.Builder
	builder.WriteString("^")
	if strings.HasPrefix(normalized, forwardSlashConstant) {
		builder.WriteString(forwardSlashConstant)
		normalized = normalized[1:]
	} else {
		builder.WriteString(forwardSlashConstant)
		builder.WriteString(unanchoredPrefixExpression)
	}

	for index := 0; index < len(normalized); {
		switch {
		case strings.HasPrefix(normalized[index:], "/**"):
			// A segment separator followed by ** absorbs the slash so the
			// zero-depth form still matches.
			if index+3 == len(normalized) {
				builder.WriteString(optionalTailExpression)
				index += 3
				continue
			}
			builder.WriteString(forwardSlashConstant)
			index++
		case strings.HasPrefix(normalized[index:], "**"):
			if strings.HasPrefix(normalized[index+2:], forwardSlashConstant) {
				builder.WriteString(anyDepthExpression)
				index += 3
				continue
			}
			builder.WriteString(anyDepthTailExpression)
			index += 2
		case normalized[index] == '*':
			builder.WriteString(singleSegmentExpression)
			index++
		case normalized[index] == '?':
			builder.WriteString(singleCharacterExpression)
			index++
		default:
			builder.WriteString(regexp.QuoteMeta(string(normalized[index])))
			index++
		}
	}
	builder.WriteString("$")

	return regexp.Compile(builder.String())
}
