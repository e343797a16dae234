package aggregate_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/testgate/internal/aggregate"
	"github.com/temirov/testgate/internal/gate"
)

func TestSerializeResultsRoundTripsThroughStandardJSON(testInstance *testing.T) {
	results := []gate.AuditResult{
		{
			Module: ":app",
			Name:   "DetektAudit",
			Findings: []gate.Finding{
				{
					Type:     "MagicNumber",
					FilePath: "src/Main.kt",
					Line:     7,
					Severity: "error",
					Message:  "magic \"number\"\twith\ncontrols \x01",
					Stacktrace: []string{
						"at com.example.Main.run(Main.kt:7)",
					},
				},
				{
					Type:    "FtsMissingFts4",
					Message: "module level",
				},
			},
			Tolerance:    10,
			FindingCount: 2,
			Status:       gate.StatusPass,
		},
		{
			Module:       ":lib",
			Name:         "CoverageBranchesAudit",
			Tolerance:    70,
			FindingCount: 60.5,
			Status:       gate.StatusFail,
		},
	}

	serialized := aggregate.SerializeResults(results)

	var decoded []map[string]any
	require.NoError(testInstance, json.Unmarshal([]byte(serialized), &decoded))
	require.Len(testInstance, decoded, 2)

	require.Equal(testInstance, ":app", decoded[0]["module"])
	require.Equal(testInstance, "DetektAudit", decoded[0]["name"])
	require.Equal(testInstance, float64(10), decoded[0]["tolerance"])
	require.Equal(testInstance, float64(2), decoded[0]["findingCount"])
	require.Equal(testInstance, "PASS", decoded[0]["status"])

	findings := decoded[0]["findings"].([]any)
	require.Len(testInstance, findings, 2)

	firstFinding := findings[0].(map[string]any)
	require.Equal(testInstance, "src/Main.kt", firstFinding["filePath"])
	require.Equal(testInstance, float64(7), firstFinding["line"])
	require.Equal(testInstance, "magic \"number\"\twith\ncontrols \x01", firstFinding["message"])

	moduleLevelFinding := findings[1].(map[string]any)
	require.Nil(testInstance, moduleLevelFinding["filePath"])
	require.Nil(testInstance, moduleLevelFinding["line"])
	require.Nil(testInstance, moduleLevelFinding["severity"])
	require.Equal(testInstance, []any{}, moduleLevelFinding["stacktrace"])

	require.Equal(testInstance, float64(60.5), decoded[1]["findingCount"])
}

func TestSerializeResultsEmptyInput(testInstance *testing.T) {
	serialized := aggregate.SerializeResults(nil)

	var decoded []any
	require.NoError(testInstance, json.Unmarshal([]byte(serialized), &decoded))
	require.Empty(testInstance, decoded)
}

func TestEscapeJSONString(testInstance *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "backslash", input: `a\b`, expected: `a\\b`},
		{name: "quote", input: `say "hi"`, expected: `say \"hi\"`},
		{name: "named_controls", input: "\b\f\n\r\t", expected: `\b\f\n\r\t`},
		{name: "other_controls_use_unicode_escape", input: "\x01\x1f", expected: `\u0001\u001f`},
		{name: "plain_text_unchanged", input: "plain text", expected: "plain text"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			require.Equal(subtest, testCase.expected, aggregate.EscapeJSONString(testCase.input))
		})
	}
}
