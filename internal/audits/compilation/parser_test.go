package compilation_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/testgate/internal/audits/compilation"
	"github.com/temirov/testgate/internal/gate"
)

func TestParseRecognizesThreeOrigins(testInstance *testing.T) {
	moduleDirectory := filepath.FromSlash("/work/module")
	parser := compilation.NewParser(moduleDirectory)

	capturedText := "e: /work/module/src/main/kotlin/App.kt: (12, 8): unresolved reference: frobnicate\n" +
		"/work/module/src/main/java/Legacy.java:4: error: cannot find symbol\n" +
		"e: [kapt] processing halted\n"

	findings := parser.Parse(capturedText)
	require.Len(testInstance, findings, 3)

	require.Equal(testInstance, "src/main/kotlin/App.kt", findings[0].FilePath)
	require.Equal(testInstance, 12, findings[0].Line)
	require.Equal(testInstance, "unresolved reference: frobnicate", findings[0].Message)

	require.Equal(testInstance, "src/main/java/Legacy.java", findings[1].FilePath)
	require.Equal(testInstance, 4, findings[1].Line)

	require.Empty(testInstance, findings[2].FilePath)
	require.Zero(testInstance, findings[2].Line)
	require.Equal(testInstance, "processing halted", findings[2].Message)
}

func TestParseKotlinCommandLineAndProcessorLocations(testInstance *testing.T) {
	parser := compilation.NewParser("")

	capturedText := "src/App.kt:3:14: error: type mismatch\n" +
		"[ksp2] src/Gen.kt:8:1: invalid annotation target\n"

	findings := parser.Parse(capturedText)
	require.Len(testInstance, findings, 2)
	require.Equal(testInstance, "src/App.kt", findings[0].FilePath)
	require.Equal(testInstance, 3, findings[0].Line)
	require.Equal(testInstance, "src/Gen.kt", findings[1].FilePath)
	require.Equal(testInstance, 8, findings[1].Line)
}

func TestParseContinuationRules(testInstance *testing.T) {
	parser := compilation.NewParser("")

	capturedText := "Legacy.java:4: error: cannot find symbol\n" +
		"  symbol:   class Missing\n" +
		"  location: class Legacy\n" +
		"\tat com.example.Main.run(Main.java:10)\n" +
		"> Task :module:compileDebugJavaWithJavac\n" +
		"\n" +
		"Other.java:9: error: ';' expected\n"

	findings := parser.Parse(capturedText)
	require.Len(testInstance, findings, 2)

	require.Contains(testInstance, findings[0].Message, "cannot find symbol")
	require.Contains(testInstance, findings[0].Message, "symbol:   class Missing")
	require.Contains(testInstance, findings[0].Message, "location: class Legacy")
	require.Equal(testInstance, []string{
		"at com.example.Main.run(Main.java:10)",
		"> Task :module:compileDebugJavaWithJavac",
	}, findings[0].Stacktrace)

	require.Equal(testInstance, "Other.java", findings[1].FilePath)
}

func TestParseBlankLineFlushesPendingError(testInstance *testing.T) {
	parser := compilation.NewParser("")

	findings := parser.Parse("A.kt:1:1: error: first\n\n  symbol: ignored after flush\n")
	require.Len(testInstance, findings, 1)
	require.Equal(testInstance, "first", findings[0].Message)
}

func TestParseNewStartFlushesPendingError(testInstance *testing.T) {
	parser := compilation.NewParser("")

	findings := parser.Parse("A.kt:1:1: error: first\nB.kt:2:2: error: second\n")
	require.Len(testInstance, findings, 2)
}

func TestParseRunsAreDeterministic(testInstance *testing.T) {
	parser := compilation.NewParser("")
	capturedText := "A.kt:1:1: error: first\n  symbol: x\n\nB.kt:2:2: error: second\n"

	first := parser.Parse(capturedText)
	second := parser.Parse(capturedText)
	require.Equal(testInstance, first, second)
}

func TestCaptureWindowAndConcurrentAppend(testInstance *testing.T) {
	capture := compilation.NewCapture()

	capture.Append("ignored before register\n")
	capture.RegisterCapture()

	var waitGroup sync.WaitGroup
	for workerIndex := 0; workerIndex < 8; workerIndex++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			for lineIndex := 0; lineIndex < 25; lineIndex++ {
				capture.Append("A.kt:1:1: error: concurrent failure\n\n")
			}
		}()
	}
	waitGroup.Wait()

	capture.UnregisterCapture()
	capture.Append("ignored after unregister\n")

	findings := compilation.NewParser("").Parse(capture.Contents())
	require.Len(testInstance, findings, 8*25)
}

func TestAuditVerdicts(testInstance *testing.T) {
	testCases := []struct {
		name           string
		capturedText   string
		expectedStatus gate.Status
		expectedCount  float64
	}{
		{
			name:           "clean_capture_passes",
			capturedText:   "w: some warning\nnote: irrelevant\n",
			expectedStatus: gate.StatusPass,
			expectedCount:  0,
		},
		{
			name:           "any_error_fails",
			capturedText:   "A.kt:1:1: error: broken\n",
			expectedStatus: gate.StatusFail,
			expectedCount:  1,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			capture := compilation.NewCapture()
			capture.RegisterCapture()
			capture.Append(testCase.capturedText)
			capture.UnregisterCapture()

			audit := compilation.NewAudit(":app", "", capture, nil)

			var received []gate.AuditResult
			require.NoError(subtest, audit.Check(func(result gate.AuditResult) {
				received = append(received, result)
			}))

			require.Len(subtest, received, 1)
			require.Equal(subtest, "CompilationAudit", received[0].Name)
			require.Equal(subtest, 0, received[0].Tolerance)
			require.Equal(subtest, testCase.expectedStatus, received[0].Status)
			require.Equal(subtest, testCase.expectedCount, received[0].FindingCount)
		})
	}
}
