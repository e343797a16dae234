package compilation

import (
	"go.uber.org/zap"

	"github.com/temirov/testgate/internal/gate"
)

const (
	auditNameConstant            = "CompilationAudit"
	auditToleranceConstant       = 0
	findingsParsedMessageConstant = "compilation findings parsed"
	logFieldModuleConstant        = "module"
	logFieldFindingCountConstant  = "finding_count"
)

// Audit converts the captured compiler stderr into a verdict. Any finding
// fails the audit; tolerance is always zero.
type Audit struct {
	moduleName string
	capture    *Capture
	parser     *Parser
	logger     *zap.Logger
}

// NewAudit constructs a compilation audit over the provided capture buffer.
func NewAudit(moduleName string, moduleDirectory string, capture *Capture, logger *zap.Logger) *Audit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Audit{
		moduleName: moduleName,
		capture:    capture,
		parser:     NewParser(moduleDirectory),
		logger:     logger,
	}
}

// Name identifies the audit.
func (audit *Audit) Name() string {
	return auditNameConstant
}

// Check parses the captured stderr and reports the verdict through the
// callback.
func (audit *Audit) Check(callback gate.ResultCallback) error {
	findings := audit.parser.Parse(audit.capture.Contents())

	audit.logger.Debug(
		findingsParsedMessageConstant,
		zap.String(logFieldModuleConstant, audit.moduleName),
		zap.Int(logFieldFindingCountConstant, len(findings)),
	)

	status := gate.StatusPass
	if len(findings) > 0 {
		status = gate.StatusFail
	}

	callback(gate.NewListResult(audit.moduleName, auditNameConstant, findings, auditToleranceConstant, status))
	return nil
}
