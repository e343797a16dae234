package gate

// Status enumerates the two possible audit verdicts.
type Status string

// Audit verdict values.
const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// Finding describes a single rule violation reported by an audit.
//
// FilePath, Line, and Severity are optional; the zero value marks them
// absent and they serialize as JSON null. Line numbers are 1-based.
type Finding struct {
	Type       string
	FilePath   string
	Line       int
	Severity   string
	Message    string
	Stacktrace []string
}

// AuditResult carries the verdict of one audit execution over one module.
//
// FindingCount usually equals len(Findings); audits that derive a numeric
// verdict (branch coverage percent) store the derived value instead.
type AuditResult struct {
	Module       string
	Name         string
	Findings     []Finding
	Tolerance    int
	FindingCount float64
	Status       Status
}

// ResultCallback receives exactly one AuditResult per audit execution.
type ResultCallback func(result AuditResult)

// Audit is the uniform contract every audit implements. Check invokes the
// callback exactly once when the audit reaches a verdict, including a
// zero-finding PASS. When the audit cannot process its input it returns a
// processing error and never invokes the callback.
type Audit interface {
	Name() string
	Check(callback ResultCallback) error
}

// NewListResult builds an AuditResult whose FindingCount is the findings
// list length.
func NewListResult(moduleName string, auditName string, findings []Finding, tolerance int, status Status) AuditResult {
	return AuditResult{
		Module:       moduleName,
		Name:         auditName,
		Findings:     findings,
		Tolerance:    tolerance,
		FindingCount: float64(len(findings)),
		Status:       status,
	}
}
