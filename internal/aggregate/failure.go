package aggregate

import (
	"fmt"
	"strings"
)

const (
	buildFailureMessageTemplate = "Build Failed. The following audits failed: %s\nLocal json: %s\nOnline json: %s"
	failedAuditSeparatorConstant = ", "
	onlineUnavailableConstant    = "unavailable"
	jsonSuffixConstant           = ".json"
)

// BuildFailure is raised once per run when any audit result carries a FAIL
// status. It lists every failing module:name pair and both report
// locations.
type BuildFailure struct {
	FailedAudits []string
	LocalPath    string
	OnlineURL    string
}

// Error renders the build failure message.
func (failure *BuildFailure) Error() string {
	return fmt.Sprintf(
		buildFailureMessageTemplate,
		strings.Join(failure.FailedAudits, failedAuditSeparatorConstant),
		failure.LocalPath,
		onlineLocation(failure.OnlineURL),
	)
}

// onlineLocation suffixes the upload URL with .json, or reports it
// unavailable when the upload produced nothing.
func onlineLocation(uploadURL string) string {
	trimmed := strings.TrimSpace(uploadURL)
	if len(trimmed) == 0 {
		return onlineUnavailableConstant
	}
	if strings.HasSuffix(trimmed, jsonSuffixConstant) {
		return trimmed
	}
	return trimmed + jsonSuffixConstant
}
