package aggregate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/testgate/internal/gate"
)

const (
	reportWriteFailureMessageConstant  = "unable to write audit report"
	uploadFailureMessageConstant       = "audit report upload failed"
	enqueueAfterCloseMessageConstant   = "audit result enqueued after snapshot; dropping"
	auditsPassedMessageConstant        = "all audits passed"
	reportDirectoryPermissionsConstant = 0o755
	reportFilePermissionsConstant      = 0o644
	logFieldModuleConstant             = "module"
	logFieldAuditConstant              = "audit"
	logFieldReportPathConstant         = "report_path"
	logFieldResultCountConstant        = "result_count"
	failedAuditPairTemplateConstant    = "%s:%s"
)

// Uploader publishes the pretty JSON report and returns its URL. An empty
// URL or an error marks the online report unavailable.
type Uploader interface {
	Upload(prettyJSON string) (string, error)
}

// Aggregator is the multi-producer, single-consumer sink for audit
// results. Enqueue is safe for concurrent use; Close runs once at
// end-of-build and is idempotent on its snapshot.
type Aggregator struct {
	mutex           sync.Mutex
	results         []gate.AuditResult
	snapshot        []gate.AuditResult
	snapshotTaken   bool
	uploadAttempted bool
	uploadedURL     string

	reportPath    string
	uploadEnabled bool
	uploader      Uploader
	logger        *zap.Logger
}

// NewAggregator constructs an aggregator writing to the given report path.
func NewAggregator(reportPath string, uploadEnabled bool, uploader Uploader, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		reportPath:    reportPath,
		uploadEnabled: uploadEnabled,
		uploader:      uploader,
		logger:        logger,
	}
}

// Enqueue appends one audit result in arrival order.
func (aggregator *Aggregator) Enqueue(result gate.AuditResult) {
	aggregator.mutex.Lock()
	defer aggregator.mutex.Unlock()
	if aggregator.snapshotTaken {
		aggregator.logger.Warn(
			enqueueAfterCloseMessageConstant,
			zap.String(logFieldModuleConstant, result.Module),
			zap.String(logFieldAuditConstant, result.Name),
		)
		return
	}
	aggregator.results = append(aggregator.results, result)
}

// Close snapshots the enqueued results, writes the JSON report, dispatches
// the optional upload, and returns a BuildFailure when any audit failed.
// An empty queue is a silent no-op. Calling Close again re-evaluates the
// same snapshot without re-uploading.
func (aggregator *Aggregator) Close() error {
	snapshot := aggregator.takeSnapshot()
	if len(snapshot) == 0 {
		return nil
	}

	prettyJSON := SerializeResults(snapshot)

	if writeError := aggregator.writeReport(prettyJSON); writeError != nil {
		return writeError
	}

	aggregator.dispatchUpload(prettyJSON)

	var failedAudits []string
	for _, result := range snapshot {
		if result.Status == gate.StatusFail {
			failedAudits = append(failedAudits, fmt.Sprintf(failedAuditPairTemplateConstant, result.Module, result.Name))
		}
	}
	if len(failedAudits) > 0 {
		return &BuildFailure{
			FailedAudits: failedAudits,
			LocalPath:    aggregator.reportPath,
			OnlineURL:    aggregator.uploadedURL,
		}
	}

	aggregator.logger.Info(
		auditsPassedMessageConstant,
		zap.Int(logFieldResultCountConstant, len(snapshot)),
		zap.String(logFieldReportPathConstant, aggregator.reportPath),
	)
	return nil
}

// Snapshot returns the results captured by Close, in enqueue order. It is
// empty until Close runs.
func (aggregator *Aggregator) Snapshot() []gate.AuditResult {
	aggregator.mutex.Lock()
	defer aggregator.mutex.Unlock()
	return append([]gate.AuditResult{}, aggregator.snapshot...)
}

func (aggregator *Aggregator) takeSnapshot() []gate.AuditResult {
	aggregator.mutex.Lock()
	defer aggregator.mutex.Unlock()
	if !aggregator.snapshotTaken {
		aggregator.snapshot = append([]gate.AuditResult{}, aggregator.results...)
		aggregator.snapshotTaken = true
	}
	return aggregator.snapshot
}

func (aggregator *Aggregator) writeReport(prettyJSON string) error {
	reportDirectory := filepath.Dir(aggregator.reportPath)
	if mkdirError := os.MkdirAll(reportDirectory, reportDirectoryPermissionsConstant); mkdirError != nil {
		return gate.NewProcessingError(reportWriteFailureMessageConstant, aggregator.reportPath, mkdirError)
	}
	if writeError := os.WriteFile(aggregator.reportPath, []byte(prettyJSON), reportFilePermissionsConstant); writeError != nil {
		return gate.NewProcessingError(reportWriteFailureMessageConstant, aggregator.reportPath, writeError)
	}
	return nil
}

// dispatchUpload runs at most once per aggregator; upload errors are
// warnings, never fatal.
func (aggregator *Aggregator) dispatchUpload(prettyJSON string) {
	if !aggregator.uploadEnabled || aggregator.uploader == nil || aggregator.uploadAttempted {
		return
	}
	aggregator.uploadAttempted = true
	uploadedURL, uploadError := aggregator.uploader.Upload(prettyJSON)
	if uploadError != nil {
		aggregator.logger.Warn(uploadFailureMessageConstant, zap.Error(uploadError))
		return
	}
	aggregator.uploadedURL = uploadedURL
}
