package runner

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/testgate/internal/aggregate"
)

const (
	auditStartedMessageConstant  = "audit started"
	auditFinishedMessageConstant = "audit finished"
	logFieldModuleConstant       = "module"
	logFieldAuditConstant        = "audit"
)

// Service executes audit catalogs and funnels results into the aggregator.
type Service struct {
	aggregator *aggregate.Aggregator
	logger     *zap.Logger
}

// NewService constructs a Service around the provided aggregator.
func NewService(aggregator *aggregate.Aggregator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{aggregator: aggregator, logger: logger}
}

// Run builds the catalog for every target and executes all audits
// concurrently. Processing errors abort the run without closing the
// aggregator; verdicts are gated by Close.
func (service *Service) Run(executionContext context.Context, targets []ModuleTarget, configuration Configuration) error {
	group, groupContext := errgroup.WithContext(executionContext)

	for _, target := range targets {
		catalog, catalogError := BuildCatalog(target, configuration, service.logger)
		if catalogError != nil {
			return catalogError
		}
		for _, moduleAudit := range catalog {
			moduleName := target.Name
			scheduledAudit := moduleAudit
			group.Go(func() error {
				if contextError := groupContext.Err(); contextError != nil {
					return contextError
				}
				service.logger.Debug(
					auditStartedMessageConstant,
					zap.String(logFieldModuleConstant, moduleName),
					zap.String(logFieldAuditConstant, scheduledAudit.Name()),
				)
				checkError := scheduledAudit.Check(service.aggregator.Enqueue)
				service.logger.Debug(
					auditFinishedMessageConstant,
					zap.String(logFieldModuleConstant, moduleName),
					zap.String(logFieldAuditConstant, scheduledAudit.Name()),
				)
				return checkError
			})
		}
	}

	if waitError := group.Wait(); waitError != nil {
		return waitError
	}

	return service.aggregator.Close()
}
