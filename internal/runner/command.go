package runner

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/testgate/internal/aggregate"
	"github.com/temirov/testgate/internal/console"
	"github.com/temirov/testgate/internal/gate"
	"github.com/temirov/testgate/internal/upload"
	"github.com/temirov/testgate/internal/utils"
)

const (
	commandNameConstant             = "check"
	commandShortDescriptionConstant = "Run the audit catalog over one or more module directories"
	commandLongDescriptionConstant  = "check runs every configured audit over the named module directories, writes the canonical JSON report, optionally uploads it, and fails when any audit fails."

	flagReportName            = "report"
	flagReportDescription     = "Override the report output path."
	flagSkipUploadName        = "skip-upload"
	flagSkipUploadDescription = "Disable the report upload for this run."
	flagModuleNameName        = "module-name"
	flagModuleNameDescription = "Override the module name reported for a single module directory."
	flagCompilerLogName       = "compiler-log"
	flagCompilerLogDescription = "Captured compiler stderr file replayed into the compilation audit (repeatable)."

	defaultModuleDirectoryConstant   = "."
	moduleDirectoryMissingMessage    = "module directory not found"
	moduleNameFlagConflictMessage    = "--module-name requires exactly one module directory"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the run configuration resolved by the CLI.
type ConfigurationProvider func() Configuration

// CommandBuilder assembles the check Cobra command with configurable
// dependencies.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Uploader              aggregate.Uploader
}

// Build constructs the check command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(flagReportName, "", flagReportDescription)
	command.Flags().Bool(flagSkipUploadName, false, flagSkipUploadDescription)
	command.Flags().String(flagModuleNameName, "", flagModuleNameDescription)
	command.Flags().StringSlice(flagCompilerLogName, nil, flagCompilerLogDescription)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration().sanitize()

	reportOverride, _ := command.Flags().GetString(flagReportName)
	if len(reportOverride) > 0 {
		configuration.Report.Path = reportOverride
	}
	skipUpload, _ := command.Flags().GetBool(flagSkipUploadName)
	if skipUpload {
		configuration.Report.UploadEnabled = false
	}
	moduleNameOverride, _ := command.Flags().GetString(flagModuleNameName)
	compilerLogPaths, _ := command.Flags().GetStringSlice(flagCompilerLogName)

	targets, targetsError := resolveTargets(arguments, moduleNameOverride, compilerLogPaths)
	if targetsError != nil {
		return targetsError
	}

	uploader := builder.Uploader
	if uploader == nil {
		uploader = upload.NewHTTPUploader(configuration.Report.UploadEndpoint)
	}

	aggregator := aggregate.NewAggregator(configuration.Report.Path, configuration.Report.UploadEnabled, uploader, logger)
	service := NewService(aggregator, logger)

	runError := service.Run(command.Context(), targets, configuration)

	console.NewRenderer(utils.NewFlushingWriter(command.OutOrStdout())).RenderSummary(aggregator.Snapshot())

	return runError
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return DefaultConfiguration()
	}
	return builder.ConfigurationProvider()
}

// resolveTargets validates the module directories and derives their
// reported names.
func resolveTargets(arguments []string, moduleNameOverride string, compilerLogPaths []string) ([]ModuleTarget, error) {
	directories := arguments
	if len(directories) == 0 {
		directories = []string{defaultModuleDirectoryConstant}
	}
	if len(moduleNameOverride) > 0 && len(directories) != 1 {
		return nil, errors.New(moduleNameFlagConflictMessage)
	}

	var targets []ModuleTarget
	for _, directory := range directories {
		absoluteDirectory, absoluteError := filepath.Abs(directory)
		if absoluteError != nil {
			return nil, gate.NewProcessingError(moduleDirectoryMissingMessage, directory, absoluteError)
		}
		if !directoryExists(absoluteDirectory) {
			return nil, gate.NewProcessingError(moduleDirectoryMissingMessage, directory, nil)
		}
		moduleName := moduleNameOverride
		if len(moduleName) == 0 {
			moduleName = ":" + filepath.Base(absoluteDirectory)
		}
		targets = append(targets, ModuleTarget{
			Name:             moduleName,
			Directory:        absoluteDirectory,
			CompilerLogPaths: compilerLogPaths,
		})
	}
	return targets, nil
}
