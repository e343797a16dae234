package gate

import "fmt"

const (
	processingErrorWithPathTemplateConstant    = "%s: %s: %v"
	processingErrorWithoutCauseTemplateConstant = "%s: %s"
	processingErrorBareTemplateConstant        = "%s"
)

// ProcessingError reports that an audit could not process its input. It is
// distinct from a FAIL verdict: a processing error always halts the run.
type ProcessingError struct {
	Message string
	Path    string
	Cause   error
}

// NewProcessingError constructs a ProcessingError naming the offending path
// and preserving the original cause.
func NewProcessingError(message string, path string, cause error) *ProcessingError {
	return &ProcessingError{Message: message, Path: path, Cause: cause}
}

// Error renders the processing error message.
func (processingError *ProcessingError) Error() string {
	switch {
	case len(processingError.Path) > 0 && processingError.Cause != nil:
		return fmt.Sprintf(processingErrorWithPathTemplateConstant, processingError.Message, processingError.Path, processingError.Cause)
	case len(processingError.Path) > 0:
		return fmt.Sprintf(processingErrorWithoutCauseTemplateConstant, processingError.Message, processingError.Path)
	case processingError.Cause != nil:
		return fmt.Sprintf(processingErrorWithoutCauseTemplateConstant, processingError.Message, processingError.Cause)
	default:
		return fmt.Sprintf(processingErrorBareTemplateConstant, processingError.Message)
	}
}

// Unwrap exposes the original cause for errors.Is and errors.As.
func (processingError *ProcessingError) Unwrap() error {
	return processingError.Cause
}
