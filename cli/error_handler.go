package cli

import (
	"fmt"
	"io"

	"github.com/grovetools/gcpd/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to out
func NewErrorHandler(verbose bool, out io.Writer) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     out,
	}
}

// Handle prints a message tailored to the error's code and returns err.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "%s configuration not found. Create gcpd.yml or pass -g and -b.\n", errorStyle.Render("Error:"))

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.Out, "%s %v\n", errorStyle.Render("Error:"), err)
		fmt.Fprintf(h.Out, "Run 'gcpd config validate' to check the configuration file.\n")

	case errors.ErrCodeInstanceRunning:
		if gcpdErr, ok := err.(*errors.GcpdError); ok {
			fmt.Fprintf(h.Out, "%s gcpd is already serving branch %v (PID %v)\n", errorStyle.Render("Error:"),
				gcpdErr.Details["branch"], gcpdErr.Details["pid"])
		}

	case errors.ErrCodeCommandFailed:
		if gcpdErr, ok := err.(*errors.GcpdError); ok {
			fmt.Fprintf(h.Out, "%s '%v' failed\n", errorStyle.Render("Error:"), gcpdErr.Details["command"])
		}

	default:
		fmt.Fprintf(h.Out, "%s %v\n", errorStyle.Render("Error:"), err)
	}

	if h.Verbose {
		if gcpdErr, ok := err.(*errors.GcpdError); ok {
			fmt.Fprintf(h.Out, "\nError details:\n%s\n", gcpdErr.ToJSON())
		}
	}
	return err
}
