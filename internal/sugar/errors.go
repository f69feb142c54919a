package sugar

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

var ErrAborted = errors.New("aborted")

// ErrorModel is a Bubble Tea model that can finish with an error, which
// tea.Program.Run has no way to report on its own.
type ErrorModel interface {
	tea.Model
	GetError() error
}

func RunProgramWithErrors(model ErrorModel, opts ...tea.ProgramOption) (resultModel tea.Model, err error) {
	resultModel, teaErr := tea.NewProgram(model, opts...).Run()
	if errorModel, ok := resultModel.(ErrorModel); ok {
		err = errorModel.GetError()
	}

	// Bubble Tea errors override custom errors
	if teaErr != nil {
		err = teaErr
	}

	return
}
