package research

import "errors"

var (
	// ErrEmptyQuestion is returned by Run for a blank question
	ErrEmptyQuestion = errors.New("research question must not be empty")
	// ErrRunInProgress is returned when Run is called while another run is active
	ErrRunInProgress = errors.New("a research run is already in progress")
)
