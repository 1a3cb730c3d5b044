package compose

import (
	"fmt"

	"github.com/leijurv/jpeg_drop_go/jpegtran"
)

// Step identifies a stage of a composition
type Step int

const (
	StepAlignSource Step = iota + 1
	StepAlignPatch
	StepLayout
	StepExpand
	StepPlace
)

func (s Step) String() string {
	switch s {
	case StepAlignSource:
		return "align source"
	case StepAlignPatch:
		return "align patch"
	case StepLayout:
		return "layout"
	case StepExpand:
		return "expand canvas"
	case StepPlace:
		return "place patch"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// StepError records which step of a composition failed
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ErrMCUMismatch is returned under MCURequireMatch when the source and patch
// have different MCU sizes. It matches jpegtran.ErrAlignment.
var ErrMCUMismatch = &jpegtran.Error{
	Kind:    jpegtran.KindAlignment,
	Message: "source and patch MCU sizes differ",
}
