package agent

import (
	"errors"
	"fmt"

	"github.com/polzovatel/paged-sum-solver/internal/config"
)

var (
	// ErrInvalidConfig is the same sentinel config.Validate wraps.
	ErrInvalidConfig     = config.ErrInvalid
	ErrNavigationTimeout = errors.New("navigation timeout")
	ErrItemParse         = errors.New("item is not an integer")
	ErrSubmissionTimeout = errors.New("submission timeout")
)

// NavigationTimeoutError reports a planned action whose data response never arrived.
type NavigationTimeoutError struct {
	Page    int
	Action  Action
	Pattern string
	Err     error
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("page %d: no response matching %s after %s: %v", e.Page, e.Pattern, e.Action, e.Err)
}

func (e *NavigationTimeoutError) Is(target error) bool { return target == ErrNavigationTimeout }

func (e *NavigationTimeoutError) Unwrap() error { return e.Err }

// ItemParseError carries the raw text of an item that is not an integer literal.
type ItemParseError struct {
	Raw string
	Err error
}

func (e *ItemParseError) Error() string {
	return fmt.Sprintf("item %q is not an integer: %v", e.Raw, e.Err)
}

func (e *ItemParseError) Is(target error) bool { return target == ErrItemParse }

func (e *ItemParseError) Unwrap() error { return e.Err }

type SubmissionTimeoutError struct {
	Total    int
	Selector string
	Err      error
}

func (e *SubmissionTimeoutError) Error() string {
	return fmt.Sprintf("submitted %d but %s never appeared: %v", e.Total, e.Selector, e.Err)
}

func (e *SubmissionTimeoutError) Is(target error) bool { return target == ErrSubmissionTimeout }

func (e *SubmissionTimeoutError) Unwrap() error { return e.Err }

// Stage names the step of a page that failed.
type Stage string

const (
	StagePlan     Stage = "plan"
	StageNavigate Stage = "navigate"
	StageExtract  Stage = "extract"
	StageFold     Stage = "fold"
	StageSubmit   Stage = "submit"
)

// PageError is what Run returns on abort: which page, which step, which action.
type PageError struct {
	Page   int
	Stage  Stage
	Action *Action
	Err    error
}

func (e *PageError) Error() string {
	if e.Action != nil {
		return fmt.Sprintf("page %d %s (%s): %v", e.Page, e.Stage, e.Action, e.Err)
	}
	return fmt.Sprintf("page %d %s: %v", e.Page, e.Stage, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }
