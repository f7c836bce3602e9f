package agent

import (
	"fmt"
	"strconv"

	"github.com/polzovatel/paged-sum-solver/internal/browser"
)

// ActionKind selects which paginator control reaches a page.
type ActionKind int

const (
	ActionDirectPage ActionKind = iota + 1
	ActionAdvanceGroup
)

// Action is a navigation step towards Page.
type Action struct {
	Kind ActionKind
	Page int
}

func DirectPage(page int) Action { return Action{Kind: ActionDirectPage, Page: page} }

func AdvanceGroup(page int) Action { return Action{Kind: ActionAdvanceGroup, Page: page} }

func (a Action) String() string {
	switch a.Kind {
	case ActionDirectPage:
		return fmt.Sprintf("page link %d", a.Page)
	case ActionAdvanceGroup:
		return "next group"
	default:
		return "unknown action"
	}
}

// Target is the control to click. Page links are matched by their exact label.
func (a Action) Target(nextGroupLabel string) browser.Target {
	if a.Kind == ActionAdvanceGroup {
		return browser.Target{Role: "link", Name: nextGroupLabel}
	}
	return browser.Target{Role: "link", Name: strconv.Itoa(a.Page), Exact: true}
}

// Plan maps a page to the control that reaches it. The paginator shows
// groupSize page links at a time, so the first page of every group after the
// first is reached through the group-advance control.
func Plan(page, groupSize int) (Action, error) {
	if groupSize <= 0 {
		return Action{}, fmt.Errorf("%w: group size must be positive, got %d", ErrInvalidConfig, groupSize)
	}
	if page <= 1 {
		return Action{}, fmt.Errorf("%w: page %d needs no navigation", ErrInvalidConfig, page)
	}
	if (page-1)%groupSize == 0 {
		return AdvanceGroup(page), nil
	}
	return DirectPage(page), nil
}

type Planner interface {
	Plan(page int) (Action, error)
}

type groupPlanner struct {
	groupSize int
}

func NewPlanner(groupSize int) (Planner, error) {
	if groupSize <= 0 {
		return nil, fmt.Errorf("%w: group size must be positive, got %d", ErrInvalidConfig, groupSize)
	}
	return &groupPlanner{groupSize: groupSize}, nil
}

func (p *groupPlanner) Plan(page int) (Action, error) {
	return Plan(page, p.groupSize)
}
