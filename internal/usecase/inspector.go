// Package usecase contains application business logic.
package usecase

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/domain"
	"github.com/eliteGoblin/panelmon/internal/policy"
)

// Inspection is the result of describing one UI element: the full
// descriptor, its editability classification, and the rule that decided it.
type Inspection struct {
	Descriptor domain.ElementDescriptor
	TextInput  bool
	Rule       string
}

// Inspector resolves the element behind a focus or click event and
// classifies its editability. Blacklisted processes and window classes are
// rejected before any accessibility call is made.
type Inspector struct {
	tree   domain.WindowTree
	access domain.AccessibilityProvider
	procs  domain.ProcessResolver
	filter *policy.Filter
	rules  *policy.RuleSet
	logger *zap.Logger
}

// NewInspector creates a new element inspector.
func NewInspector(
	tree domain.WindowTree,
	access domain.AccessibilityProvider,
	procs domain.ProcessResolver,
	filter *policy.Filter,
	rules *policy.RuleSet,
	logger *zap.Logger,
) *Inspector {
	return &Inspector{
		tree:   tree,
		access: access,
		procs:  procs,
		filter: filter,
		rules:  rules,
		logger: logger,
	}
}

// Describe resolves the element a focus notification points at.
// Returns domain.ErrElementNotFound for blacklisted, dead, or
// undescribable targets; the caller drops the event.
func (i *Inspector) Describe(window domain.Handle, objectID, childID int32) (*Inspection, error) {
	if window == domain.NoHandle || !i.tree.IsWindow(window) {
		return nil, domain.ErrElementNotFound
	}

	class, pid, procName, err := i.resolveWindow(window)
	if err != nil {
		return nil, err
	}

	elem, err := i.access.ElementFromEvent(window, objectID, childID)
	if err != nil {
		i.logger.Debug("accessibility describe failed",
			zap.Uintptr("hwnd", uintptr(window)),
			zap.String("class", class),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrElementNotFound, err)
	}

	return i.finish(window, class, pid, procName, elem), nil
}

// DescribeAtPoint resolves the element under a screen point. Used for the
// direct-click path, where the click itself names the target.
func (i *Inspector) DescribeAtPoint(pt domain.Point) (*Inspection, error) {
	window := i.tree.WindowAtPoint(pt)
	if window == domain.NoHandle {
		return nil, domain.ErrElementNotFound
	}

	class, pid, procName, err := i.resolveWindow(window)
	if err != nil {
		return nil, err
	}

	elem, err := i.access.ElementAtPoint(pt)
	if err != nil {
		i.logger.Debug("accessibility describe-at-point failed",
			zap.Int32("x", pt.X),
			zap.Int32("y", pt.Y),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrElementNotFound, err)
	}

	return i.finish(window, class, pid, procName, elem), nil
}

// resolveWindow reads class and process identity and applies the cheap
// blacklist rejection before any accessibility traffic.
func (i *Inspector) resolveWindow(window domain.Handle) (class string, pid int32, procName string, err error) {
	class, err = i.tree.ClassName(window)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: class lookup: %v", domain.ErrElementNotFound, err)
	}

	pid, err = i.tree.ProcessID(window)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: pid lookup: %v", domain.ErrElementNotFound, err)
	}

	procName, err = i.procs.Name(pid)
	if err != nil {
		// Process may have exited between the event and now.
		return "", 0, "", fmt.Errorf("%w: process name: %v", domain.ErrElementNotFound, err)
	}

	if i.filter.IsProcessBlocked(procName) || i.filter.IsClassBlocked(class) {
		i.logger.Debug("target rejected by blacklist",
			zap.String("process", procName),
			zap.String("class", class))
		return "", 0, "", domain.ErrElementNotFound
	}

	return class, pid, procName, nil
}

func (i *Inspector) finish(window domain.Handle, class string, pid int32, procName string, elem domain.AccessibleElement) *Inspection {
	desc := domain.ElementDescriptor{
		Window:        window,
		Role:          elem.Role,
		ClassName:     class,
		Name:          elem.Name,
		Bounds:        elem.Bounds,
		Password:      elem.Password,
		Readonly:      elem.Readonly,
		Focusable:     elem.Focusable,
		HasValue:      elem.HasValue,
		EditableChild: elem.EditableChild,
		ProcessID:     pid,
		ProcessName:   procName,
	}

	textInput, rule := i.rules.Classify(desc)
	return &Inspection{
		Descriptor: desc,
		TextInput:  textInput,
		Rule:       rule,
	}
}
