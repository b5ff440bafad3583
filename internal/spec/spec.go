// Package spec holds the declarative command plan produced by the
// intent layer: one or more CRUD-like steps with filters, limits and
// inter-step data dependencies. Values are validated at construction
// so nothing malformed reaches the query or execution layers.
package spec

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNoSteps        = errors.New("specification must have at least one step")
	ErrSimpleMultiple = errors.New("simple specifications must have exactly one step")
)

type FilterType string

const (
	FilterIsOverdue       FilterType = "is_overdue"
	FilterIsToday         FilterType = "is_today"
	FilterIsCompleted     FilterType = "is_completed"
	FilterPriorityMin     FilterType = "priority_min"
	FilterPriorityMax     FilterType = "priority_max"
	FilterPriorityEquals  FilterType = "priority_equals"
	FilterCategory        FilterType = "category"
	FilterStatus          FilterType = "status"
	FilterKeyword         FilterType = "keyword"
	FilterScheduledAfter  FilterType = "scheduled_after"
	FilterScheduledBefore FilterType = "scheduled_before"
	FilterCreatedAfter    FilterType = "created_after"
	FilterCreatedBefore   FilterType = "created_before"
)

// AllowedFilterTypes is the closed whitelist. Anything outside it is
// rejected before a filter can touch a query.
var AllowedFilterTypes = map[FilterType]bool{
	FilterIsOverdue:       true,
	FilterIsToday:         true,
	FilterIsCompleted:     true,
	FilterPriorityMin:     true,
	FilterPriorityMax:     true,
	FilterPriorityEquals:  true,
	FilterCategory:        true,
	FilterStatus:          true,
	FilterKeyword:         true,
	FilterScheduledAfter:  true,
	FilterScheduledBefore: true,
	FilterCreatedAfter:    true,
	FilterCreatedBefore:   true,
}

// Filter is one declared predicate. Value is interpreted per type by
// the query layer, which re-validates it.
type Filter struct {
	Type  FilterType `json:"type"`
	Value any        `json:"value,omitempty"`
}

func NewFilter(t FilterType, value any) (Filter, error) {
	f := Filter{Type: t, Value: value}
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func (f Filter) Validate() error {
	if !AllowedFilterTypes[f.Type] {
		return fmt.Errorf("invalid filter type %q", f.Type)
	}
	return nil
}

type Operation string

const (
	OpCreate      Operation = "create"
	OpRead        Operation = "read"
	OpUpdate      Operation = "update"
	OpDelete      Operation = "delete"
	OpUpdateBatch Operation = "update_batch"
)

func (o Operation) Valid() bool {
	switch o {
	case OpCreate, OpRead, OpUpdate, OpDelete, OpUpdateBatch:
		return true
	}
	return false
}

type Selector string

const (
	SelectorNone    Selector = ""
	SelectorFirstN  Selector = "first_N"
	SelectorLastN   Selector = "last_N"
	SelectorByIndex Selector = "by_index"
)

// Step is a single operation within a plan. SaveResultAs and
// UseResultFrom name entries in the per-execution context; Index is
// 1-based and only meaningful with SelectorByIndex.
type Step struct {
	Order         int            `json:"order"`
	Operation     Operation      `json:"operation"`
	Params        map[string]any `json:"params,omitempty"`
	Filters       []Filter       `json:"filters,omitempty"`
	Limit         int            `json:"limit,omitempty"`
	SaveResultAs  string         `json:"save_result_as,omitempty"`
	UseResultFrom string         `json:"use_result_from,omitempty"`
	Selector      Selector       `json:"selector,omitempty"`
	Index         int            `json:"index,omitempty"`
	Modifications map[string]any `json:"modifications,omitempty"`
}

func (s Step) Validate() error {
	if !s.Operation.Valid() {
		return fmt.Errorf("unknown operation %q", s.Operation)
	}
	for _, f := range s.Filters {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", s.Order, err)
		}
	}
	if s.Limit < 0 {
		return fmt.Errorf("step %d: limit must not be negative", s.Order)
	}
	switch s.Selector {
	case SelectorNone, SelectorFirstN, SelectorLastN:
	case SelectorByIndex:
		if s.Index == 0 {
			return fmt.Errorf("step %d: selector by_index requires an index", s.Order)
		}
	default:
		return fmt.Errorf("step %d: unknown selector %q", s.Order, s.Selector)
	}
	if s.Selector != SelectorByIndex && s.Index != 0 {
		return fmt.Errorf("step %d: index is only valid with selector by_index", s.Order)
	}
	if s.Operation == OpUpdateBatch && s.UseResultFrom == "" {
		return fmt.Errorf("step %d: update_batch requires use_result_from", s.Order)
	}
	return nil
}

type Complexity string

const (
	ComplexitySimple      Complexity = "simple"
	ComplexityMultiStep   Complexity = "multi_step"
	ComplexityInteractive Complexity = "interactive"
)

type Strategy string

const (
	StrategySequential  Strategy = "sequential"
	StrategyInteractive Strategy = "interactive"
)

// Specification is the complete plan handed to the executor.
type Specification struct {
	Complexity      Complexity `json:"complexity"`
	Strategy        Strategy   `json:"strategy"`
	Steps           []Step     `json:"steps"`
	NaturalResponse string     `json:"natural_response"`
}

func (s Specification) Validate() error {
	switch s.Complexity {
	case ComplexitySimple, ComplexityMultiStep, ComplexityInteractive:
	default:
		return fmt.Errorf("unknown complexity %q", s.Complexity)
	}
	switch s.Strategy {
	case StrategySequential, StrategyInteractive:
	default:
		return fmt.Errorf("unknown strategy %q", s.Strategy)
	}
	if len(s.Steps) == 0 {
		return ErrNoSteps
	}
	if s.Complexity == ComplexitySimple && len(s.Steps) > 1 {
		return ErrSimpleMultiple
	}
	for _, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Decode parses producer output and validates it. The producer is
// untrusted; a structurally malformed plan never leaves this function.
func Decode(raw []byte) (Specification, error) {
	var s Specification
	if err := json.Unmarshal(raw, &s); err != nil {
		return Specification{}, fmt.Errorf("decode specification: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Specification{}, err
	}
	return s, nil
}
