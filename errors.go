package county

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. Every typed error below unwraps to one of them.
var (
	// ErrUnresolvedEntity: a source label matches no canonical entity after corrections.
	ErrUnresolvedEntity = errors.New("unresolved entity")

	// ErrAmbiguousEntity: a label matches more than one canonical entity without a split marker.
	ErrAmbiguousEntity = errors.New("ambiguous entity")

	// ErrZeroWeightGroup: apportionment over a group whose weights sum to zero.
	ErrZeroWeightGroup = errors.New("zero weight group")

	// ErrConfiguration: an internal contract violation (collisions, bad boundaries, missing policy...).
	ErrConfiguration = errors.New("configuration error")
)

// EntityError reports a label that could not be mapped to exactly one canonical entity.
type EntityError struct {
	Source     string
	Label      string
	State      string
	Candidates []int
	Err        error
}

func (e *EntityError) Error() string {
	var b strings.Builder
	if e.Source != "" {
		fmt.Fprintf(&b, "%s: ", e.Source)
	}

	fmt.Fprintf(&b, "%v: label %q", e.Err, e.Label)
	if e.State != "" {
		fmt.Fprintf(&b, " state %s", e.State)
	}

	if len(e.Candidates) > 0 {
		ids := make([]string, len(e.Candidates))
		for ind, id := range e.Candidates {
			ids[ind] = FormatID(id)
		}

		fmt.Fprintf(&b, " candidates [%s]", strings.Join(ids, ","))
	}

	return b.String()
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

func unresolved(source, label, state string) error {
	return &EntityError{Source: source, Label: label, State: state, Err: ErrUnresolvedEntity}
}

func ambiguous(source, label, state string, candidates []int) error {
	return &EntityError{Source: source, Label: label, State: state, Candidates: candidates, Err: ErrAmbiguousEntity}
}

// GroupError reports an aggregate that could not be apportioned.
type GroupError struct {
	Source string
	Field  string
	Group  []int
	Err    error
}

func (e *GroupError) Error() string {
	ids := make([]string, len(e.Group))
	for ind, id := range e.Group {
		ids[ind] = FormatID(id)
	}

	msg := fmt.Sprintf("%v: field %s group [%s]", e.Err, e.Field, strings.Join(ids, ","))
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}

	return msg
}

func (e *GroupError) Unwrap() error {
	return e.Err
}

// ConfigError is an ErrConfiguration with the context needed to find the offending declaration.
type ConfigError struct {
	Source string
	Column string
	Reason string
}

func (e *ConfigError) Error() string {
	msg := ErrConfiguration.Error()
	if e.Source != "" {
		msg += ": source " + e.Source
	}

	if e.Column != "" {
		msg += ": column " + e.Column
	}

	return msg + ": " + e.Reason
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

func configErr(source, column, format string, args ...any) error {
	return &ConfigError{Source: source, Column: column, Reason: fmt.Sprintf(format, args...)}
}
