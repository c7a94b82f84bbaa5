package astarteerrors

import (
	"github.com/hashicorp/go-multierror"
)

// ValidationBuilder accumulates every schema-validation failure found while
// walking an interface's mappings, instead of stopping at the first one.
// Adapted from the teacher's util.ValidationBuilder, backed by
// hashicorp/go-multierror so each accumulated failure keeps its own Error
// (and therefore its own Kind/Interface/Path context) instead of collapsing
// into a joined string.
type ValidationBuilder struct {
	merr *multierror.Error
}

// Add appends an error if condition is false.
func (v *ValidationBuilder) Add(condition bool, err error) *ValidationBuilder {
	if !condition {
		v.merr = multierror.Append(v.merr, err)
	}
	return v
}

// AddError appends an error unconditionally.
func (v *ValidationBuilder) AddError(err error) *ValidationBuilder {
	v.merr = multierror.Append(v.merr, err)
	return v
}

// HasErrors reports whether any error has been accumulated.
func (v *ValidationBuilder) HasErrors() bool {
	return v.merr != nil && v.merr.Len() > 0
}

// Build returns nil if no errors were accumulated, or the accumulated
// multierror otherwise.
func (v *ValidationBuilder) Build() error {
	if !v.HasErrors() {
		return nil
	}
	return v.merr.ErrorOrNil()
}
