// Package validation provides the argument checks shared by constructors and
// configuration loaders in this module.
//
// Every check returns a *errors.ValidationError so callers can match failures
// with errors.Is(err, errors.ErrInvalidConfiguration).
package validation
