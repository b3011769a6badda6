// Package validation contains the logic for binding and validating
// request data.
//
// It uses the `validator` library to enforce rules defined in struct
// tags and turns failures into errs.HTTPError values the client can
// understand.
package validation
