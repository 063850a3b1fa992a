// Package validator provides composable validation rules for request input.
//
// Rules are plain values combined through Apply, which collects every failed
// rule into a ValidationErrors value usable both for errors.As branching and
// for building per-field HTTP error details:
//
//	err := validator.Apply(
//	    validator.ValidEmail("email", email),
//	    validator.RequiredString("full_name", name),
//	)
package validator
