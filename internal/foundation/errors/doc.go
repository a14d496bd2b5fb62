// Package errors provides the classified error primitives used across sitehub.
//
// A ClassifiedError carries a category, a severity, a retry hint and a small
// structured context. Errors are built with the fluent ErrorBuilder:
//
//	err := errors.RemoteError("construct deployment manager").
//		WithContext("site", name).
//		WithCause(cause).
//		Build()
//
// HTTPErrorAdapter and CLIErrorAdapter turn classified errors into status codes
// and exit codes for the admin server and the command line respectively.
package errors
