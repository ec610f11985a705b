// Package logging provides a simple leveled logging interface for the
// media-share server and its admin tooling.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is read once from the DEBUG and LOG_LEVEL environment
// variables and can be overridden with SetLevel.
package logging
