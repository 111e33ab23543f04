// Package apiclient is the HTTP client for the inkwell daemon API. The CLI
// uses it for every command that talks to a running daemon; operators can use
// it as a typed alternative to curl.
package apiclient
