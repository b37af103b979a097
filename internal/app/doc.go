// Package app wires application dependencies for the CLI.
//
// It builds the chosen protocol store (files or Redis), the relay client and
// the high-level services from Config, and exposes the use cases commands
// share: unlocking, registering and resolving the username.
package app
