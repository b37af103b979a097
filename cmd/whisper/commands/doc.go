// Package commands defines the whisper CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init           Create the local identity and registration id
//   - fingerprint    Print the identity fingerprint
//   - register       Publish fresh pre-keys to a relay
//   - start-session  Start a session from a peer's pre-key bundle
//   - send           Encrypt and send a message
//   - recv           Fetch and decrypt queued messages
//   - reset-session  Forget the session with a peer
//
// # Implementation
//
// The root command builds the app (store backend, relay client, services)
// before any subcommand runs. --home and --relay default to WHISPER_HOME and
// WHISPER_RELAY.
package commands
