// Package cli provides the Shareify command-line client.
//
// It wires configuration, the local credential database, the key store,
// the crypto engine and the relay services, and exposes them as cobra
// subcommands (login, server-login, status, ping, ls, exec, logout) and an
// interactive REPL (shell, also the default when no subcommand is given).
package cli
