// Package client contains the transport building blocks of the Shareify
// client.
//
// # Overview
//
//  1. A transport contract (Client) covering the three HTTP calls of the
//     relay protocol: bridge login, session establishment and the generic
//     command POST.
//  2. An HTTP implementation (HTTPClient) that speaks JSON, attaches the
//     bearer headers and maps transport failures to sentinel errors.
//  3. Local database bootstrap (InitDatabase, RunMigrations) for the
//     credential store, backed by SQLite and embedded goose migrations.
//
// # Error Handling
//
// Conditions are exposed as sentinel errors for errors.Is: ErrUnavailable
// (network layer), ErrUnauthorized (401/403 from the bridge),
// ErrUnexpectedStatus and ErrInvalidResponse.
//
// SendCommand deliberately does not interpret status codes; the command
// service owns re-authentication and error classification.
//
// All operations accept context.Context and are safe for concurrent use.
package client
