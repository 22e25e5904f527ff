package common

// InvalidTokenMessage is the error text the relay returns when a command
// needs a Shareify JWT and the one supplied is missing or no longer valid.
// Clients match on the word "token" to trigger a server re-login.
const InvalidTokenMessage = "Invalid or expired token"
