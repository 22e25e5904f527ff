// Package keystore provides persistent homes for client RSA key pairs.
//
// Private keys never leave this package: callers receive a
// cryptox.KeyHandle that exposes the public key and an RSA-OAEP-SHA256
// decrypt operation only.
//
// Implementations:
//   - BoltKeyStore: PKCS#8 keys in a bbolt bucket, file mode 0600.
//   - MemoryKeyStore: process-local map, used by tests.
package keystore
