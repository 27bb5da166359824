// Package identity stores blog accounts and their password hashes.
//
// It is the credential store consulted at login and registration:
// lookup by email or id, and conflict-checked creation. Email and username
// are unique after normalization (trim + lower-case).
package identity
