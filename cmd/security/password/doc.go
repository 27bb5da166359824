// Package password hashes and verifies account passwords with Argon2id.
//
// Hashes use the PHC string form:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
//
// Encoded hashes are treated as untrusted input during Verify; parameters far
// above the configured cost are refused.
package password
