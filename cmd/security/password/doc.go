// Package password hashes and verifies login credentials with Argon2id.
//
// Encoded form (PHC-like):
//
//	$argon2id$v=19$m=<mem KiB>,t=<iterations>,p=<parallelism>$<salt b64>$<key b64>
//
// Hash strings are treated as untrusted input by Verify: parameters that exceed
// twice the configured cost are refused so a crafted hash cannot pin the CPU.
package password
