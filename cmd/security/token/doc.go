// Package token mints and verifies the signed session tokens used by the blog API.
//
// Access and refresh tokens are HS256 JWTs with explicit claim structs.
// Decoding is strict: unknown fields, missing fields and a wrong token
// type are all rejected with the same ErrInvalidToken.
//
// Environment:
// - BLOG_JWT_SECRET: process-wide signing secret (>= 32 bytes).
package token
