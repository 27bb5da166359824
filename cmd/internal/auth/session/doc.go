// Package session implements the blog's token session lifecycle.
//
// A session moves anonymous -> authenticated (access + refresh issued)
// -> refreshed* -> revoked. Access tokens are short-lived HS256 JWTs that can
// be revoked early through the blacklist; refresh tokens are long-lived JWTs
// that stay usable only while they are members of their owner's refresh set.
//
// Every failure is a *Error. Callers at the transport boundary collapse all of
// them to one unauthorized response; Kind is for logs and metrics only.
package session
