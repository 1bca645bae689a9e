// Package chatauth issues and verifies short-lived chat tokens that bind a
// chat request to an identity the platform already authenticated.
//
// Token format:
//   - A token is the standard base64 encoding of
//     "{identity}:{issuedAtMillis}:{signature}" where signature is the lowercase
//     hex HMAC-SHA256 of "{identity}:{issuedAtMillis}" under a shared secret.
//   - Tokens are valid for FreshnessWindow (five minutes, inclusive) after they
//     were issued. Tokens stamped in the future are accepted unless the
//     verifier is built with WithMaxClockSkew.
//
// Trust boundary:
//   - TokenIssuer only runs behind a verified platform session (see
//     SessionService and middleware/jwtware). The chat token itself never
//     authorizes issuance of another token.
//   - TokenVerifier runs on the chat API (see middleware/chatware) and on chat
//     streams through NewWSAuthMiddleware.
//
// Activity sinks:
//   - ActivitySink receives issuance and verification events. Sinks run best
//     effort. Wrap storage backed sinks in AsyncActivitySink so issue and
//     verify never wait on a database. The repository package persists
//     events with Bun.
//
// Clients use the client package to fetch and cache tokens, and the gate
// package to make sure a platform session exists before the first fetch.
package chatauth
