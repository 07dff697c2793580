// Package callguard implements execution.CallGuard for backends that need
// throttling and retries.
//
// A Guard waits on a token-bucket limiter before each attempt, retries
// transient failures with exponential backoff and records every call in
// Prometheus metrics. Errors that survive the retries are translated with
// the caller's error mapper.
package callguard
