// Package execcache shares execution results between prepared executions of
// equal definitions.
//
// A Cache is an execution factory. Prepared executions created through it,
// and everything derived from them with WithDimensions, WithSorting or
// WithPostProcessing, look up their result by execution key (workspace plus
// definition fingerprint) before calling the backend. Concurrent executions
// of the same key are coalesced into one backend call; failed executions
// are not remembered. The cache holds at most a fixed number of results and
// drops the oldest first.
//
// ReadWindow coalesces concurrent reads of the same window of the same
// result in the same way.
package execcache
