// Package execution binds execution definitions to an analytics backend.
//
// A Factory creates PreparedExecutions for one workspace. A prepared
// execution is immutable: its withX transforms derive a new definition and
// ask the owning ExecutionFactory for a fresh prepared execution, so the
// concrete type always matches the factory that created the original.
//
// Execute resolves an optional insight reference, calls the backend exactly
// once through a CallGuard and wraps the response into a Result. A Result
// serves DataViews for windows of the result, fetching pages from the
// backend only when no cached page covers the requested window. Windows
// outside the result are returned as empty views, not errors.
//
// Errors are reported as *ExecutionError with one of the codes
// UNRESOLVED_REFERENCE, BACKEND_EXECUTION or RESULT_EXPIRED. Invalid
// definitions never reach this package: model construction rejects them.
package execution
