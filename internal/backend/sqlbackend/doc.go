// Package sqlbackend is an analytics backend over the SQLite store.
//
// Execute plans a definition into a queryir plan against the workspace's
// fact table, compiles it with querysql and keeps the complete result in
// memory under a fresh result id. ReadPage slices windows out of that
// result. Every execution is appended to the store's execution log.
//
// Catalog references (identifiers or URIs) resolve through the store's
// catalog: labels and date data sets slice and filter, facts aggregate.
// Element URIs have the form
//
//	<label uri>/elements?value=<escaped value>
//
// Supported layouts are one dimension holding only attributes or only the
// measure group, and two dimensions with the attributes in one and the
// measure group alone in the other. Totals are grand totals over the
// attribute dimension.
package sqlbackend
