// Package artifact wraps stage results in schema-versioned envelopes,
// renders them as JSON or YAML and publishes them to storage.
//
// Every envelope carries a schema_version field. Decoding checks it before
// reading the payload, so a consumer built for one version rejects another
// with an errors.ErrCodeSchemaMismatch error instead of mis-parsing it.
//
// Encoding is deterministic: identical results encode to identical bytes.
package artifact
