// Package ingest applies suggestion and campaign-metric batches sent by
// automation clients to per-workspace storage.
//
// Every batch is validated up front and then written inside one repository
// transaction, so a batch lands completely or not at all. Create versus
// update is decided by the store's upsert on the natural key, which keeps
// concurrent imports from several server instances free of duplicates
// without any in-process locking. Replaying a batch is always safe.
//
// Repository implementations live in repository/postgres/ and repository/memory/.
package ingest
