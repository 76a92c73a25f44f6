package redis

// Redis key naming conventions for digest data.
// All keys are prefixed with "digest:" to avoid collisions.

const keyPrefix = "digest:"

// ── Document keys ──

// documentKey returns the key for a document entity: digest:document:{id}
func documentKey(id string) string { return keyPrefix + "document:" + id }

// documentIDsKey is the Set tracking all document IDs for enumeration.
const documentIDsKey = keyPrefix + "document_ids"

// ── Job keys ──

// jobKey returns the key for a job entity: digest:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// jobIDsKey is the Set tracking all job IDs for enumeration.
const jobIDsKey = keyPrefix + "job_ids"

// pendingKey is the List backing the FIFO pending queue.
const pendingKey = keyPrefix + "pending"

// jobDocumentsKey is the Set of document IDs that already have a job.
// Only maintained when resubmission is disabled.
const jobDocumentsKey = keyPrefix + "job_documents"
