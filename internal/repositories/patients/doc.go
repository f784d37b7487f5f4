// Package patients is the credential store: persistence for Patient records.
//
// # Overview
//
// Repository is implemented by four backends:
//
//   - MemoryRepository: process-local maps, guarded by a mutex.
//   - JSONFileRepository: MemoryRepository state mirrored to a JSON document
//     that is rewritten atomically after every mutation.
//   - SQLiteRepository / PostgresRepository: a patients table with
//     UNIQUE(ssn_hash), queried through dbx.DBTX.
//
// # Invariants
//
// No two patients share an SSN digest. Create performs the uniqueness check,
// id allocation and insert as one atomic step and reports a clash as
// *common.DuplicateIdentityError carrying the existing patient id. Ids are
// dense, starting at 1. Patients are never deleted; UpdatePIN is the only
// mutation and it changes PINHash alone.
//
// Missing rows are reported as common.ErrorNotFound.
package patients
