// Package records persists EncryptedRecord metadata together with each
// record's key, in a store separate from the patient credentials.
//
// Ids are dense from 1 and allocated inside Create. Create hands the record,
// id already set, to a StoreFunc before anything is committed; the StoreFunc
// writes the ciphertext blob and fills in BlobName. If it fails, no record is
// stored. Records are never updated or deleted afterwards.
package records
