package models

import "time"

// EncryptedRecord is the vault's view of a stored file: metadata plus the
// per-record key. Key never leaves the vault layer.
type EncryptedRecord struct {
	ID               int64
	PatientID        int64
	RecordType       string
	OriginalFilename string
	Key              []byte
	Cipher           string
	BlobName         string
	Size             int64
	CreatedAt        time.Time
}

// RecordInfo is what callers outside the vault get back. It has no key.
type RecordInfo struct {
	ID               int64
	PatientID        int64
	RecordType       string
	OriginalFilename string
	Size             int64
	CreatedAt        time.Time
}

func (r *EncryptedRecord) Info() RecordInfo {
	return RecordInfo{
		ID:               r.ID,
		PatientID:        r.PatientID,
		RecordType:       r.RecordType,
		OriginalFilename: r.OriginalFilename,
		Size:             r.Size,
		CreatedAt:        r.CreatedAt,
	}
}

// DecryptedRecord is a record together with its recovered plaintext.
type DecryptedRecord struct {
	ID         int64
	Filename   string
	RecordType string
	CreatedAt  time.Time
	Content    []byte
}
