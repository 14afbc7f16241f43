package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainRecord     = "formtree/record/v1"
	DomainProperties = "formtree/properties/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordHash computes the content hash of a record payload.
// The store uses it to skip rewriting unchanged records.
func RecordHash(recordType string, data Object) (string, error) {
	obj := Object{
		"type": String(recordType),
		"data": data,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RecordHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// PropertiesHash computes the content hash of attachment properties.
func PropertiesHash(props Object) (string, error) {
	canonical, err := MarshalCanonical(props)
	if err != nil {
		return "", fmt.Errorf("PropertiesHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProperties, canonical), nil
}

// MustRecordHash is like RecordHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRecordHash(recordType string, data Object) string {
	h, err := RecordHash(recordType, data)
	if err != nil {
		panic(err)
	}
	return h
}
