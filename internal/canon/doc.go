// Package canon implements the canonical payload representation used to
// compute content identifiers: a closed set of value types, deterministic
// key ordering, and a single canonical byte encoding.
//
// Canonicalization is total: every representable Value maps to exactly one
// byte sequence. Equal byte sequences imply equal values, except for
// strings that differ only in Unicode normalization form, which are
// NFC-normalized to the same bytes. Two canonicalization passes over the
// same Value always agree,
// which is what makes CID derivation (internal/cid) deterministic.
//
// Key ordering follows RFC 8785 (UTF-16 code unit order), not Go's default
// UTF-8 byte order — the two disagree for strings outside the BMP.
package canon
