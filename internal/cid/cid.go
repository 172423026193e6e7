package cid

import (
	"fmt"

	ipfscid "github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"lukechampine.com/blake3"

	"github.com/cimalchemist/alchemist/internal/canon"
)

// Domain tags for content-addressed identity. Each is hashed ahead of the
// payload with a null-byte separator, so a CID minted for one purpose can
// never collide with one minted for another even over identical bytes.
const (
	DomainEvent    = "alchemist/event/v1"
	DomainSnapshot = "alchemist/snapshot/v1"
	DomainBinding  = "alchemist/binding/v1"
)

// digestSize is BLAKE3's default output width; 32 bytes matches the
// security margin of the SHA-256 construction it replaces.
const digestSize = 32

// CID is a content identifier: a self-describing multihash (hash function
// and digest length travel with the value) wrapped in the raw-binary CIDv1
// codec. Two payloads that canonicalize identically always produce the same
// CID; any byte difference in the canonical encoding changes it.
type CID = ipfscid.Cid

// Of derives the CID for v under the given domain tag. v is first reduced
// to its canonical byte encoding (internal/canon), so CID derivation only
// ever depends on the logical value, never on map iteration order or
// incidental formatting.
func Of(domain string, v canon.Value) (CID, error) {
	payload, err := canon.EncodeNormalForm(v)
	if err != nil {
		return ipfscid.Undef, fmt.Errorf("cid: %s: %w", domain, err)
	}
	return OfBytes(domain, payload)
}

// OfBytes derives the CID for an already-canonicalized payload. Exposed for
// callers that re-hash bytes read back from storage without re-decoding
// them into canon.Value first.
func OfBytes(domain string, payload []byte) (CID, error) {
	h := blake3.New(digestSize, nil)
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(payload)
	digest := h.Sum(nil)

	encoded, err := mh.Encode(digest, mh.BLAKE3)
	if err != nil {
		return ipfscid.Undef, fmt.Errorf("cid: %s: multihash encode: %w", domain, err)
	}
	return ipfscid.NewCidV1(ipfscid.Raw, encoded), nil
}

// Parse decodes a CID from its string form (the form stored in the event
// log and exchanged over transport).
func Parse(s string) (CID, error) {
	c, err := ipfscid.Decode(s)
	if err != nil {
		return ipfscid.Undef, fmt.Errorf("cid: parse %q: %w", s, err)
	}
	return c, nil
}

// Verify recomputes the CID for payload under domain and reports whether it
// matches want.
func Verify(want CID, domain string, payload []byte) (bool, error) {
	got, err := OfBytes(domain, payload)
	if err != nil {
		return false, err
	}
	return got.Equals(want), nil
}
