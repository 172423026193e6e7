// Package cid derives content identifiers for canonicalized event and
// snapshot payloads. A CID is a self-describing multihash wrapping a BLAKE3
// digest: the codec and hash function travel with the identifier, so a CID
// minted today remains verifiable if the hash function is ever migrated.
//
// Domain separation: the domain tag and a null byte are hashed ahead of the
// canonical payload bytes, so identifiers minted for different purposes (event vs.
// snapshot) can never collide even given identical payload bytes.
package cid
