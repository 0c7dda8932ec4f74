// Package fingerprint produces content hashes used for identity matching.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// AddressHash returns the hex MD5 of the lowercased address with edge
// spaces removed. Only space characters are trimmed, matching the
// btrim in the database's md5(lower(btrim(address))) expression index,
// so hashes produced here are directly comparable to stored ones.
func AddressHash(address string) string {
	normalized := strings.ToLower(strings.Trim(address, " "))
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NameAddressKey is the serialization lock key for a record matched, or
// about to be created, by name and address. Two concurrent merges for
// the same real-world entity contend on the same key.
func NameAddressKey(name, address string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + AddressHash(address)
}
