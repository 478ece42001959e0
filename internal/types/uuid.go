package types

import (
	"crypto/rand"
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	// UUID prefixes for generated artifact ids
	UUID_PREFIX_RELAY_SESSION = "relay"
	UUID_PREFIX_EXPORT        = "export"
)

// GenerateUUID generates a lowercase ULID.
func GenerateUUID() string {
	return strings.ToLower(ulid.MustNew(ulid.Now(), rand.Reader).String())
}

// GenerateUUIDWithPrefix generates a ULID with a given prefix, for example
// relay_01hgd3... Prefixed ids keep artifact kinds distinguishable in logs.
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}
