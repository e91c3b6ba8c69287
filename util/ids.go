package util

import (
	"strings"

	"github.com/google/uuid"
)

// Namespace scopes every content-derived identifier produced by speakerbind.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/kbukum/speakerbind"))

// StableID derives a UUIDv5 from the given parts. Identical parts always
// yield the same identifier, so artifacts stay byte-identical across runs.
func StableID(parts ...string) string {
	return uuid.NewSHA1(Namespace, []byte(strings.Join(parts, "\x1f"))).String()
}
