package auth

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
)

const gravatarBase = "https://www.gravatar.com/avatar/"

// AvatarURL derives a Gravatar URL from an email address: 200px, rated PG,
// falling back to the "mystery man" image. The same email always yields the
// same URL regardless of case or surrounding whitespace.
func AvatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))

	q := url.Values{}
	q.Set("s", "200")
	q.Set("r", "pg")
	q.Set("d", "mm")

	return gravatarBase + hex.EncodeToString(sum[:]) + "?" + q.Encode()
}
