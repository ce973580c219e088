package openwrap

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"
)

// md5Hex returns the lowercase hex MD5 digest of s.
func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// sha1Hex returns the lowercase hex SHA1 digest of s.
func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// utcOffsetMinutes returns the local zone offset from UTC in minutes at t,
// DST included. Seconds are truncated.
func utcOffsetMinutes(t time.Time) int {
	_, offset := t.Zone()
	return offset / 60
}

// boolValue renders a boolean the way the wire protocol expects it.
func boolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// EncodeTargetingParams flattens a targeting map into a single URL-encoded
// "key=value&..." string, suitable for a downstream ad server's custom
// params slot (e.g. GAM cust_params). Keys are emitted in sorted order so
// the result is deterministic.
func EncodeTargetingParams(targeting map[string]string) string {
	if len(targeting) == 0 {
		return ""
	}
	keys := make([]string, 0, len(targeting))
	for k := range targeting {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(targeting[k])
	}
	return url.QueryEscape(b.String())
}
