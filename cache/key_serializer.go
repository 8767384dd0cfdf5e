package cache

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// Operations used as the second key segment.
const (
	OpList   = "list"
	OpDetail = "detail"
)

// KeySerializer builds a cache key from a resource, an operation and the request parameters.
// Every key it returns must start with Prefix(resource) so resource-wide invalidation works.
type KeySerializer interface {
	SerializeKey(resource, operation string, params url.Values) string
}

// Prefix returns the namespace shared by every key of resource.
func Prefix(resource string) string {
	return Namespace(resource) + KeySeparator
}

// OpPrefix returns the prefix shared by every key of one operation on resource.
func OpPrefix(resource, operation string) string {
	return Prefix(resource) + operation
}

// DetailParams is the parameter set of a single-entity key.
func DetailParams(id string) url.Values {
	return url.Values{"id": []string{id}}
}

type defaultKeySerializer struct{}

// NewDefaultKeySerializer keys by the encoded parameters, which url.Values sorts by name.
func NewDefaultKeySerializer() KeySerializer {
	return defaultKeySerializer{}
}

func (defaultKeySerializer) SerializeKey(resource, operation string, params url.Values) string {
	parts := []string{Namespace(resource), operation}
	if len(params) > 0 {
		parts = append(parts, params.Encode())
	}
	return strings.Join(parts, KeySeparator)
}

type hashedKeySerializer struct{}

// NewHashedKeySerializer replaces the parameter segment with its xxhash digest.
// Keys stay short with large filter sets and keep the resource prefix.
func NewHashedKeySerializer() KeySerializer {
	return hashedKeySerializer{}
}

func (hashedKeySerializer) SerializeKey(resource, operation string, params url.Values) string {
	parts := []string{Namespace(resource), operation}
	if len(params) > 0 {
		parts = append(parts, strconv.FormatUint(xxhash.Sum64String(params.Encode()), 16))
	}
	return strings.Join(parts, KeySeparator)
}

// Namespace lowercases a resource name and collapses anything outside [a-z0-9]
// into single underscores, so "Inspection Records" and "inspection-records"
// share one namespace and a name can never contain KeySeparator.
func Namespace(resource string) string {
	var b strings.Builder
	b.Grow(len(resource))
	pending := false
	for _, r := range strings.ToLower(resource) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
