package kv

import (
	"strconv"
	"strings"
	"time"
)

const (
	ProfilePrefix          = "profile:"
	ConfessionRootPrefix   = "confession:"
	ActiveConfessionPrefix = "confession_active_"
	FeedbackPrefix         = "feedback:"
	DonationRootPrefix     = "donation:"
	ConfigPrefix           = "config:"

	anonymous = "anonymous"
)

func ProfileKey(userID string) string {
	return ProfilePrefix + userID
}

// ConfessionPrefix matches every confession record owned by userID.
func ConfessionPrefix(userID string) string {
	return ConfessionRootPrefix + userID + ":"
}

// ConfessionKey is confession:<userID>:<unix millis of creation>.
func ConfessionKey(userID string, createdAt time.Time) string {
	return ConfessionPrefix(userID) + strconv.FormatInt(createdAt.UnixMilli(), 10)
}

// OwnerFunc extracts the owning user id from a record key.
type OwnerFunc func(key string) (string, bool)

// ConfessionOwner extracts the owning user id from a confession key.
func ConfessionOwner(key string) (string, bool) {
	return recordOwner(ConfessionRootPrefix, key)
}

// DonationOwner extracts the owning user id from a donation key.
func DonationOwner(key string) (string, bool) {
	return recordOwner(DonationRootPrefix, key)
}

// recordOwner parses <root><userID>:<unix millis>. The user id is everything
// up to the last colon, so ids containing colons stay distinct.
func recordOwner(root, key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, root)
	if !ok {
		return "", false
	}
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 || i == len(rest)-1 {
		return "", false
	}
	if _, err := strconv.ParseInt(rest[i+1:], 10, 64); err != nil {
		return "", false
	}
	return rest[:i], true
}

func ActiveConfessionKey(userID string) string {
	return ActiveConfessionPrefix + userID
}

// FeedbackKey is feedback:<unix millis>:<userID or "anonymous">.
func FeedbackKey(createdAt time.Time, userID string) string {
	if userID == "" {
		userID = anonymous
	}
	return FeedbackPrefix + strconv.FormatInt(createdAt.UnixMilli(), 10) + ":" + userID
}

func DonationPrefix(userID string) string {
	return DonationRootPrefix + userID + ":"
}

func DonationKey(userID string, createdAt time.Time) string {
	return DonationPrefix(userID) + strconv.FormatInt(createdAt.UnixMilli(), 10)
}

func ConfigKey(name string) string {
	return ConfigPrefix + name
}

// Namespace is a per-user record family: a key prefix plus the parser that
// tells which user a key under it belongs to.
type Namespace struct {
	Prefix string
	Owner  OwnerFunc
}

// UserKeys lists the exact keys and the record namespaces holding data owned
// by userID.
func UserKeys(userID string) (keys []string, records []Namespace) {
	return []string{ProfileKey(userID), ActiveConfessionKey(userID)},
		[]Namespace{
			{Prefix: ConfessionPrefix(userID), Owner: ConfessionOwner},
			{Prefix: DonationPrefix(userID), Owner: DonationOwner},
		}
}
