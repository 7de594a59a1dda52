package model

import (
	"fmt"
	"strings"
)

// CacheKey identifies one cached catalog. The account ID comes from STS, not
// from the profile name: profile names are local labels and may collide or be
// renamed, account IDs are stable.
type CacheKey struct {
	AccountID string `json:"account_id"`
	Region    string `json:"region"`
}

func (k CacheKey) String() string {
	return k.AccountID + "/" + k.Region
}

// ParseCacheKey reverses CacheKey.String.
func ParseCacheKey(s string) (CacheKey, error) {
	account, region, ok := strings.Cut(s, "/")
	if !ok || account == "" || region == "" {
		return CacheKey{}, fmt.Errorf("malformed cache key %q", s)
	}
	return CacheKey{AccountID: account, Region: region}, nil
}
