package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheKeyRoundTrip(t *testing.T) {
	require := require.New(t)

	key := CacheKey{AccountID: "111111111111", Region: "eu-west-1"}
	parsed, err := ParseCacheKey(key.String())
	require.NoError(err)
	require.Equal(key, parsed)
}

func TestParseCacheKeyRejectsMalformed(t *testing.T) {
	require := require.New(t)

	for _, s := range []string{"", "no-separator", "/us-east-1", "111111111111/"} {
		_, err := ParseCacheKey(s)
		require.Error(err, s)
	}
}

func TestCatalogIndex(t *testing.T) {
	require := require.New(t)

	c := Catalog{Records: []QuotaRecord{
		{ServiceCode: "ec2", QuotaCode: "A", Value: 1},
		{ServiceCode: "ec2", QuotaCode: "B", Value: 2},
	}}
	idx := c.Index()
	require.Len(idx, 2)
	require.Equal(float64(2), idx[QuotaIdentity{ServiceCode: "ec2", QuotaCode: "B"}].Value)
}
