package model

import "time"

// QuotaIdentity uniquely names a quota within one account/region catalog.
type QuotaIdentity struct {
	ServiceCode string `json:"service_code"`
	QuotaCode   string `json:"quota_code"`
}

type QuotaRecord struct {
	ServiceCode    string  `json:"service_code"`
	ServiceName    string  `json:"service_name"`
	QuotaCode      string  `json:"quota_code"`
	QuotaName      string  `json:"quota_name"`
	Value          float64 `json:"value"`
	Unit           string  `json:"unit"`
	Adjustable     bool    `json:"adjustable"`
	IsDefaultValue bool    `json:"is_default_value"`
	Global         bool    `json:"global"`
}

func (r QuotaRecord) Identity() QuotaIdentity {
	return QuotaIdentity{ServiceCode: r.ServiceCode, QuotaCode: r.QuotaCode}
}

// Catalog is the complete quota set for one account/region, produced by a
// single fetch cycle. A re-fetch replaces the whole catalog.
type Catalog struct {
	AccountID    string        `json:"account_id"`
	AccountLabel string        `json:"account_label"`
	Region       string        `json:"region"`
	Records      []QuotaRecord `json:"records"`
}

// Index returns a lookup of the catalog's records by identity.
func (c *Catalog) Index() map[QuotaIdentity]QuotaRecord {
	idx := make(map[QuotaIdentity]QuotaRecord, len(c.Records))
	for _, r := range c.Records {
		idx[r.Identity()] = r
	}
	return idx
}

type CacheEntry struct {
	Catalog   Catalog   `json:"catalog"`
	FetchedAt time.Time `json:"fetched_at"`
}

type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Service struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
