package model

type DiffStatus string

const (
	DiffDifferent  DiffStatus = "DIFFERENT"
	DiffSourceOnly DiffStatus = "SOURCE_ONLY"
	DiffIdentical  DiffStatus = "IDENTICAL"
)

// DiffEntry is one row of a source-directed comparison. Destination is nil
// exactly when Status is SOURCE_ONLY.
type DiffEntry struct {
	ServiceCode string       `json:"service_code"`
	ServiceName string       `json:"service_name"`
	QuotaCode   string       `json:"quota_code"`
	QuotaName   string       `json:"quota_name"`
	Unit        string       `json:"unit"`
	Status      DiffStatus   `json:"status"`
	Source      QuotaRecord  `json:"source"`
	Destination *QuotaRecord `json:"destination,omitempty"`
	// Delta is destination minus source when both sides are present.
	Delta      float64 `json:"delta"`
	Adjustable bool    `json:"adjustable"`
}

func (e DiffEntry) Identity() QuotaIdentity {
	return QuotaIdentity{ServiceCode: e.ServiceCode, QuotaCode: e.QuotaCode}
}

type DiffSummary struct {
	Total      int `json:"total"`
	Different  int `json:"different"`
	SourceOnly int `json:"source_only"`
	Adjustable int `json:"adjustable"`
}
