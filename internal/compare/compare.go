// Package compare computes a source-directed diff between two quota
// catalogs: what the destination would have to gain to match the source.
// Destination-only quotas are never reported.
package compare

import (
	"math"
	"sort"

	"github.com/yuxishi/aws-quota-compare/internal/model"
)

const DefaultEpsilon = 1e-9

type Options struct {
	// SuppressDefaults skips source records still at their default value.
	SuppressDefaults bool
	// Epsilon bounds the float distance below which two values count as
	// equal. Zero means DefaultEpsilon.
	Epsilon float64
}

type Result struct {
	Entries []model.DiffEntry `json:"entries"`
	Summary model.DiffSummary `json:"summary"`
}

// Compare diffs source against dest. It is a pure function of its inputs.
// Identical records count toward the summary total but are not emitted.
func Compare(source, dest *model.Catalog, opts Options) Result {
	eps := opts.Epsilon
	if eps == 0 {
		eps = DefaultEpsilon
	}

	destIdx := dest.Index()

	var res Result
	for _, src := range source.Records {
		if opts.SuppressDefaults && src.IsDefaultValue {
			continue
		}
		res.Summary.Total++

		dst, ok := destIdx[src.Identity()]
		if !ok {
			res.Summary.SourceOnly++
			if src.Adjustable {
				res.Summary.Adjustable++
			}
			res.Entries = append(res.Entries, model.DiffEntry{
				ServiceCode: src.ServiceCode,
				ServiceName: src.ServiceName,
				QuotaCode:   src.QuotaCode,
				QuotaName:   src.QuotaName,
				Unit:        src.Unit,
				Status:      model.DiffSourceOnly,
				Source:      src,
				Adjustable:  src.Adjustable,
			})
			continue
		}

		if math.Abs(src.Value-dst.Value) <= eps {
			continue
		}

		res.Summary.Different++
		if dst.Adjustable {
			res.Summary.Adjustable++
		}
		dstCopy := dst
		res.Entries = append(res.Entries, model.DiffEntry{
			ServiceCode: src.ServiceCode,
			ServiceName: src.ServiceName,
			QuotaCode:   src.QuotaCode,
			QuotaName:   src.QuotaName,
			Unit:        src.Unit,
			Status:      model.DiffDifferent,
			Source:      src,
			Destination: &dstCopy,
			Delta:       dst.Value - src.Value,
			// increase requests run against the destination, so its flag wins
			Adjustable: dst.Adjustable,
		})
	}

	sortEntries(res.Entries)
	return res
}

// sortEntries orders by service then quota for stable, scannable output.
func sortEntries(entries []model.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ServiceName != b.ServiceName {
			return a.ServiceName < b.ServiceName
		}
		if a.QuotaName != b.QuotaName {
			return a.QuotaName < b.QuotaName
		}
		if a.ServiceCode != b.ServiceCode {
			return a.ServiceCode < b.ServiceCode
		}
		return a.QuotaCode < b.QuotaCode
	})
}
