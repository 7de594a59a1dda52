package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/servicequotas"
	"github.com/rs/zerolog"

	"github.com/yuxishi/aws-quota-compare/internal/model"
)

// QuotaFetcher retrieves the full quota catalog for one (profile, region)
// pair: every service, every quota, applied values merged over defaults.
type QuotaFetcher struct {
	newQuotas     func(ctx context.Context, profile, region string) (QuotasAPI, error)
	newSTS        func(ctx context.Context, profile, region string) (stsAPI, error)
	newCloudWatch func(ctx context.Context, profile, region string) (cloudwatchAPI, error)
	maxAttempts   int
	baseDelay     time.Duration
	log           zerolog.Logger
}

func NewQuotaFetcher(maxAttempts int, baseDelay time.Duration, log zerolog.Logger) *QuotaFetcher {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &QuotaFetcher{
		newQuotas:     newQuotasClient,
		newSTS:        newSTSClient,
		newCloudWatch: newCloudWatchClient,
		maxAttempts:   maxAttempts,
		baseDelay:     baseDelay,
		log:           log,
	}
}

// ResolveAccount returns the account ID behind a profile. Cache keys are
// derived from this, never from the profile name.
func (f *QuotaFetcher) ResolveAccount(ctx context.Context, profile, region string) (string, error) {
	api, err := f.newSTS(ctx, profile, region)
	if err != nil {
		return "", classify(err, profile, region)
	}
	out, err := api.GetCallerIdentity(ctx, nil)
	if err != nil {
		return "", classify(err, profile, region)
	}
	if out.Account == nil {
		return "", fmt.Errorf("profile %q in %s: caller identity has no account", profile, region)
	}
	return *out.Account, nil
}

// FetchCatalog enumerates all services in the region and merges each
// service's applied quotas over its defaults. A service whose quotas cannot
// be listed is skipped; the fetch as a whole only fails on systemic errors.
func (f *QuotaFetcher) FetchCatalog(ctx context.Context, profile, region string) (*model.Catalog, error) {
	accountID, err := f.ResolveAccount(ctx, profile, region)
	if err != nil {
		return nil, err
	}

	api, err := f.newQuotas(ctx, profile, region)
	if err != nil {
		return nil, classify(err, profile, region)
	}

	services, err := f.listServices(ctx, api)
	if err != nil {
		return nil, classify(err, profile, region)
	}

	catalog := &model.Catalog{
		AccountID:    accountID,
		AccountLabel: profile,
		Region:       region,
	}
	seen := make(map[model.QuotaIdentity]struct{})

	for _, svc := range services {
		records, err := f.fetchServiceQuotas(ctx, api, svc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isAuth(err) {
				return nil, classify(err, profile, region)
			}
			// region-unsupported or flaky service, not fatal to the fetch
			f.log.Warn().
				Str("account", accountID).
				Str("region", region).
				Str("service", svc.Code).
				Err(err).
				Msg("skipping service, quota listing failed")
			continue
		}
		for _, r := range records {
			if _, dup := seen[r.Identity()]; dup {
				continue
			}
			seen[r.Identity()] = struct{}{}
			catalog.Records = append(catalog.Records, r)
		}
	}

	f.log.Info().
		Str("account", accountID).
		Str("region", region).
		Int("services", len(services)).
		Int("quotas", len(catalog.Records)).
		Msg("catalog fetched")
	return catalog, nil
}

func (f *QuotaFetcher) listServices(ctx context.Context, api QuotasAPI) ([]model.Service, error) {
	var services []model.Service
	paginator := servicequotas.NewListServicesPaginator(api, &servicequotas.ListServicesInput{})

	for paginator.HasMorePages() {
		output, err := f.nextServicesPage(ctx, paginator)
		if err != nil {
			return nil, err
		}
		for _, s := range output.Services {
			services = append(services, model.Service{
				Code: safeString(s.ServiceCode),
				Name: safeString(s.ServiceName),
			})
		}
	}
	return services, nil
}

// fetchServiceQuotas lists the service's default quotas, then overlays the
// account-specific applied quotas. Quotas present only in the default listing
// keep IsDefaultValue set.
func (f *QuotaFetcher) fetchServiceQuotas(ctx context.Context, api QuotasAPI, svc model.Service) ([]model.QuotaRecord, error) {
	var records []model.QuotaRecord
	index := make(map[string]int)

	defaults := servicequotas.NewListAWSDefaultServiceQuotasPaginator(api, &servicequotas.ListAWSDefaultServiceQuotasInput{
		ServiceCode: &svc.Code,
	})
	for defaults.HasMorePages() {
		output, err := f.nextDefaultsPage(ctx, defaults)
		if err != nil {
			return nil, err
		}
		for _, q := range output.Quotas {
			rec := model.QuotaRecord{
				ServiceCode:    svc.Code,
				ServiceName:    svc.Name,
				QuotaCode:      safeString(q.QuotaCode),
				QuotaName:      safeString(q.QuotaName),
				Unit:           safeString(q.Unit),
				Adjustable:     q.Adjustable,
				Global:         q.GlobalQuota,
				IsDefaultValue: true,
			}
			if q.Value != nil {
				rec.Value = *q.Value
			}
			index[rec.QuotaCode] = len(records)
			records = append(records, rec)
		}
	}

	applied := servicequotas.NewListServiceQuotasPaginator(api, &servicequotas.ListServiceQuotasInput{
		ServiceCode: &svc.Code,
	})
	for applied.HasMorePages() {
		output, err := f.nextAppliedPage(ctx, applied)
		if err != nil {
			return nil, err
		}
		for _, q := range output.Quotas {
			code := safeString(q.QuotaCode)
			var value float64
			if q.Value != nil {
				value = *q.Value
			}
			if i, ok := index[code]; ok {
				records[i].Value = value
				records[i].IsDefaultValue = false
				records[i].Adjustable = q.Adjustable
				continue
			}
			index[code] = len(records)
			records = append(records, model.QuotaRecord{
				ServiceCode:    svc.Code,
				ServiceName:    svc.Name,
				QuotaCode:      code,
				QuotaName:      safeString(q.QuotaName),
				Value:          value,
				Unit:           safeString(q.Unit),
				Adjustable:     q.Adjustable,
				Global:         q.GlobalQuota,
				IsDefaultValue: false,
			})
		}
	}

	return records, nil
}

func (f *QuotaFetcher) nextServicesPage(ctx context.Context, p *servicequotas.ListServicesPaginator) (*servicequotas.ListServicesOutput, error) {
	var out *servicequotas.ListServicesOutput
	err := f.withRetry(ctx, func() error {
		var err error
		out, err = p.NextPage(ctx)
		return err
	})
	return out, err
}

func (f *QuotaFetcher) nextDefaultsPage(ctx context.Context, p *servicequotas.ListAWSDefaultServiceQuotasPaginator) (*servicequotas.ListAWSDefaultServiceQuotasOutput, error) {
	var out *servicequotas.ListAWSDefaultServiceQuotasOutput
	err := f.withRetry(ctx, func() error {
		var err error
		out, err = p.NextPage(ctx)
		return err
	})
	return out, err
}

func (f *QuotaFetcher) nextAppliedPage(ctx context.Context, p *servicequotas.ListServiceQuotasPaginator) (*servicequotas.ListServiceQuotasOutput, error) {
	var out *servicequotas.ListServiceQuotasOutput
	err := f.withRetry(ctx, func() error {
		var err error
		out, err = p.NextPage(ctx)
		return err
	})
	return out, err
}

// withRetry runs op, retrying throttled calls with exponential backoff up to
// maxAttempts. Any other error is returned as-is.
func (f *QuotaFetcher) withRetry(ctx context.Context, op func() error) error {
	delay := f.baseDelay
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !isThrottle(err) || attempt >= f.maxAttempts {
			return err
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
