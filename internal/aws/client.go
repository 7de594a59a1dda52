package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/servicequotas"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// LoadConfig resolves SDK configuration for one (profile, region) pair. The
// profile and region are always explicit; nothing is read from ambient
// process state beyond the shared credentials files the profile points at.
func LoadConfig(ctx context.Context, profile, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}

// QuotasAPI is the slice of the Service Quotas API this package uses. The
// paginator client interfaces come from the SDK so the real client satisfies
// this for free.
type QuotasAPI interface {
	servicequotas.ListServicesAPIClient
	servicequotas.ListAWSDefaultServiceQuotasAPIClient
	servicequotas.ListServiceQuotasAPIClient
	servicequotas.ListRequestedServiceQuotaChangeHistoryAPIClient
	GetServiceQuota(ctx context.Context, params *servicequotas.GetServiceQuotaInput, optFns ...func(*servicequotas.Options)) (*servicequotas.GetServiceQuotaOutput, error)
	RequestServiceQuotaIncrease(ctx context.Context, params *servicequotas.RequestServiceQuotaIncreaseInput, optFns ...func(*servicequotas.Options)) (*servicequotas.RequestServiceQuotaIncreaseOutput, error)
	GetRequestedServiceQuotaChange(ctx context.Context, params *servicequotas.GetRequestedServiceQuotaChangeInput, optFns ...func(*servicequotas.Options)) (*servicequotas.GetRequestedServiceQuotaChangeOutput, error)
}

type stsAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type cloudwatchAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

func newQuotasClient(ctx context.Context, profile, region string) (QuotasAPI, error) {
	cfg, err := LoadConfig(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	return servicequotas.NewFromConfig(cfg), nil
}

func newSTSClient(ctx context.Context, profile, region string) (stsAPI, error) {
	cfg, err := LoadConfig(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	return sts.NewFromConfig(cfg), nil
}

func newCloudWatchClient(ctx context.Context, profile, region string) (cloudwatchAPI, error) {
	cfg, err := LoadConfig(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	return cloudwatch.NewFromConfig(cfg), nil
}

func safeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
