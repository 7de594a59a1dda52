package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/servicequotas"
	sqtypes "github.com/aws/aws-sdk-go-v2/service/servicequotas/types"

	"github.com/yuxishi/aws-quota-compare/internal/model"
)

// UsageInfo pairs a quota's current limit with its observed usage, when the
// quota publishes a CloudWatch usage metric.
type UsageInfo struct {
	Quota           model.QuotaRecord `json:"quota"`
	Usage           float64           `json:"usage"`
	UsagePercentage float64           `json:"usage_percentage"`
	HasUsageMetrics bool              `json:"has_usage_metrics"`
}

// UsageContext looks up one quota and, if it carries a usage metric, queries
// CloudWatch for the latest datapoint over the past 24 hours. Quotas without
// a metric return HasUsageMetrics=false rather than an error.
func (f *QuotaFetcher) UsageContext(ctx context.Context, profile, region, serviceCode, quotaCode string) (*UsageInfo, error) {
	api, err := f.newQuotas(ctx, profile, region)
	if err != nil {
		return nil, classify(err, profile, region)
	}

	var out *servicequotas.GetServiceQuotaOutput
	err = f.withRetry(ctx, func() error {
		var err error
		out, err = api.GetServiceQuota(ctx, &servicequotas.GetServiceQuotaInput{
			ServiceCode: &serviceCode,
			QuotaCode:   &quotaCode,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", serviceCode, quotaCode, classify(err, profile, region))
	}
	if out.Quota == nil {
		return nil, fmt.Errorf("%s/%s: quota not found in %s", serviceCode, quotaCode, region)
	}

	q := out.Quota
	info := &UsageInfo{
		Quota: model.QuotaRecord{
			ServiceCode: safeString(q.ServiceCode),
			ServiceName: safeString(q.ServiceName),
			QuotaCode:   safeString(q.QuotaCode),
			QuotaName:   safeString(q.QuotaName),
			Unit:        safeString(q.Unit),
			Adjustable:  q.Adjustable,
			Global:      q.GlobalQuota,
		},
	}
	if q.Value != nil {
		info.Quota.Value = *q.Value
	}

	metric := q.UsageMetric
	if metric == nil || metric.MetricNamespace == nil || metric.MetricName == nil {
		return info, nil
	}

	cwClient, err := f.newCloudWatch(ctx, profile, region)
	if err != nil {
		return nil, classify(err, profile, region)
	}

	stat := statisticFromRecommendation(metric.MetricStatisticRecommendation)
	result, err := queryCloudWatch(ctx, cwClient, metric, stat)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: cloudwatch query: %w", serviceCode, quotaCode, err)
	}

	info.HasUsageMetrics = true
	latest := latestDatapoint(result.Datapoints)
	if latest == nil {
		return info, nil
	}
	info.Usage = datapointValue(latest, stat)
	if info.Quota.Value > 0 {
		info.UsagePercentage = (info.Usage / info.Quota.Value) * 100
	}
	return info, nil
}

func statisticFromRecommendation(recommendation *string) string {
	if recommendation != nil && *recommendation != "" {
		return *recommendation
	}
	return "Maximum"
}

func queryCloudWatch(ctx context.Context, client cloudwatchAPI, metric *sqtypes.MetricInfo, stat string) (*cloudwatch.GetMetricStatisticsOutput, error) {
	var dimensions []cwtypes.Dimension
	for key, value := range metric.MetricDimensions {
		k := key
		v := value
		dimensions = append(dimensions, cwtypes.Dimension{
			Name:  &k,
			Value: &v,
		})
	}

	endTime := time.Now()
	startTime := endTime.Add(-24 * time.Hour)

	return client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  metric.MetricNamespace,
		MetricName: metric.MetricName,
		Dimensions: dimensions,
		StartTime:  &startTime,
		EndTime:    &endTime,
		Period:     aws.Int32(300),
		Statistics: []cwtypes.Statistic{cwtypes.Statistic(stat)},
	})
}

func latestDatapoint(datapoints []cwtypes.Datapoint) *cwtypes.Datapoint {
	var latest *cwtypes.Datapoint
	for i := range datapoints {
		if latest == nil || datapoints[i].Timestamp.After(*latest.Timestamp) {
			latest = &datapoints[i]
		}
	}
	return latest
}

func datapointValue(datapoint *cwtypes.Datapoint, stat string) float64 {
	switch stat {
	case "Average":
		if datapoint.Average != nil {
			return *datapoint.Average
		}
	case "Sum":
		if datapoint.Sum != nil {
			return *datapoint.Sum
		}
	case "Minimum":
		if datapoint.Minimum != nil {
			return *datapoint.Minimum
		}
	default:
		if datapoint.Maximum != nil {
			return *datapoint.Maximum
		}
	}
	return 0
}
