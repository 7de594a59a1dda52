package aws

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/yuxishi/aws-quota-compare/internal/model"
)

// ListRegions returns the regions enabled for the profile's account.
func ListRegions(ctx context.Context, profile string) ([]model.Region, error) {
	cfg, err := LoadConfig(ctx, profile, "us-east-1")
	if err != nil {
		return nil, classify(err, profile, "us-east-1")
	}

	client := ec2.NewFromConfig(cfg)
	allRegions := false
	output, err := client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: &allRegions,
	})
	if err != nil {
		return nil, classify(err, profile, "us-east-1")
	}

	regions := make([]model.Region, 0, len(output.Regions))
	for _, r := range output.Regions {
		regions = append(regions, model.Region{
			Code: safeString(r.RegionName),
			Name: safeString(r.RegionName),
		})
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Code < regions[j].Code })
	return regions, nil
}
