package aws

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sqtypes "github.com/aws/aws-sdk-go-v2/service/servicequotas/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yuxishi/aws-quota-compare/internal/model"
)

func testTracker(api QuotasAPI) *RequestTracker {
	return &RequestTracker{
		newQuotas: func(ctx context.Context, profile, region string) (QuotasAPI, error) {
			return api, nil
		},
		newSTS: func(ctx context.Context, profile, region string) (stsAPI, error) {
			return &fakeSTS{account: "222222222222"}, nil
		},
		maxAttempts: 3,
		baseDelay:   time.Millisecond,
		log:         zerolog.Nop(),
	}
}

func increaseItem(code string, desired float64, adjustable bool) IncreaseItem {
	return IncreaseItem{
		ServiceCode:  "ec2",
		ServiceName:  "Amazon EC2",
		QuotaCode:    code,
		QuotaName:    code + " name",
		DesiredValue: desired,
		Adjustable:   adjustable,
	}
}

func TestSubmitBatchIndependence(t *testing.T) {
	require := require.New(t)
	api := &fakeQuotasAPI{}

	items := []IncreaseItem{
		increaseItem("L-AAA", 100, true),
		increaseItem("L-BBB", 50, false),
		increaseItem("L-CCC", 25, true),
	}

	results, err := testTracker(api).SubmitBatch(context.Background(), "dst", "us-east-1", items)
	require.NoError(err)
	require.Len(results, 3)

	require.Empty(results[0].Error)
	require.NotNil(results[0].Request)
	require.Equal("req-L-AAA", results[0].Request.RequestID)
	require.Equal("222222222222", results[0].Request.AccountID)

	require.Nil(results[1].Request)
	require.Contains(results[1].Error, "not adjustable")

	require.Empty(results[2].Error)
	require.NotNil(results[2].Request)

	// the non-adjustable item never reached the remote API
	require.Len(api.submitInputs, 2)

	// every result carries the same batch id
	require.NotEmpty(results[0].Request.BatchID)
	require.Equal(results[0].Request.BatchID, results[2].Request.BatchID)
}

func TestSubmitBatchCollectsRemoteFailures(t *testing.T) {
	require := require.New(t)
	api := &fakeQuotasAPI{
		submitErrs: map[string]error{
			"L-BBB": &fakeAPIError{code: "DependencyAccessDeniedException"},
		},
	}

	items := []IncreaseItem{
		increaseItem("L-AAA", 100, true),
		increaseItem("L-BBB", 50, true),
		increaseItem("L-CCC", 25, true),
	}

	results, err := testTracker(api).SubmitBatch(context.Background(), "dst", "us-east-1", items)
	require.NoError(err)
	require.Len(results, 3)
	require.Empty(results[0].Error)
	require.NotEmpty(results[1].Error)
	require.Empty(results[2].Error)
	// all three were attempted despite the middle failure
	require.Len(api.submitInputs, 3)
}

func TestSubmitIncreaseNotAdjustable(t *testing.T) {
	require := require.New(t)
	api := &fakeQuotasAPI{}

	_, err := testTracker(api).SubmitIncrease(context.Background(), "dst", "us-east-1", increaseItem("L-AAA", 10, false))
	require.ErrorIs(err, ErrNotAdjustable)
	require.Contains(err.Error(), "L-AAA")
	require.Empty(api.submitInputs)
}

func TestPollStatusMapsRemoteVocabulary(t *testing.T) {
	require := require.New(t)

	cases := []struct {
		remote string
		want   model.RequestState
		raw    string
	}{
		{"PENDING", model.RequestPending, ""},
		{"CASE_OPENED", model.RequestCaseOpened, ""},
		{"APPROVED", model.RequestApproved, ""},
		{"DENIED", model.RequestDenied, ""},
		{"NOT_APPROVED", model.RequestNotApproved, ""},
		// unknown statuses surface as PENDING with the raw value kept
		{"CASE_CLOSED", model.RequestPending, "CASE_CLOSED"},
		{"INVALID_REQUEST", model.RequestPending, "INVALID_REQUEST"},
	}

	for _, tc := range cases {
		api := &fakeQuotasAPI{
			change: &sqtypes.RequestedServiceQuotaChange{
				Id:           aws.String("req-1"),
				ServiceCode:  aws.String("ec2"),
				QuotaCode:    aws.String("L-AAA"),
				DesiredValue: aws.Float64(100),
				Status:       sqtypes.RequestStatus(tc.remote),
			},
		}

		req, err := testTracker(api).PollStatus(context.Background(), "dst", "us-east-1", "req-1")
		require.NoError(err, tc.remote)
		require.Equal(tc.want, req.Status, tc.remote)
		require.Equal(tc.raw, req.RawStatus, tc.remote)
	}
}

func TestListRequestIDsFollowsPagination(t *testing.T) {
	require := require.New(t)
	api := &fakeQuotasAPI{
		historyPages: [][]sqtypes.RequestedServiceQuotaChange{
			{{Id: aws.String("req-1")}, {Id: aws.String("req-2")}},
			{{Id: aws.String("req-3")}},
		},
	}

	ids, err := testTracker(api).ListRequestIDs(context.Background(), "dst", "us-east-1")
	require.NoError(err)
	require.Equal([]string{"req-1", "req-2", "req-3"}, ids)
}

func TestMapStatus(t *testing.T) {
	require := require.New(t)

	state, raw := mapStatus("APPROVED")
	require.Equal(model.RequestApproved, state)
	require.Empty(raw)

	state, raw = mapStatus("SOMETHING_NEW")
	require.Equal(model.RequestPending, state)
	require.Equal("SOMETHING_NEW", raw)
}
