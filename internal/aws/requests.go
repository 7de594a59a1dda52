package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/servicequotas"
	sqtypes "github.com/aws/aws-sdk-go-v2/service/servicequotas/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yuxishi/aws-quota-compare/internal/model"
)

// RequestTracker submits quota increase requests against a destination
// account and polls their status.
type RequestTracker struct {
	newQuotas   func(ctx context.Context, profile, region string) (QuotasAPI, error)
	newSTS      func(ctx context.Context, profile, region string) (stsAPI, error)
	maxAttempts int
	baseDelay   time.Duration
	log         zerolog.Logger
}

func NewRequestTracker(maxAttempts int, baseDelay time.Duration, log zerolog.Logger) *RequestTracker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &RequestTracker{
		newQuotas:   newQuotasClient,
		newSTS:      newSTSClient,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		log:         log,
	}
}

// IncreaseItem is one quota targeted for an increase. Adjustable carries the
// destination catalog's flag so non-adjustable quotas are rejected before any
// remote call.
type IncreaseItem struct {
	ServiceCode  string  `json:"service_code"`
	ServiceName  string  `json:"service_name"`
	QuotaCode    string  `json:"quota_code"`
	QuotaName    string  `json:"quota_name"`
	DesiredValue float64 `json:"desired_value"`
	Adjustable   bool    `json:"adjustable"`
}

type SubmitResult struct {
	Item    IncreaseItem           `json:"item"`
	Request *model.IncreaseRequest `json:"request,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// SubmitBatch submits every item independently: one failure never blocks or
// rolls back the others. The returned slice has one result per item, in
// input order, all tagged with the same batch id.
func (t *RequestTracker) SubmitBatch(ctx context.Context, profile, region string, items []IncreaseItem) ([]SubmitResult, error) {
	accountID, api, err := t.connect(ctx, profile, region)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	results := make([]SubmitResult, 0, len(items))
	for _, item := range items {
		req, err := t.submit(ctx, api, accountID, region, item, batchID)
		res := SubmitResult{Item: item, Request: req}
		if err != nil {
			res.Error = err.Error()
			t.log.Warn().
				Str("account", accountID).
				Str("region", region).
				Str("service", item.ServiceCode).
				Str("quota", item.QuotaCode).
				Err(err).
				Msg("increase request failed")
		}
		results = append(results, res)
	}
	return results, nil
}

// SubmitIncrease submits a single increase request.
func (t *RequestTracker) SubmitIncrease(ctx context.Context, profile, region string, item IncreaseItem) (*model.IncreaseRequest, error) {
	accountID, api, err := t.connect(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	return t.submit(ctx, api, accountID, region, item, "")
}

func (t *RequestTracker) submit(ctx context.Context, api QuotasAPI, accountID, region string, item IncreaseItem, batchID string) (*model.IncreaseRequest, error) {
	if !item.Adjustable {
		return nil, fmt.Errorf("%s/%s (%s): %w", item.ServiceCode, item.QuotaCode, item.QuotaName, ErrNotAdjustable)
	}

	var out *servicequotas.RequestServiceQuotaIncreaseOutput
	err := t.withRetry(ctx, func() error {
		var err error
		out, err = api.RequestServiceQuotaIncrease(ctx, &servicequotas.RequestServiceQuotaIncreaseInput{
			ServiceCode:  &item.ServiceCode,
			QuotaCode:    &item.QuotaCode,
			DesiredValue: &item.DesiredValue,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", item.ServiceCode, item.QuotaCode, err)
	}
	if out.RequestedQuota == nil {
		return nil, fmt.Errorf("%s/%s: empty response from service quotas", item.ServiceCode, item.QuotaCode)
	}

	req := fromRequestedChange(out.RequestedQuota, accountID, region)
	req.BatchID = batchID
	return req, nil
}

// PollStatus refreshes a submitted request's state by request id.
func (t *RequestTracker) PollStatus(ctx context.Context, profile, region, requestID string) (*model.IncreaseRequest, error) {
	accountID, api, err := t.connect(ctx, profile, region)
	if err != nil {
		return nil, err
	}

	var out *servicequotas.GetRequestedServiceQuotaChangeOutput
	err = t.withRetry(ctx, func() error {
		var err error
		out, err = api.GetRequestedServiceQuotaChange(ctx, &servicequotas.GetRequestedServiceQuotaChangeInput{
			RequestId: &requestID,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", requestID, classify(err, profile, region))
	}
	if out.RequestedQuota == nil {
		return nil, fmt.Errorf("request %s: not found", requestID)
	}
	return fromRequestedChange(out.RequestedQuota, accountID, region), nil
}

// ListRequestIDs returns the ids of submitted increase requests for the
// account/region, newest pages first as the API reports them.
func (t *RequestTracker) ListRequestIDs(ctx context.Context, profile, region string) ([]string, error) {
	_, api, err := t.connect(ctx, profile, region)
	if err != nil {
		return nil, err
	}

	var ids []string
	paginator := servicequotas.NewListRequestedServiceQuotaChangeHistoryPaginator(api, &servicequotas.ListRequestedServiceQuotaChangeHistoryInput{})
	for paginator.HasMorePages() {
		var out *servicequotas.ListRequestedServiceQuotaChangeHistoryOutput
		err := t.withRetry(ctx, func() error {
			var err error
			out, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, classify(err, profile, region)
		}
		for _, rq := range out.RequestedQuotas {
			if rq.Id != nil {
				ids = append(ids, *rq.Id)
			}
		}
	}
	return ids, nil
}

func (t *RequestTracker) connect(ctx context.Context, profile, region string) (string, QuotasAPI, error) {
	stsClient, err := t.newSTS(ctx, profile, region)
	if err != nil {
		return "", nil, classify(err, profile, region)
	}
	ident, err := stsClient.GetCallerIdentity(ctx, nil)
	if err != nil {
		return "", nil, classify(err, profile, region)
	}
	api, err := t.newQuotas(ctx, profile, region)
	if err != nil {
		return "", nil, classify(err, profile, region)
	}
	return safeString(ident.Account), api, nil
}

func (t *RequestTracker) withRetry(ctx context.Context, op func() error) error {
	delay := t.baseDelay
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !isThrottle(err) || attempt >= t.maxAttempts {
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

func fromRequestedChange(rq *sqtypes.RequestedServiceQuotaChange, accountID, region string) *model.IncreaseRequest {
	req := &model.IncreaseRequest{
		RequestID:   safeString(rq.Id),
		ServiceCode: safeString(rq.ServiceCode),
		ServiceName: safeString(rq.ServiceName),
		QuotaCode:   safeString(rq.QuotaCode),
		QuotaName:   safeString(rq.QuotaName),
		AccountID:   accountID,
		Region:      region,
	}
	if rq.DesiredValue != nil {
		req.DesiredValue = *rq.DesiredValue
	}
	if rq.Created != nil {
		req.SubmittedAt = *rq.Created
	}
	req.Status, req.RawStatus = mapStatus(string(rq.Status))
	return req
}

// mapStatus folds the remote status vocabulary onto the tracked states.
// Anything unrecognized is reported as PENDING with the raw status kept for
// display.
func mapStatus(remote string) (model.RequestState, string) {
	switch model.RequestState(remote) {
	case model.RequestPending, model.RequestCaseOpened, model.RequestApproved,
		model.RequestDenied, model.RequestNotApproved:
		return model.RequestState(remote), ""
	}
	return model.RequestPending, remote
}
