package model

import "time"

// RequestState is the tracked lifecycle of a quota increase request. Remote
// statuses outside this vocabulary are reported as PENDING with the raw
// status preserved.
type RequestState string

const (
	RequestPending     RequestState = "PENDING"
	RequestCaseOpened  RequestState = "CASE_OPENED"
	RequestApproved    RequestState = "APPROVED"
	RequestDenied      RequestState = "DENIED"
	RequestNotApproved RequestState = "NOT_APPROVED"
)

type IncreaseRequest struct {
	RequestID    string       `json:"request_id"`
	BatchID      string       `json:"batch_id,omitempty"`
	ServiceCode  string       `json:"service_code"`
	ServiceName  string       `json:"service_name"`
	QuotaCode    string       `json:"quota_code"`
	QuotaName    string       `json:"quota_name"`
	AccountID    string       `json:"account_id"`
	Region       string       `json:"region"`
	DesiredValue float64      `json:"desired_value"`
	SubmittedAt  time.Time    `json:"submitted_at"`
	Status       RequestState `json:"status"`
	RawStatus    string       `json:"raw_status,omitempty"`
}

func (r *IncreaseRequest) Identity() QuotaIdentity {
	return QuotaIdentity{ServiceCode: r.ServiceCode, QuotaCode: r.QuotaCode}
}
