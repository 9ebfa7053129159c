package jobs

import (
	"github.com/geocoder89/quorahub/internal/domain/job"
)

const defaultMaxAttempts = 8

// NewCreateRequest validates and encodes payload into an enqueueable request.
// The idempotency key is "<type>:<subject>" so a retried transaction cannot double-enqueue.
func NewCreateRequest(t JobType, subject string, payload any) (job.CreateRequest, error) {
	err := ValidatePayload(t, payload)
	if err != nil {
		return job.CreateRequest{}, err
	}

	b, err := EncodePayload(t, payload)
	if err != nil {
		return job.CreateRequest{}, err
	}

	key := string(t) + ":" + subject

	return job.CreateRequest{
		Type:           string(t),
		Payload:        b,
		MaxAttempts:    defaultMaxAttempts,
		IdempotencyKey: &key,
	}, nil
}
