package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/geocoder89/quorahub/internal/domain/job"
)

func EncodePayload(t JobType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case JobUserWelcome:
		switch payload.(type) {
		case UserWelcomePayload, *UserWelcomePayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}

	case JobUserRemoved:
		switch payload.(type) {
		case UserRemovedPayload, *UserRemovedPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals job.Payload into the correct typed payload struct.
func DecodePayload(j job.Job) (any, error) {
	t := JobType(j.Type)
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch t {
	case JobUserWelcome:
		var p UserWelcomePayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	case JobUserRemoved:
		var p UserRemovedPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}
