package jobs

type JobType string

const (
	// JobUserWelcome is enqueued with every successful signup.
	JobUserWelcome JobType = "user.welcome"
	// JobUserRemoved is enqueued when an admin deletes an account.
	JobUserRemoved JobType = "user.removed"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobUserWelcome, JobUserRemoved:
		return true
	default:
		return false
	}
}
