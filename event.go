package rotate

import "fmt"

// Event is the payload Secrets Manager sends to a rotation function for each step.
type Event struct {
	// SecretId is the ARN or name of the secret being rotated
	SecretId string `json:"SecretId"`

	// ClientRequestToken identifies the secret version created and promoted by this rotation.
	// It doubles as the idempotency key for every step.
	ClientRequestToken string `json:"ClientRequestToken"`

	// Step names the rotation phase being requested
	Step Step `json:"Step"`
}

const (
	// StepCreate stores a freshly issued credential under the request token with the AWSPENDING label.
	StepCreate Step = "createSecret"

	// StepSet pushes the AWSPENDING credential into the downstream service.
	// Session tokens are live as soon as they are issued, so there is usually nothing to do.
	StepSet Step = "setSecret"

	// StepTest uses the AWSPENDING credential against the downstream service.
	StepTest Step = "testSecret"

	// StepFinish moves AWSCURRENT onto the request token version.
	StepFinish Step = "finishSecret"
)

// Step is one of the four rotation phases, delivered in order:
//
//  1. StepCreate
//  2. StepSet
//  3. StepTest
//  4. StepFinish
type Step string

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	candidate := Step(text)
	if !candidate.Valid() {
		return fmt.Errorf("unknown step: %s", text)
	}
	*s = candidate
	return nil
}

// Valid reports whether s is one of the four rotation steps.
func (s Step) Valid() bool {
	switch s {
	case StepCreate, StepSet, StepTest, StepFinish:
		return true
	}
	return false
}
