package rotate

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Service issues the replacement credential during the CREATE step.
// The rotator only calls it when no AWSPENDING value exists yet for the request token,
// so a single rotation never issues two credentials.
type Service interface {
	Create(ctx context.Context, current Secret) (Secret, error)
}

// SettingService is a Service that must push the pending credential somewhere during SET
type SettingService interface {
	Service
	Set(ctx context.Context, current Secret, pending Secret) error
}

// TestingService is a Service that can prove the pending credential works during TEST.
// A returned error fails the step and stops the rotation before FINISH.
type TestingService interface {
	Service
	Test(ctx context.Context, pending Secret) error
}

// FinishingService is a Service that wants to see the pending credential right before it becomes current
type FinishingService interface {
	Service
	Finish(ctx context.Context, pending Secret) error
}

type Secret interface {
	// Binary indicates if the secret is binary or string format
	Binary() bool

	// Value returns the raw representation of the secret
	// If Binary() is false, the returned []byte can be safely converted to a string
	Value() ([]byte, error)
}

type StringSecret string

func (s StringSecret) Binary() bool {
	return false
}

func (s StringSecret) Value() ([]byte, error) {
	return []byte(s), nil
}

type BinarySecret []byte

func (b BinarySecret) Binary() bool {
	return true
}

func (b BinarySecret) Value() ([]byte, error) {
	return b, nil
}

var (
	_ Secret = StringSecret("")
	_ Secret = BinarySecret(nil)
)

// OutputAsSecret wraps whichever of SecretString or SecretBinary is populated.
func OutputAsSecret(secretValue *secretsmanager.GetSecretValueOutput) Secret {
	if secretValue.SecretString != nil {
		return StringSecret(*secretValue.SecretString)
	}
	return BinarySecret(secretValue.SecretBinary)
}
