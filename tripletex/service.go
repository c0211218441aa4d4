package tripletex

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/go-logr/logr"

	rotate "github.com/printerlogic/tripletex-session-rotate"
)

// SecretGetter reads the long-lived tokens a session is issued from.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type ServiceConfig struct {
	Client  *Client
	Secrets SecretGetter

	// ConsumerTokenSecretId and EmployeeTokenSecretId point at secrets whose
	// SecretString is the raw token.
	ConsumerTokenSecretId string
	EmployeeTokenSecretId string

	// SessionDurationDays is how many days from now issued session tokens expire.
	SessionDurationDays int

	// Timeout applies to each Secrets Manager lookup
	Timeout time.Duration

	// Now defaults to time.Now
	Now func() time.Time
}

// Service rotates a Tripletex session token. It is a rotate.TestingService:
// CREATE issues a new session from the consumer and employee tokens, TEST calls whoAmI with it.
type Service struct {
	client                *Client
	secrets               SecretGetter
	consumerTokenSecretId string
	employeeTokenSecretId string
	sessionDuration       int
	timeout               time.Duration
	now                   func() time.Time
}

var _ rotate.TestingService = (*Service)(nil)

func NewService(c ServiceConfig) (*Service, error) {
	if c.Client == nil || c.Secrets == nil {
		return nil, fmt.Errorf("tripletex: service requires a client and a secret getter")
	}
	if c.ConsumerTokenSecretId == "" || c.EmployeeTokenSecretId == "" {
		return nil, fmt.Errorf("tripletex: consumer and employee token secret ids are required")
	}
	if c.SessionDurationDays <= 0 {
		return nil, fmt.Errorf("tripletex: session duration must be at least one day, got %d", c.SessionDurationDays)
	}
	if c.Timeout <= 0 {
		c.Timeout = rotate.DefaultTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return &Service{
		client:                c.Client,
		secrets:               c.Secrets,
		consumerTokenSecretId: c.ConsumerTokenSecretId,
		employeeTokenSecretId: c.EmployeeTokenSecretId,
		sessionDuration:       c.SessionDurationDays,
		timeout:               c.Timeout,
		now:                   c.Now,
	}, nil
}

// Create issues a new session token. The current session token plays no part in it.
func (s *Service) Create(ctx context.Context, _ rotate.Secret) (rotate.Secret, error) {
	consumerToken, err := s.stringSecret(ctx, s.consumerTokenSecretId)
	if err != nil {
		return nil, fmt.Errorf("reading consumer token: %w", err)
	}
	employeeToken, err := s.stringSecret(ctx, s.employeeTokenSecretId)
	if err != nil {
		return nil, fmt.Errorf("reading employee token: %w", err)
	}

	expiration := s.now().AddDate(0, 0, s.sessionDuration)
	token, err := s.client.CreateSession(ctx, consumerToken, employeeToken, expiration)
	if err != nil {
		return nil, err
	}

	logr.FromContextOrDiscard(ctx).Info("created tripletex session token", "expirationDate", expiration.Format(DateFormat))
	return rotate.StringSecret(token), nil
}

// Test only checks that Tripletex accepts the token. The identity is logged, not compared.
func (s *Service) Test(ctx context.Context, pending rotate.Secret) error {
	if pending.Binary() {
		return fmt.Errorf("tripletex: pending session token is binary, expected a string")
	}
	raw, err := pending.Value()
	if err != nil {
		return err
	}

	identity, err := s.client.WhoAmI(ctx, string(raw))
	if err != nil {
		return err
	}

	logr.FromContextOrDiscard(ctx).Info("tripletex accepted session token",
		"employeeId", identity.EmployeeID,
		"companyId", identity.CompanyID)
	return nil
}

func (s *Service) stringSecret(ctx context.Context, secretId string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	output, err := s.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretId,
	})
	if err != nil {
		return "", err
	}
	if output.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretId)
	}
	return *output.SecretString, nil
}
