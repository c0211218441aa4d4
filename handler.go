package rotate

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/go-logr/logr"
)

// DefaultTimeout bounds each individual Secrets Manager call when Config.Timeout is unset.
const DefaultTimeout = 5 * time.Second

type Handler interface {
	Handle(context.Context, Event) error
}

// SecretsManagerApi is the subset of *secretsmanager.Client the rotator depends on.
type SecretsManagerApi interface {
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	UpdateSecretVersionStage(ctx context.Context, params *secretsmanager.UpdateSecretVersionStageInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretVersionStageOutput, error)
}

type Config struct {
	SecretsManagerClient SecretsManagerApi
	SecretService        Service
	// Timeout applies to each Secrets Manager call separately
	Timeout time.Duration
	Logger  logr.Logger
}

func New(c Config) Handler {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	logger := c.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	return &rotator{
		api:            c.SecretsManagerClient,
		service:        c.SecretService,
		logger:         logger,
		networkTimeout: c.Timeout,
	}
}

type rotator struct {
	api            SecretsManagerApi
	service        Service
	logger         logr.Logger
	networkTimeout time.Duration
}

// Handle runs one rotation step. Services receive a context carrying a logger tagged
// with the secret, version and step; fetch it with logr.FromContextOrDiscard.
func (r *rotator) Handle(ctx context.Context, event Event) error {
	logger := r.logger.WithValues("secretId", event.SecretId, "version", event.ClientRequestToken, "step", string(event.Step))
	ctx = logr.NewContext(ctx, logger)

	logger.Info("evaluating rotation")
	if err := r.dispatch(ctx, event); err != nil {
		logger.Error(err, "rotation step failed", "errorKind", ClassifyError(err).String())
		return err
	}
	return nil
}

func (r *rotator) dispatch(ctx context.Context, event Event) error {
	logger := logr.FromContextOrDiscard(ctx)

	description, err := r.describe(ctx, event.SecretId)
	if err != nil {
		return err
	}

	if !description.RotationEnabled {
		return fmt.Errorf("secret %s: %w", event.SecretId, ErrRotationDisabled)
	}

	if _, ok := description.Stages(event.ClientRequestToken); !ok {
		return fmt.Errorf("version %s of secret %s: %w", event.ClientRequestToken, event.SecretId, ErrUnknownVersion)
	}

	if description.HasStage(event.ClientRequestToken, AWSCURRENT) {
		logger.Info("version is already set as " + AWSCURRENT)
		return nil
	}
	if !description.HasStage(event.ClientRequestToken, AWSPENDING) {
		return fmt.Errorf("version %s of secret %s: %w", event.ClientRequestToken, event.SecretId, ErrVersionNotPending)
	}

	switch event.Step {
	case StepCreate:
		return r.create(ctx, event)
	case StepSet:
		return r.set(ctx, event)
	case StepTest:
		return r.test(ctx, event)
	case StepFinish:
		return r.finish(ctx, event, description)
	}
	return fmt.Errorf("unknown rotate step: %s", event.Step)
}

func (r *rotator) create(ctx context.Context, event Event) error {
	logger := logr.FromContextOrDiscard(ctx)

	// The current value must exist even though the new credential is not derived from it.
	current, err := r.secretValue(ctx, event.SecretId, "", AWSCURRENT)
	if err != nil {
		return fmt.Errorf("fetching %s value: %w", AWSCURRENT, err)
	}

	_, err = r.secretValue(ctx, event.SecretId, event.ClientRequestToken, AWSPENDING)
	if err == nil {
		logger.Info(AWSPENDING + " value already exists for version")
		return nil
	}
	if ClassifyError(err) != ErrorKindNotFound {
		return fmt.Errorf("fetching %s value: %w", AWSPENDING, err)
	}

	pending, err := r.service.Create(ctx, current)
	if err != nil {
		return fmt.Errorf("creating pending secret: %w", err)
	}

	if err := r.putPendingSecret(ctx, event, pending); err != nil {
		return fmt.Errorf("storing pending secret: %w", err)
	}
	logger.Info("successfully put " + AWSPENDING + " value")
	return nil
}

func (r *rotator) set(ctx context.Context, event Event) error {
	logger := logr.FromContextOrDiscard(ctx)

	setter, ok := r.service.(SettingService)
	if !ok {
		logger.Info("skipping set, the credential was live when it was created")
		return nil
	}

	current, err := r.secretValue(ctx, event.SecretId, "", AWSCURRENT)
	if err != nil {
		return fmt.Errorf("fetching %s value: %w", AWSCURRENT, err)
	}

	pending, err := r.secretValue(ctx, event.SecretId, event.ClientRequestToken, AWSPENDING)
	if err != nil {
		return fmt.Errorf("fetching %s value: %w", AWSPENDING, err)
	}

	return setter.Set(ctx, current, pending)
}

func (r *rotator) test(ctx context.Context, event Event) error {
	logger := logr.FromContextOrDiscard(ctx)

	tester, ok := r.service.(TestingService)
	if !ok {
		logger.Info("service does not test pending secrets")
		return nil
	}

	pending, err := r.secretValue(ctx, event.SecretId, event.ClientRequestToken, AWSPENDING)
	if err != nil {
		return fmt.Errorf("fetching %s value: %w", AWSPENDING, err)
	}

	if err := tester.Test(ctx, pending); err != nil {
		return fmt.Errorf("testing pending secret: %w", err)
	}
	logger.Info("successfully tested " + AWSPENDING + " value")
	return nil
}

func (r *rotator) finish(ctx context.Context, event Event, description Description) error {
	logger := logr.FromContextOrDiscard(ctx)

	currentVersion := description.CurrentVersion()
	if currentVersion == event.ClientRequestToken {
		logger.Info("version is already marked as " + AWSCURRENT)
		return nil
	}

	if finisher, ok := r.service.(FinishingService); ok {
		pending, err := r.secretValue(ctx, event.SecretId, event.ClientRequestToken, AWSPENDING)
		if err != nil {
			return fmt.Errorf("fetching %s value: %w", AWSPENDING, err)
		}
		if err := finisher.Finish(ctx, pending); err != nil {
			return err
		}
	}

	if err := r.setCurrentSecret(ctx, event, currentVersion); err != nil {
		return fmt.Errorf("moving %s: %w", AWSCURRENT, err)
	}
	logger.Info("successfully set "+AWSCURRENT+" stage", "previousVersion", currentVersion)
	return nil
}

func (r *rotator) describe(ctx context.Context, secretId string) (Description, error) {
	ctx, cancel := r.network(ctx)
	defer cancel()

	output, err := r.api.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: &secretId,
	})
	if err != nil {
		return Description{}, fmt.Errorf("describing secret %s: %w", secretId, err)
	}
	return DescriptionFromOutput(output), nil
}

// secretValue looks up a secret by stage, narrowed to versionId when one is given.
func (r *rotator) secretValue(ctx context.Context, secretId, versionId, stage string) (Secret, error) {
	ctx, cancel := r.network(ctx)
	defer cancel()

	input := &secretsmanager.GetSecretValueInput{
		SecretId:     &secretId,
		VersionStage: &stage,
	}
	if versionId != "" {
		input.VersionId = &versionId
	}

	output, err := r.api.GetSecretValue(ctx, input)
	if err != nil {
		return BinarySecret{}, err
	}
	return OutputAsSecret(output), nil
}

func (r *rotator) putPendingSecret(ctx context.Context, event Event, value Secret) error {
	ctx, cancel := r.network(ctx)
	defer cancel()

	input := &secretsmanager.PutSecretValueInput{
		SecretId:           &event.SecretId,
		ClientRequestToken: &event.ClientRequestToken,
		VersionStages:      []string{AWSPENDING},
	}

	val, err := value.Value()
	if err != nil {
		return err
	}
	if value.Binary() {
		input.SecretBinary = val
	} else {
		input.SecretString = aws.String(string(val))
	}

	_, err = r.api.PutSecretValue(ctx, input)
	return err
}

func (r *rotator) setCurrentSecret(ctx context.Context, event Event, currentVersion string) error {
	ctx, cancel := r.network(ctx)
	defer cancel()

	input := &secretsmanager.UpdateSecretVersionStageInput{
		SecretId:        &event.SecretId,
		VersionStage:    aws.String(AWSCURRENT),
		MoveToVersionId: &event.ClientRequestToken,
	}
	if currentVersion != "" {
		input.RemoveFromVersionId = &currentVersion
	}

	_, err := r.api.UpdateSecretVersionStage(ctx, input)
	return err
}

func (r *rotator) network(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.networkTimeout)
}
