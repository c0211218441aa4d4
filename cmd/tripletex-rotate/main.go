package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"

	rotate "github.com/printerlogic/tripletex-session-rotate"
	"github.com/printerlogic/tripletex-session-rotate/tripletex"
)

// secretsManager is what both the rotator and the Tripletex service need from the client.
type secretsManager interface {
	rotate.SecretsManagerApi
	tripletex.SecretGetter
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, lambda.Start); err != nil {
		fmt.Fprintf(os.Stderr, "tripletex-rotate: %v\n", err)
		os.Exit(1)
	}
}

// run wires the rotator and hands it to start, which blocks serving invocations.
// The logger is flushed before run returns.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, start func(handler any)) error {
	cfg, err := parseConfig(args, stdout, stderr)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	zapLogger, err := newZapLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	logger := zapr.NewLogger(zapLogger)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error(err, "failed to load AWS config")
		return fmt.Errorf("loading AWS config: %w", err)
	}

	handler, err := newHandler(cfg, secretsmanager.NewFromConfig(awsCfg), logger)
	if err != nil {
		logger.Error(err, "failed to build rotation handler")
		return fmt.Errorf("building rotation handler: %w", err)
	}

	start(handler.Handle)
	return nil
}

func newHandler(cfg *config, sm secretsManager, logger logr.Logger) (rotate.Handler, error) {
	client, err := tripletex.NewClient(cfg.TripletexAPIBaseURL,
		tripletex.WithHTTPClient(&http.Client{Timeout: cfg.NetworkTimeout}))
	if err != nil {
		return nil, err
	}

	service, err := tripletex.NewService(tripletex.ServiceConfig{
		Client:                client,
		Secrets:               sm,
		ConsumerTokenSecretId: cfg.ConsumerTokenSecretArn,
		EmployeeTokenSecretId: cfg.EmployeeTokenSecretArn,
		SessionDurationDays:   cfg.SessionDurationDays,
		Timeout:               cfg.NetworkTimeout,
	})
	if err != nil {
		return nil, err
	}

	return rotate.New(rotate.Config{
		SecretsManagerClient: sm,
		SecretService:        service,
		Timeout:              cfg.NetworkTimeout,
		Logger:               logger,
	}), nil
}
