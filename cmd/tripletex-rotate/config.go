package main

import (
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	rotate "github.com/printerlogic/tripletex-session-rotate"
)

// config is read once at cold start. Every field can be set through its
// environment variable, which is how the Lambda runtime provides it.
type config struct {
	TripletexAPIBaseURL    string        `name:"tripletex-api-base-url" env:"TRIPLETEX_API_BASE_URL" required:"" help:"Base URL of the Tripletex API, e.g. https://tripletex.no/v2."`
	ConsumerTokenSecretArn string        `name:"consumer-token-secret-arn" env:"TRIPLETEX_CONSUMER_TOKEN_SECRET_ARN" required:"" help:"Secret holding the Tripletex consumer token."`
	EmployeeTokenSecretArn string        `name:"employee-token-secret-arn" env:"TRIPLETEX_EMPLOYEE_TOKEN_SECRET_ARN" required:"" help:"Secret holding the Tripletex employee token."`
	SessionDurationDays    int           `name:"session-token-duration-in-days" env:"TRIPLETEX_SESSION_TOKEN_DURATION_IN_DAYS" required:"" help:"Days until a newly issued session token expires."`
	NetworkTimeout         time.Duration `name:"network-timeout" env:"ROTATION_NETWORK_TIMEOUT" default:"5s" help:"Timeout for each Secrets Manager and Tripletex call."`
	LogLevel               string        `name:"log-level" env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Minimum log level."`
}

func (c *config) Validate() error {
	if c.SessionDurationDays <= 0 {
		return fmt.Errorf("session token duration must be at least one day, got %d", c.SessionDurationDays)
	}
	if c.NetworkTimeout <= 0 {
		c.NetworkTimeout = rotate.DefaultTimeout
	}
	u, err := url.Parse(c.TripletexAPIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("tripletex api base url %q must be an absolute url", c.TripletexAPIBaseURL)
	}
	return nil
}

func parseConfig(args []string, stdout, stderr io.Writer) (*config, error) {
	var c config
	parser, err := kong.New(&c,
		kong.Name("tripletex-rotate"),
		kong.Description("Secrets Manager rotation function for Tripletex session tokens."),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return nil, err
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}
	return &c, nil
}

func newZapLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}
