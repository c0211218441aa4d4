package rotate

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
)

var (
	// ErrRotationDisabled means the secret does not have rotation turned on.
	ErrRotationDisabled = errors.New("rotation is not enabled")

	// ErrUnknownVersion means the request token is not one of the secret's versions.
	ErrUnknownVersion = errors.New("version has no stage for rotation")

	// ErrVersionNotPending means the request token version is neither AWSCURRENT nor AWSPENDING.
	ErrVersionNotPending = errors.New("version is not set as " + AWSPENDING)
)

// ErrorKind is the coarse category of a failed Secrets Manager call.
type ErrorKind int

const (
	ErrorKindOther ErrorKind = iota
	// ErrorKindNotFound is returned when the requested secret, version or stage does not exist.
	ErrorKindNotFound
	// ErrorKindTransient covers throttling and server side faults. Redelivery may succeed.
	ErrorKindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNotFound:
		return "not-found"
	case ErrorKindTransient:
		return "transient"
	default:
		return "other"
	}
}

// ClassifyError sorts an error returned by the Secrets Manager client into an ErrorKind.
// Classification is done on the error type and API code, never on the message.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindOther
	}

	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return ErrorKindNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorFault() == smithy.FaultServer {
			return ErrorKindTransient
		}
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded":
			return ErrorKindTransient
		}
	}
	return ErrorKindOther
}
