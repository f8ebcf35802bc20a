package hetzner

import (
	"errors"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/util/retry"
)

// classifyForRetry marks errors that must not be retried as fatal:
// authentication, quota and invalid-input failures go straight up and
// fail the cluster. Rate limits, locks and transient server errors stay
// retryable.
func classifyForRetry(err error) error {
	if err == nil {
		return nil
	}
	if isHCloudErrorCode(err,
		hcloud.ErrorCodeUnauthorized,
		hcloud.ErrorCodeForbidden,
		hcloud.ErrorCodeInvalidInput,
		hcloud.ErrorCodeResourceLimitExceeded,
		hcloud.ErrorCodeNotFound,
	) {
		return retry.Fatal(err)
	}
	return err
}

// providerError wraps a driver failure into the wire taxonomy.
func providerError(detail string, err error) error {
	return apperror.Wrap(apperror.CodeProvider, detail, err)
}

// isUniquenessError reports a name collision on create, which the
// driver treats as "resource exists, adopt it".
func isUniquenessError(err error) bool {
	return isHCloudErrorCode(err, hcloud.ErrorCodeUniquenessError, hcloud.ErrorCodeConflict)
}

// IsNotFound checks if an error indicates a missing resource.
func IsNotFound(err error) bool {
	return isHCloudErrorCode(err, hcloud.ErrorCodeNotFound)
}

func isHCloudErrorCode(err error, codes ...hcloud.ErrorCode) bool {
	if err == nil {
		return false
	}
	var hcloudErr hcloud.Error
	if errors.As(err, &hcloudErr) {
		for _, code := range codes {
			if hcloudErr.Code == code {
				return true
			}
		}
	}
	return false
}
