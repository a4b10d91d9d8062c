package provision

import "fmt"

// NotFoundError means the subscription being provisioned does not
// exist locally
type NotFoundError struct {
	SubscriptionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("subscription %s not found", e.SubscriptionID)
}

// ConfigurationError means provisioning cannot proceed because the
// mapping configuration is incomplete. Nothing has been written and
// no external call has been made when this is returned.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}

// ExternalServiceError wraps a failure talking to the device platform
type ExternalServiceError struct {
	Operation string
	Err       error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("device platform %s: %v", e.Operation, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
