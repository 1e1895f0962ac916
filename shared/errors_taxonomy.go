package shared

import "fmt"

// ConfigurationError wraps a fatal error raised at construction time:
// missing credentials, wrong Reader/Writer variant, multiple targets,
// unparseable config.
type ConfigurationError struct {
	Err error
}

func NewConfigurationError(err error) *ConfigurationError {
	return &ConfigurationError{Err: err}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// BootError wraps a fatal error raised during system startup: transport
// connect failure, task-config handshake timeout, missing translation
// track after retries.
type BootError struct {
	Err error
}

func NewBootError(err error) *BootError {
	return &BootError{Err: err}
}

func (e *BootError) Error() string {
	return fmt.Sprintf("boot error: %s", e.Err)
}

func (e *BootError) Unwrap() error {
	return e.Err
}
