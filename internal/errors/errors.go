package errors

// ConfigError is a malformed or missing configuration. Fatal at startup.
type ConfigError struct {
	ErrorMsg string
}

func (m *ConfigError) Error() string {
	return m.ErrorMsg
}

// EngineLoadError is a backend failing to load its model. Fatal for the
// worker; at startup the supervisor aborts.
type EngineLoadError struct {
	ErrorMsg string
	Cause    error
}

func (m *EngineLoadError) Error() string {
	return m.ErrorMsg
}

func (m *EngineLoadError) Unwrap() error {
	return m.Cause
}

// IngressDecodeError is a malformed inbound job payload. The single
// message is dropped and ingress continues.
type IngressDecodeError struct {
	ErrorMsg string
}

func (m *IngressDecodeError) Error() string {
	return m.ErrorMsg
}

// BackendFault is a failed inference call. The whole batch fails; the
// worker continues with the next batch.
type BackendFault struct {
	ErrorMsg string
	Cause    error
}

func (m *BackendFault) Error() string {
	return m.ErrorMsg
}

func (m *BackendFault) Unwrap() error {
	return m.Cause
}

// PipelineFault is a pre/postprocessor stage returning a tensor that
// violates the pipeline contract. Handled like a BackendFault.
type PipelineFault struct {
	ErrorMsg string
}

func (m *PipelineFault) Error() string {
	return m.ErrorMsg
}

// QueueConnectError is the external key-value store being unreachable
// at startup or beyond the grace period. Fatal.
type QueueConnectError struct {
	ErrorMsg string
	Cause    error
}

func (m *QueueConnectError) Error() string {
	return m.ErrorMsg
}

func (m *QueueConnectError) Unwrap() error {
	return m.Cause
}

// EgressWriteError is a failed result publication. Logged and dropped,
// never retried.
type EgressWriteError struct {
	ErrorMsg string
	Cause    error
}

func (m *EgressWriteError) Error() string {
	return m.ErrorMsg
}

func (m *EgressWriteError) Unwrap() error {
	return m.Cause
}
