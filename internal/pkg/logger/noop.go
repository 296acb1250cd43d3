package logger

// NoopLogger discards everything. Used by tests.
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (NoopLogger) Debug(module, message string, details map[string]interface{}) {}
func (NoopLogger) Info(module, message string, details map[string]interface{})  {}
func (NoopLogger) Warn(module, message string, details map[string]interface{})  {}
func (NoopLogger) Error(module, message string, details map[string]interface{}) {}
func (NoopLogger) Sync() error                                                  { return nil }
