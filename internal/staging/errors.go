package staging

// ConfigError reports an invalid staging configuration, e.g. a base
// directory that does not exist, or a relative path given without one.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "staging config: " + e.Reason
}

// PreconditionError reports a call that cannot proceed as configured,
// e.g. Get without any resolvable destination directory.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "staging precondition: " + e.Reason
}
