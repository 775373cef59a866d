package modules

import "fmt"

// ReasonUnregistered is the Reason of a ConfigurationError for an unknown
// module key.
const ReasonUnregistered = "no configuration registered"

// ConfigurationError reports an unknown module or a missing capability.
type ConfigurationError struct {
	Module string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("module %q: %s", e.Module, e.Reason)
}

// Require returns a ConfigurationError when the module lacks the capability
// named op.
func (m *ModuleConfig) Require(op string) error {
	var missing bool
	switch op {
	case "fetch":
		missing = m.Fetch == nil
	case "create":
		missing = m.Create == nil
	case "get":
		missing = m.Get == nil
	case "update":
		missing = m.Update == nil
	case "delete":
		missing = m.Delete == nil
	case "lite":
		missing = m.Lite == nil
	default:
		missing = true
	}
	if missing {
		return &ConfigurationError{Module: m.Key, Reason: "no " + op + " capability"}
	}
	return nil
}
