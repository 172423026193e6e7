package layout

import "fmt"

// ConfigError is returned when a layout parameter precondition fails
// (spec §4.8: "k_r > 0, k_a > 0, damping in (0,1) checked at entry").
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("layout: config error: %s: %s", e.Field, e.Reason)
}
