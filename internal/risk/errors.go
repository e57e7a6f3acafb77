package risk

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for invalid caller-declared parameters
	// (unknown variant or table, non-positive scale). Nothing is computed.
	ErrConfiguration = errors.New("risk: configuration error")

	// ErrDomain is returned for inputs outside their domain. Inputs are
	// never clamped.
	ErrDomain = errors.New("risk: input out of domain")
)

func domainErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDomain, fmt.Sprintf(format, args...))
}

func configErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
