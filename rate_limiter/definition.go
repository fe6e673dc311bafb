package rate_limiter

import (
	"fmt"
	"strings"

	"golang.org/x/time/rate"
)

// Definition describes a download limiter. Rates are in bytes
type Definition struct {
	// the limiter name
	Name string
	// FillRate is the sustained number of bytes per second, 0 for unlimited
	FillRate   rate.Limit
	BucketSize int64
	// the max number of downloads that may run at once, 0 for unlimited
	MaxConcurrency int64
}

func (d *Definition) String() string {
	var parts []string
	if d.FillRate > 0 {
		parts = append(parts, fmt.Sprintf("Limit(bytes/s): %v, Burst: %d", d.FillRate, d.BucketSize))
	}
	if d.MaxConcurrency > 0 {
		parts = append(parts, fmt.Sprintf("MaxConcurrency: %d", d.MaxConcurrency))
	}
	if len(parts) == 0 {
		return "unlimited"
	}
	return strings.Join(parts, " ")
}

func (d *Definition) Validate() []string {
	var validationErrors []string
	if d.Name == "" {
		validationErrors = append(validationErrors, "rate limiter definition must specify a name")
	}
	if d.FillRate < 0 {
		validationErrors = append(validationErrors, "rate limiter fill rate must not be negative")
	}
	if d.FillRate > 0 && d.BucketSize <= 0 {
		validationErrors = append(validationErrors, "rate limiter with a fill rate must define a positive bucket size")
	}
	if d.MaxConcurrency < 0 {
		validationErrors = append(validationErrors, "rate limiter max concurrency must not be negative")
	}

	return validationErrors
}
