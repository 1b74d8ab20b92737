package config

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var durationRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if _, err := parseDuration(s); err != nil {
		return errors.New("must be a non-negative duration such as 500ms or 10s")
	}
	return nil
})

// Validate checks the decoded file.
func (f *File) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Failover),
		validation.Field(&f.Remote),
		validation.Field(&f.Sets, validation.By(uniqueSetNames)),
	)
}

// Validate checks the failover block.
func (fo *Failover) Validate() error {
	return validation.ValidateStruct(fo,
		validation.Field(&fo.MaxRetries, validation.Min(0)),
		validation.Field(&fo.RetryDelay, durationRule),
		validation.Field(&fo.Backoff, validation.In(BackoffConstant, BackoffExponential)),
		validation.Field(&fo.MaxDelay, durationRule),
	)
}

// Validate checks the remote block.
func (r *Remote) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Mirrors, validation.Required, validation.Each(validation.Required, is.URL)),
		validation.Field(&r.CacheTTL, durationRule),
		validation.Field(&r.NegativeTTL, durationRule),
		validation.Field(&r.MirrorTimeout, durationRule),
	)
}

func (s Set) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Endpoints, validation.Required),
	)
}

func (e Endpoint) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.URL, validation.Required, is.URL),
		validation.Field(&e.Priority, validation.Min(0)),
		validation.Field(&e.Timeout, durationRule),
	)
}

func uniqueSetNames(value interface{}) error {
	sets, _ := value.([]Set)
	seen := make(map[string]bool, len(sets))
	var dups []string
	for _, s := range sets {
		if s.Name == "" {
			continue
		}
		if seen[s.Name] {
			dups = append(dups, s.Name)
		}
		seen[s.Name] = true
	}
	if len(dups) > 0 {
		return fmt.Errorf("duplicate set names: %s", strings.Join(dups, ", "))
	}
	return nil
}
