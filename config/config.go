package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

func (b BaseConfig) Validate() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&b,
			validation.Field(&b.Server),
			validation.Field(&b.ChatToken),
			validation.Field(&b.Session),
			validation.Field(&b.Persistence),
		)
	}, "invalid chat auth configuration"); err != nil {
		return err
	}
	return nil
}

func (s Server) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required),
		validation.Field(&s.TokenRoute, validation.Required),
	)
}

// Validate rejects a missing secret, the server must not start without one.
func (c ChatToken) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Secret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.WindowExpression, validation.By(durationRule)),
		validation.Field(&c.MaxClockSkewExpression, validation.By(durationRule)),
	)
}

// Validate requires a signing key unless sessions are verified through JWKS.
func (s Session) Validate() error {
	keyRules := []validation.Rule{}
	if len(s.JWKSURLs) == 0 {
		keyRules = append(keyRules, validation.Required)
	}

	return validation.ValidateStruct(&s,
		validation.Field(&s.SigningKey, keyRules...),
		validation.Field(&s.JWKSURLs, validation.By(urlsRule)),
		validation.Field(&s.TTLExpression, validation.By(durationRule)),
	)
}

func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DSN, validation.Required),
		validation.Field(&p.PingTimeoutExpression, validation.By(durationRule)),
	)
}

// GetWindow returns zero when no window is configured so callers keep the
// five minute default.
func (c ChatToken) GetWindow() time.Duration {
	return mustParseDuration(c.WindowExpression)
}

// GetMaxClockSkew returns -1 when skew hardening is not configured.
func (c ChatToken) GetMaxClockSkew() time.Duration {
	if c.MaxClockSkewExpression == "" {
		return -1
	}
	return mustParseDuration(c.MaxClockSkewExpression)
}

func (s Session) GetTTL() time.Duration {
	return mustParseDuration(s.TTLExpression)
}

func (p Persistence) GetPingTimeout() time.Duration {
	return mustParseDuration(p.PingTimeoutExpression)
}

func mustParseDuration(expr string) time.Duration {
	if expr == "" {
		return 0
	}
	dur, err := time.ParseDuration(expr)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", expr),
		)
	}
	return dur
}

func urlsRule(value any) error {
	urls, _ := value.([]string)
	for _, u := range urls {
		if err := validation.Validate(u, validation.Required, is.URL); err != nil {
			return fmt.Errorf("must contain valid URLs")
		}
	}
	return nil
}

func durationRule(value any) error {
	expr, _ := value.(string)
	if expr == "" {
		return nil
	}
	dur, err := time.ParseDuration(expr)
	if err != nil {
		return fmt.Errorf("must be a valid duration")
	}
	if dur < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
