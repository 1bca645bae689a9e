package chatauth

import "context"

// TokenValidator verifies chat tokens without tying callers to the concrete
// HMAC verifier.
type TokenValidator interface {
	Verify(ctx context.Context, token string) VerificationResult
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(ctx context.Context, token string) VerificationResult

// Verify satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Verify(ctx context.Context, token string) VerificationResult {
	if f == nil {
		return VerificationResult{Reason: ReasonConfiguration}
	}
	return f(ctx, token)
}
