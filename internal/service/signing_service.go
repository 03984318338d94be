package service

import (
	"context"

	"esign/internal/dto"
)

// SigningService is the token-scoped public surface: no session, the token
// is the credential.
type SigningService interface {
	// AccessPage validates the token, records a viewed audit entry, and
	// returns the signing-page state.
	AccessPage(ctx context.Context, token string, cap dto.Capture) (*dto.SigningPageState, error)

	// RequestCode issues a fresh verification code and emails it to the
	// signer, resetting the attempt counter and verified flag.
	RequestCode(ctx context.Context, token string) error

	// VerifyCode checks a one-time code, counting wrong attempts.
	VerifyCode(ctx context.Context, token, code string) error

	// Submit accepts the signer's signature and completes the document when
	// it was the last one outstanding.
	Submit(ctx context.Context, token string, req dto.SubmitRequest, cap dto.Capture) (*dto.SubmitResponse, error)

	// Status is idempotent and remains available after signing.
	Status(ctx context.Context, token string) (*dto.SignerStatus, error)
}
