package impl

import "esign/internal/domain"

var (
	errTitleTooShort  = domain.Validation("title must be at least 3 characters")
	errNoSigners      = domain.Validation("at least one signer is required")
	errEmptyToken     = domain.Validation("missing signing token")
	errNotOwner       = domain.Permission("document belongs to another owner")
	errAlreadySigned  = domain.StateConflict("signer has already signed")
	errCodeNotIssued  = domain.Verification("no verification code has been requested")
	errCodeExpired    = domain.Verification("verification code expired; request a new one")
	errCodeExhausted  = domain.Verification("too many incorrect attempts; request a new code")
	errCodeMismatch   = domain.Verification("incorrect verification code")
	errUnverified     = domain.Verification("verification required before signing")
	errTokenExpired   = domain.ExpiredToken("signing token expired")
	errNoOriginalFile = domain.Validation("imported documents require an original file")
)
