// Copyright (C) 2025 fabstir
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package errs declares the sentinel error kinds of §7 (ERROR HANDLING
// DESIGN) as package-level *logger.ProtocolError values. Every layer of the
// SDK returns one of these (optionally wrapped with fmt.Errorf("...: %w"))
// rather than ad-hoc errors or string matching, so callers can use
// errors.Is/errors.As against the sentinels declared here.
package errs

import "github.com/fabstir/llm-marketplace-sdk/internal/logger"

// Error codes, one per §7 error kind.
const (
	CodeNotInitialized              = "NOT_INITIALIZED"
	CodeUnsupportedChain            = "UNSUPPORTED_CHAIN"
	CodeMissingChainID              = "MISSING_CHAIN_ID"
	CodeInvalidModelID              = "INVALID_MODEL_ID"
	CodeInvalidParameter            = "INVALID_PARAMETER"
	CodeNoHostsAvailable            = "NO_HOSTS_AVAILABLE"
	CodePricingValidation           = "PRICING_VALIDATION"
	CodeSessionNotFound             = "SESSION_NOT_FOUND"
	CodeSessionNotActive            = "SESSION_NOT_ACTIVE"
	CodeInvalidState                = "INVALID_STATE"
	CodeEncryptionNotAvailable      = "ENCRYPTION_NOT_AVAILABLE"
	CodeEncryptionKeyMissing        = "ENCRYPTION_KEY_MISSING"
	CodeSignatureVerificationFailed = "SIGNATURE_VERIFICATION_FAILED"
	CodeHostAddressMismatch         = "HOST_ADDRESS_MISMATCH"
	CodeDecryptionFailed            = "DECRYPTION_FAILED"
	CodeResponseTimeout             = "RESPONSE_TIMEOUT"
	CodeRequestError                = "REQUEST_ERROR"
	CodeNetworkError                = "NETWORK_ERROR"
	CodeSearchError                 = "SEARCH_ERROR"
)

// Sentinel errors. Compare with errors.Is, never string matching.
var (
	ErrNotInitialized              = logger.NewProtocolError(CodeNotInitialized, "component not initialized", nil)
	ErrUnsupportedChain             = logger.NewProtocolError(CodeUnsupportedChain, "chain_id is not in the configured supported set", nil)
	ErrMissingChainID               = logger.NewProtocolError(CodeMissingChainID, "chain_id is required", nil)
	ErrInvalidModelID               = logger.NewProtocolError(CodeInvalidModelID, "model identifier is invalid", nil)
	ErrInvalidParameter             = logger.NewProtocolError(CodeInvalidParameter, "invalid parameter", nil)
	ErrNoHostsAvailable             = logger.NewProtocolError(CodeNoHostsAvailable, "no hosts available for the requested model", nil)
	ErrPricingValidation            = logger.NewProtocolError(CodePricingValidation, "price is outside the valid range", nil)
	ErrSessionNotFound              = logger.NewProtocolError(CodeSessionNotFound, "session not found", nil)
	ErrSessionNotActive             = logger.NewProtocolError(CodeSessionNotActive, "session is not active", nil)
	ErrInvalidState                 = logger.NewProtocolError(CodeInvalidState, "invalid state transition", nil)
	ErrEncryptionNotAvailable       = logger.NewProtocolError(CodeEncryptionNotAvailable, "encryption is not available for this session", nil)
	ErrEncryptionKeyMissing         = logger.NewProtocolError(CodeEncryptionKeyMissing, "session_key must be set before any prompt is sent", nil)
	ErrSignatureVerificationFailed  = logger.NewProtocolError(CodeSignatureVerificationFailed, "signature verification failed", nil)
	ErrHostAddressMismatch          = logger.NewProtocolError(CodeHostAddressMismatch, "recovered address does not match the expected host address", nil)
	ErrDecryptionFailed             = logger.NewProtocolError(CodeDecryptionFailed, "decryption failed", nil)
	ErrResponseTimeout              = logger.NewProtocolError(CodeResponseTimeout, "response timed out", nil)
	ErrRequestError                 = logger.NewProtocolError(CodeRequestError, "remote request error", nil)
	ErrNetworkError                 = logger.NewProtocolError(CodeNetworkError, "network error", nil)
	ErrSearchError                  = logger.NewProtocolError(CodeSearchError, "vector search failed", nil)
)

// WithCause returns a copy of sentinel carrying cause, for call sites that
// want errors.Is(err, sentinel) to keep working while still preserving the
// underlying error via Unwrap.
func WithCause(sentinel *logger.ProtocolError, cause error) *logger.ProtocolError {
	return logger.NewProtocolError(sentinel.Code, sentinel.Message, cause)
}
