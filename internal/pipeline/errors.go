package pipeline

import (
	"errors"

	"github.com/local/docextract/internal/ai"
	"github.com/local/docextract/internal/filetype"
	"github.com/local/docextract/internal/reconcile"
)

// Kind classifies pipeline failures for the caller. The set is closed; every
// component error maps onto exactly one kind.
type Kind string

const (
	KindUnsupportedFormat      Kind = "unsupported_format"
	KindConversionTimeout      Kind = "conversion_timeout"
	KindConversionFailed       Kind = "conversion_failed"
	KindTextRecoveryDegraded   Kind = "text_recovery_degraded" // warning, not a failure
	KindProviderNotConfigured  Kind = "provider_not_configured"
	KindProviderCallFailed     Kind = "provider_call_failed"
	KindInvalidJSONResponse    Kind = "invalid_json_response"
	KindSchemaValidationFailed Kind = "schema_validation_failed"
	KindTemplateInvalid        Kind = "template_invalid"
)

// classifyExtraction maps a component error from the extraction path onto the
// taxonomy. Unrecognized errors from the LLM leg default to a provider call
// failure; everything else falls back to conversion failure.
func classifyExtraction(err error) Kind {
	var unsupported *filetype.UnsupportedError
	if errors.As(err, &unsupported) {
		return KindUnsupportedFormat
	}

	var notConfigured *ai.NotConfiguredError
	if errors.As(err, &notConfigured) {
		return KindProviderNotConfigured
	}
	var httpErr *ai.HTTPError
	if errors.As(err, &httpErr) || ai.IsRateLimited(err) {
		return KindProviderCallFailed
	}

	var parseErr *reconcile.ParseError
	if errors.As(err, &parseErr) {
		return KindInvalidJSONResponse
	}
	var valErr *reconcile.ValidationError
	if errors.As(err, &valErr) {
		return KindSchemaValidationFailed
	}

	return KindConversionFailed
}
