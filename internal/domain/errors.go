package domain

import "errors"

var (
	// ErrInvalidRequest is returned when the question is missing or blank
	ErrInvalidRequest = errors.New("prompt is required")

	// ErrCatalogUnavailable is returned when one or both catalog datasets cannot be read
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrGenerationFailed is returned when the retrieval fallback cannot produce an answer
	ErrGenerationFailed = errors.New("generation failed")

	// ErrEmbeddingFailed is returned when the embedding service fails
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrServiceUnavailable marks a transient failure of an external model service.
	// Errors wrapping it may be retried.
	ErrServiceUnavailable = errors.New("model service unavailable")

	// ErrRateLimited is returned when a caller exceeds its request budget
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrQuotaExhausted is returned when the assistant's own budget of model
	// calls is used up. It is not the caller's fault.
	ErrQuotaExhausted = errors.New("model call quota exhausted")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)
