package repositories

import "fmt"

// SEOErrorCode enumerates repository error causes for SEO metadata writes.
type SEOErrorCode string

const (
	// SEOErrorDuplicatePageURL indicates another record already owns the page URL.
	SEOErrorDuplicatePageURL SEOErrorCode = "seo_duplicate_page_url"
	// SEOErrorDuplicateSlug indicates another record already owns the slug.
	SEOErrorDuplicateSlug SEOErrorCode = "seo_duplicate_slug"
	// SEOErrorNotFound indicates the targeted record does not exist.
	SEOErrorNotFound SEOErrorCode = "seo_not_found"
)

// SEOError wraps SEO store failures with machine readable codes. It satisfies RepositoryError.
type SEOError struct {
	Op      string
	Code    SEOErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *SEOError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *SEOError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *SEOError) IsNotFound() bool {
	return e != nil && e.Code == SEOErrorNotFound
}

func (e *SEOError) IsConflict() bool {
	return e != nil && (e.Code == SEOErrorDuplicatePageURL || e.Code == SEOErrorDuplicateSlug)
}

func (e *SEOError) IsUnavailable() bool {
	return false
}

// NewSEOError constructs a typed SEO store error.
func NewSEOError(code SEOErrorCode, message string, err error) *SEOError {
	if message == "" {
		message = string(code)
	}
	return &SEOError{Code: code, Message: message, Err: err}
}
