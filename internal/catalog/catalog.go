// Package catalog reads product display names from the external catalog service.
package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the catalog has no entry for a product id.
var ErrNotFound = errors.New("catalog: product not found")

// Client looks up product display names.
type Client interface {
	// FetchDisplayName returns the title the catalog holds for productID.
	FetchDisplayName(ctx context.Context, productID int) (string, error)
}

// ParseError reports a catalog response that could not be read as a product.
type ParseError struct {
	ProductID int
	Body      string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse catalog response for productId %d: %v (response: %s)", e.ProductID, e.Err, e.Body)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// TransportError reports a catalog request that did not complete, or that
// completed with a status other than 200 or 404. StatusCode is zero when no
// response was received.
type TransportError struct {
	ProductID  int
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("unable to complete catalog request for productId %d: unexpected status %d", e.ProductID, e.StatusCode)
	}
	return fmt.Sprintf("unable to complete catalog request for productId %d: %v", e.ProductID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
