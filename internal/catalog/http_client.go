package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const productPath = "/v2/pdp/tcin/"

// maxBodySize bounds how much of a catalog response is read.
const maxBodySize = 1 << 20

// httpClient implements Client against the catalog's HTTP API.
type httpClient struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPClient creates a catalog client for the service at baseURL.
// Each lookup is a single request bounded by timeout and the caller's context.
func NewHTTPClient(baseURL string, timeout time.Duration, logger zerolog.Logger) Client {
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "catalog").Logger(),
	}
}

// FetchDisplayName retrieves the product and extracts
// product.item.productDescription.title from the response.
func (c *httpClient) FetchDisplayName(ctx context.Context, productID int) (string, error) {
	url := fmt.Sprintf("%s%s%d", c.baseURL, productPath, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &TransportError{ProductID: productID, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Int("product_id", productID).Str("url", url).Msg("requesting product from catalog")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Int("product_id", productID).Msg("catalog request failed")
		return "", &TransportError{ProductID: productID, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		c.logger.Debug().Int("product_id", productID).Msg("product not found in catalog")
		return "", fmt.Errorf("%w: productId %d", ErrNotFound, productID)
	default:
		c.logger.Warn().
			Int("product_id", productID).
			Int("status", resp.StatusCode).
			Msg("unexpected catalog response status")
		return "", &TransportError{
			ProductID:  productID,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.logger.Error().Err(err).Int("product_id", productID).Msg("failed to read catalog response")
		return "", &TransportError{ProductID: productID, Err: err}
	}

	title, err := parseTitle(body)
	if err != nil {
		c.logger.Error().Err(err).Int("product_id", productID).Msg("failed to parse catalog response")
		return "", &ParseError{ProductID: productID, Body: string(body), Err: err}
	}

	c.logger.Debug().Int("product_id", productID).Str("title", title).Msg("resolved product name")

	return title, nil
}

type catalogResponse struct {
	Product *struct {
		Item *struct {
			ProductDescription *struct {
				Title *string `json:"title"`
			} `json:"productDescription"`
		} `json:"item"`
	} `json:"product"`
}

func parseTitle(body []byte) (string, error) {
	var payload catalogResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}

	switch {
	case payload.Product == nil:
		return "", errors.New(`missing "product"`)
	case payload.Product.Item == nil:
		return "", errors.New(`missing "product.item"`)
	case payload.Product.Item.ProductDescription == nil:
		return "", errors.New(`missing "product.item.productDescription"`)
	case payload.Product.Item.ProductDescription.Title == nil:
		return "", errors.New(`missing "product.item.productDescription.title"`)
	}

	return *payload.Product.Item.ProductDescription.Title, nil
}
