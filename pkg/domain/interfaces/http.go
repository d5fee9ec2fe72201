package interfaces

import (
	"context"

	"github.com/m-mizutani/csvpull/pkg/domain/model"
)

// HTTPClient defines the single request the fetcher needs
type HTTPClient interface {
	// Get issues a GET request following redirects. The caller must close the response body.
	Get(ctx context.Context, url string) (*model.HTTPResponse, error)
}
