// Package docstore fetches the structured résumé for a cv_id from the
// structured-document store over HTTP. Adapted from this codebase's
// embedding HTTP client: same request-with-context, status-code
// classification, and typed-error-on-failure idiom.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"cvmatch/internal/apperr"
	"cvmatch/internal/config"
	"cvmatch/internal/model"
)

const component = "docstore"

// Client fetches structured résumés by cv_id.
type Client struct {
	cfg        config.DocStoreConfig
	httpClient *http.Client
}

// New builds a docstore Client.
func New(cfg config.DocStoreConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// GetStructuredResumé fetches the structured résumé for cvID. A 404
// response is classified as apperr.NotFound (not retriable); a network
// error or 5xx is classified as apperr.UpstreamTransient (retriable).
func (c *Client) GetStructuredResumé(ctx context.Context, cvID string) (model.StructuredResumé, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/internal/get_cv/%s", c.cfg.BaseURL, cvID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.StructuredResumé{}, apperr.Wrap(apperr.Internal, component, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.StructuredResumé{}, apperr.Wrap(apperr.UpstreamTransient, component, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.StructuredResumé{}, apperr.Wrap(apperr.UpstreamTransient, component, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.StructuredResumé{}, apperr.New(apperr.NotFound, component, fmt.Sprintf("cv %q not found", cvID))
	case resp.StatusCode/100 == 5:
		return model.StructuredResumé{}, apperr.New(apperr.UpstreamTransient, component,
			fmt.Sprintf("document store returned %d: %s", resp.StatusCode, string(body)))
	case resp.StatusCode/100 != 2:
		return model.StructuredResumé{}, apperr.New(apperr.InvalidInput, component,
			fmt.Sprintf("document store returned %d: %s", resp.StatusCode, string(body)))
	}

	var doc model.StructuredResumé
	if err := json.Unmarshal(body, &doc); err != nil {
		return model.StructuredResumé{}, apperr.Wrap(apperr.UpstreamTransient, component, err)
	}
	return doc, nil
}
