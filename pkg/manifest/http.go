package manifest

import (
	"context"
	"net/http"
	"strings"

	pherrors "github.com/packhouse/packhouse/pkg/errors"
	"github.com/packhouse/packhouse/pkg/httputil"
)

// HTTPProvider fetches the catalog document over HTTP. The repoURL is
// treated as the document URL; a "%s" placeholder, if present, is
// substituted with the requested ref so one provider can serve
// ref-addressed raw URLs (e.g. raw.githubusercontent.com paths).
type HTTPProvider struct {
	client *http.Client
}

// NewHTTPProvider creates a provider using client, or http.DefaultClient
// when nil.
func NewHTTPProvider(client *http.Client) *HTTPProvider {
	return &HTTPProvider{client: client}
}

// Manifest fetches and parses the catalog document. YAML documents are
// detected by URL extension; everything else is parsed as JSON.
func (p *HTTPProvider) Manifest(ctx context.Context, repoURL, ref string) (*Manifest, error) {
	if repoURL == "" {
		return nil, pherrors.New(pherrors.ErrCodeMissingField, "repo_url is required")
	}

	url := repoURL
	if strings.Contains(url, "%s") {
		url = strings.Replace(url, "%s", ref, 1)
	}

	data, err := httputil.Fetch(ctx, p.client, url)
	if err != nil {
		return nil, pherrors.Wrap(pherrors.ErrCodeNotFound, err, "fetch catalog %s", url)
	}

	if strings.HasSuffix(url, ".yaml") || strings.HasSuffix(url, ".yml") {
		return DecodeYAML(data)
	}
	return Decode(data)
}
