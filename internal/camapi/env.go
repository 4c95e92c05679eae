package camapi

import (
	"fmt"
	"net/url"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"

	// DevBackendURL is used when the console runs from a local dev server.
	DevBackendURL = "http://localhost:8000/api"
	// ProxyPath is resolved against the page origin; the reverse proxy in
	// front of the console forwards it to the backend.
	ProxyPath = "/api"
)

// Environment describes where the console is served from.
type Environment struct {
	Mode    string
	PageURL string
}

// ResolveBaseURL picks the backend base URL for env. A development build
// served from localhost:8080 talks to the backend directly; everything else
// goes through the proxy on the page's own origin.
func ResolveBaseURL(env Environment) (string, error) {
	page, err := url.Parse(env.PageURL)
	if err != nil {
		return "", fmt.Errorf("page url: %w", err)
	}

	if env.Mode == ModeDevelopment && page.Hostname() == "localhost" && page.Port() == "8080" {
		return DevBackendURL, nil
	}

	if !page.IsAbs() || page.Host == "" {
		return "", fmt.Errorf("page url %q is not absolute", env.PageURL)
	}
	return page.Scheme + "://" + page.Host + ProxyPath, nil
}
