package connection

import (
	"fmt"
	"net/url"
)

// EndpointPath is the hub's upgrade path.
const EndpointPath = "/ws"

// EndpointURL derives the realtime endpoint from the page the client was
// served from: same host, ws for http and wss for https, path /ws.
func EndpointURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("page url %q has no host", pageURL)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported page url scheme %q", u.Scheme)
	}

	u.Path = EndpointPath
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String(), nil
}
