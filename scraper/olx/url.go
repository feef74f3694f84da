package olx

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL is the marketplace home.
const DefaultBaseURL = "https://www.olx.com.br"

// AllStates disables the state restriction of a search.
const AllStates = "all"

// BuildSearchURL builds a search results URL for query q, optionally under
// a category path and restricted to a two-letter state.
//
//	BuildSearchURL(base, "iphone 13", "mg", "celulares")
//	=> https://www.olx.com.br/celulares/estado-mg?q=iphone+13&sf=1
func BuildSearchURL(baseURL, q, state, category string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || !u.IsAbs() {
		return "", fmt.Errorf("olx: invalid base url %q", baseURL)
	}

	var segments []string
	if c := strings.Trim(strings.TrimSpace(category), "/"); c != "" {
		segments = append(segments, c)
	}

	state = strings.ToLower(strings.TrimSpace(state))
	restricted := state != "" && state != AllStates
	if restricted {
		segments = append(segments, "estado-"+state)
	}

	u.Path = strings.TrimRight(u.Path, "/")
	if len(segments) > 0 {
		u.Path += "/" + strings.Join(segments, "/")
	}

	query := url.Values{}
	query.Set("q", q)
	if restricted {
		query.Set("sf", "1")
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}
