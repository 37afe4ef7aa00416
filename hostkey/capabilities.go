// Copyright (C) 2025 fabstir
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package hostkey

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fabstir/llm-marketplace-sdk/errs"
)

// Recognized web-search capability tokens and provider hints from a host's
// GET /v1/version response (§6). The web-search provider itself (Brave,
// DuckDuckGo) is an external collaborator out of scope for this SDK (§1);
// this client only needs to know whether a given host advertises it before
// deciding whether to request it.
const (
	FeatureHostSideWebSearch   = "host-side-web-search"
	FeatureInferenceWebSearch  = "inference-web-search"
	FeatureStreamingWebSearch  = "streaming-web-search"
	FeatureWebsocketWebSearch  = "websocket-web-search"
	ProviderBraveSearchAPI     = "brave-search-api"
	ProviderDuckDuckGoFallback = "duckduckgo-fallback"
	ProviderBingSearchAPI      = "bing-search-api"
)

// Capabilities is the parsed GET /v1/version response (§6): a version
// string plus an unordered set of feature/provider tokens.
type Capabilities struct {
	Version  string
	Features map[string]bool
}

// Has reports whether token appears in the host's advertised feature set.
func (c Capabilities) Has(token string) bool {
	if c.Features == nil {
		return false
	}
	return c.Features[token]
}

// versionResponse is the wire shape of GET /v1/version (§6).
type versionResponse struct {
	Version  string   `json:"version"`
	Features []string `json:"features"`
}

// FetchCapabilities issues GET endpoint+"/v1/version" and parses the
// response into a Capabilities set. Used by a client that wants to decide,
// ahead of a session, whether a host supports e.g. streaming web search
// before requesting it.
func (r *Resolver) FetchCapabilities(ctx context.Context, endpoint string) (Capabilities, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchCapabilitiesTimeout)
	defer cancel()

	url := strings.TrimSuffix(endpoint, "/") + "/v1/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Capabilities{}, errs.WithCause(errs.ErrNetworkError, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Capabilities{}, errs.WithCause(errs.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Capabilities{}, errs.WithCause(errs.ErrNetworkError, fmt.Errorf("hostkey: version endpoint returned %d", resp.StatusCode))
	}

	var vr versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return Capabilities{}, fmt.Errorf("hostkey: decode version response: %w", err)
	}

	features := make(map[string]bool, len(vr.Features))
	for _, f := range vr.Features {
		features[f] = true
	}
	return Capabilities{Version: vr.Version, Features: features}, nil
}

// fetchCapabilitiesTimeout bounds the version round-trip independently of
// the resolver's general HTTP client timeout, since capability detection is
// advisory and should never stall session establishment.
const fetchCapabilitiesTimeout = 5 * time.Second
