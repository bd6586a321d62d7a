// network.go — Network request filtering, ordering, and body shaping.
package shape

import (
	"net/url"
	"sort"
	"strings"

	"github.com/browserlink/browserlink/internal/bound"
	"github.com/browserlink/browserlink/internal/types"
)

// NetworkFilter selects network requests. Zero-value fields are inactive;
// active fields AND together.
type NetworkFilter struct {
	Method        string
	Statuses      []int
	ResourceTypes []string
	Domain        string // substring match on the URL host
	FailedOnly    bool
}

// HasStructuralFilter reports whether any field other than FailedOnly is
// active. When none is, results get the failed-first ordering.
func (f NetworkFilter) HasStructuralFilter() bool {
	return f.Method != "" || len(f.Statuses) > 0 || len(f.ResourceTypes) > 0 || f.Domain != ""
}

// FilterNetwork returns the requests matching f, in input order. Requests
// with unparseable URLs are excluded only when the domain filter is active.
func FilterNetwork(reqs []types.NetworkRequest, f NetworkFilter) []types.NetworkRequest {
	statuses := make(map[int]bool, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses[s] = true
	}
	rtypes := make(map[string]bool, len(f.ResourceTypes))
	for _, t := range f.ResourceTypes {
		rtypes[strings.ToLower(t)] = true
	}

	out := make([]types.NetworkRequest, 0, len(reqs))
	for _, r := range reqs {
		if f.Method != "" && !strings.EqualFold(r.Method, f.Method) {
			continue
		}
		if len(statuses) > 0 && !statuses[r.Status] {
			continue
		}
		if len(rtypes) > 0 && !rtypes[strings.ToLower(r.ResourceType)] {
			continue
		}
		if f.Domain != "" {
			u, err := url.Parse(r.URL)
			if err != nil || u.Host == "" {
				continue
			}
			if !strings.Contains(strings.ToLower(u.Host), strings.ToLower(f.Domain)) {
				continue
			}
		}
		if f.FailedOnly && !r.Failed() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortFailedFirst stably moves failed requests ahead of successful ones,
// preserving input order within each bucket. Sorts in place.
func SortFailedFirst(reqs []types.NetworkRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].Failed() && !reqs[j].Failed()
	})
}

// OmittedBody replaces a request/response body that the caller did not ask
// for, preserving the original size for diagnostics.
type OmittedBody struct {
	Omitted      bool `json:"omitted"`
	OriginalSize int  `json:"originalSize"`
}

// ShapedRequest is a NetworkRequest whose bodies are either omitted
// placeholders or size-bounded strings.
type ShapedRequest struct {
	RequestID    string  `json:"requestId,omitempty"`
	Method       string  `json:"method"`
	URL          string  `json:"url"`
	Status       int     `json:"status"`
	ResourceType string  `json:"resourceType,omitempty"`
	RequestBody  any     `json:"requestBody,omitempty"`
	ResponseBody any     `json:"responseBody,omitempty"`
	Timestamp    int64   `json:"timestamp,omitempty"`
	DurationMs   float64 `json:"durationMs,omitempty"`
	FromCache    bool    `json:"fromCache,omitempty"`
}

// BodyOptions controls body inclusion and the per-body byte caps.
type BodyOptions struct {
	IncludeRequestBodies  bool
	IncludeResponseBodies bool
	MaxRequestBody        int
	MaxResponseBody       int
}

// ShapeBodies converts requests to their client-facing form: bodies become
// {omitted, originalSize} placeholders unless asked for, and included bodies
// are truncated to the configured caps.
func ShapeBodies(reqs []types.NetworkRequest, opts BodyOptions) []ShapedRequest {
	out := make([]ShapedRequest, 0, len(reqs))
	for _, r := range reqs {
		shaped := ShapedRequest{
			RequestID:    r.RequestID,
			Method:       r.Method,
			URL:          r.URL,
			Status:       r.Status,
			ResourceType: r.ResourceType,
			Timestamp:    r.Timestamp,
			DurationMs:   r.DurationMs,
			FromCache:    r.FromCache,
		}
		shaped.RequestBody = shapeBody(r.RequestBody, opts.IncludeRequestBodies, opts.MaxRequestBody)
		shaped.ResponseBody = shapeBody(r.ResponseBody, opts.IncludeResponseBodies, opts.MaxResponseBody)
		out = append(out, shaped)
	}
	return out
}

func shapeBody(body string, include bool, limit int) any {
	if body == "" {
		return nil
	}
	if !include {
		return OmittedBody{Omitted: true, OriginalSize: len(body)}
	}
	truncated, _, _ := bound.TruncateText(body, limit)
	return truncated
}
