package sitecore

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/application/ports"
	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
)

// Fetcher retrieves layouts and item metadata from one environment
type Fetcher struct {
	client *Client
	logger *zap.Logger
}

// NewFetcher creates a fetcher over client
func NewFetcher(client *Client, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, logger: logger}
}

// Environment returns the environment served by the fetcher
func (f *Fetcher) Environment() layout.Environment {
	return f.client.Environment()
}

// FetchLayout returns the rendered layout of a route. Every failure is
// reported in the document; no error or panic leaves this method.
func (f *Fetcher) FetchLayout(ctx context.Context, req ports.LayoutRequest) (doc layout.LayoutDocument) {
	env := f.Environment()
	defer func() {
		if rec := recover(); rec != nil {
			f.logger.Error("Layout fetch panicked", zap.String("environment", string(env)), zap.Any("panic", rec))
			doc = layout.Failure(fmt.Sprint(rec))
		}
	}()

	req, msg := f.prepare(req)
	if msg != "" {
		return layout.Failure(msg)
	}

	var resp layoutResponse
	if err := f.client.Run(ctx, req.ContextID, layoutQuery, variables(req), &resp); err != nil {
		return layout.Failure(err.Error())
	}

	rendered := resp.rendered()
	if rendered == "" {
		return layout.Failure(fmt.Sprintf("No layout data found in %s environment", env))
	}
	return layout.Rendered(rendered)
}

// FetchItemInfo returns display metadata of the routed item, nil when the
// item does not exist
func (f *Fetcher) FetchItemInfo(ctx context.Context, req ports.LayoutRequest) (*layout.ItemInfo, error) {
	req, msg := f.prepare(req)
	if msg != "" {
		return nil, fmt.Errorf("%s", msg)
	}

	var resp itemResponse
	if err := f.client.Run(ctx, req.ContextID, itemInfoQuery, variables(req), &resp); err != nil {
		return nil, err
	}
	if resp.Layout == nil || resp.Layout.Item == nil {
		return nil, nil
	}
	return resp.Layout.Item.info(), nil
}

// FetchItemByPath looks an item up by path or id
func (f *Fetcher) FetchItemByPath(ctx context.Context, contextID, path, language string) (*layout.ItemInfo, error) {
	if strings.TrimSpace(contextID) == "" {
		return nil, fmt.Errorf("%s context ID is not configured", f.Environment().Label())
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("item path is required")
	}
	if language == "" {
		language = layout.DefaultLanguage
	}

	var resp itemByPathResponse
	vars := map[string]interface{}{"itemId": path, "language": language}
	if err := f.client.Run(ctx, contextID, itemByPathQuery, vars, &resp); err != nil {
		return nil, err
	}
	if resp.Item == nil {
		return nil, nil
	}
	return resp.Item.info(), nil
}

// Probe checks that the endpoint answers a schema query for contextID
func (f *Fetcher) Probe(ctx context.Context, contextID string) error {
	if strings.TrimSpace(contextID) == "" {
		return fmt.Errorf("%s context ID is not configured", f.Environment().Label())
	}

	var resp schemaResponse
	if err := f.client.Run(ctx, contextID, probeQuery, nil, &resp); err != nil {
		return err
	}
	if resp.Schema == nil || resp.Schema.QueryType == nil || resp.Schema.QueryType.Name == "" {
		return fmt.Errorf("%s endpoint returned no schema", f.Environment().Label())
	}
	return nil
}

// prepare checks a request before any I/O. It returns the request with
// defaults applied or a failure message.
func (f *Fetcher) prepare(req ports.LayoutRequest) (ports.LayoutRequest, string) {
	req.ContextID = strings.TrimSpace(req.ContextID)
	req.SiteName = strings.TrimSpace(req.SiteName)
	req.RoutePath = strings.TrimSpace(req.RoutePath)

	switch {
	case req.ContextID == "":
		return req, fmt.Sprintf("%s context ID is not configured", f.Environment().Label())
	case req.SiteName == "":
		return req, "site name is required"
	case req.RoutePath == "":
		return req, "route path is required"
	}
	if req.Language == "" {
		req.Language = layout.DefaultLanguage
	}
	return req, ""
}

func variables(req ports.LayoutRequest) map[string]interface{} {
	return map[string]interface{}{
		"siteName":  req.SiteName,
		"routePath": req.RoutePath,
		"language":  req.Language,
	}
}

func (i *itemFields) info() *layout.ItemInfo {
	info := &layout.ItemInfo{
		Name:        i.Name,
		DisplayName: i.DisplayName,
		Path:        i.Path,
	}
	if info.Path == "" && i.URL != nil {
		info.Path = i.URL.Path
	}
	return info
}
