// Package explorer derives page and component inventories from layout routes.
package explorer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
)

// Rendering is one component placed on a page
type Rendering struct {
	UID           string         `json:"uid"`
	ComponentName string         `json:"componentName"`
	RenderingID   string         `json:"renderingId,omitempty"`
	DataSource    string         `json:"dataSource,omitempty"`
	Placeholder   string         `json:"placeholder"`
	Params        map[string]any `json:"params,omitempty"`
}

// Page is a routed item together with the renderings on it
type Page struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	DisplayName  string      `json:"displayName"`
	TemplateName string      `json:"templateName,omitempty"`
	TemplateID   string      `json:"templateId,omitempty"`
	Path         string      `json:"path"`
	URL          string      `json:"url,omitempty"`
	Language     string      `json:"language,omitempty"`
	Renderings   []Rendering `json:"renderings"`
}

// PageRef identifies a page from a component usage entry
type PageRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Path        string `json:"path"`
}

// ComponentUsage aggregates where one component is placed
type ComponentUsage struct {
	ComponentName string    `json:"componentName"`
	RenderingID   string    `json:"renderingId"`
	UsedOnPages   []PageRef `json:"usedOnPages"`
	TotalUsages   int       `json:"totalUsages"`
	Datasources   []string  `json:"datasources"`
}

type routeFields struct {
	ItemID       string          `json:"itemId"`
	Name         string          `json:"name"`
	DisplayName  string          `json:"displayName"`
	TemplateName string          `json:"templateName"`
	TemplateID   string          `json:"templateId"`
	ItemLanguage string          `json:"itemLanguage"`
	Placeholders json.RawMessage `json:"placeholders"`
}

type renderingFields struct {
	UID           string          `json:"uid"`
	ComponentName string          `json:"componentName"`
	RenderingID   string          `json:"renderingId"`
	DataSource    string          `json:"dataSource"`
	Params        map[string]any  `json:"params"`
	Placeholders  json.RawMessage `json:"placeholders"`
}

// ExtractRenderings walks the placeholders of a route in document order.
// Nested placeholders are recorded with their full path, e.g. main/hero-inner.
// A full layout document is accepted as well; its sitecore.route is used.
func ExtractRenderings(route []byte) ([]Rendering, error) {
	if inner, ok := layout.ExtractRoute(route); ok {
		route = inner
	}

	var r routeFields
	if err := json.Unmarshal(route, &r); err != nil {
		return nil, fmt.Errorf("decode route: %w", err)
	}

	out := []Rendering{}
	if err := walkPlaceholders(r.Placeholders, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkPlaceholders(raw json.RawMessage, prefix string, out *[]Rendering) error {
	if isEmpty(raw) {
		return nil
	}

	keys, values, err := orderedMembers(raw)
	if err != nil {
		return fmt.Errorf("decode placeholders: %w", err)
	}

	for i, key := range keys {
		path := key
		if prefix != "" {
			path = prefix + "/" + key
		}

		if isEmpty(values[i]) {
			continue
		}
		var entries []json.RawMessage
		if err := json.Unmarshal(values[i], &entries); err != nil {
			return fmt.Errorf("decode placeholder %q: %w", path, err)
		}

		for _, entry := range entries {
			var rf renderingFields
			if err := json.Unmarshal(entry, &rf); err != nil {
				return fmt.Errorf("decode rendering in %q: %w", path, err)
			}
			// Raw text nodes between components carry no componentName
			if rf.ComponentName == "" {
				continue
			}
			*out = append(*out, Rendering{
				UID:           rf.UID,
				ComponentName: rf.ComponentName,
				RenderingID:   rf.RenderingID,
				DataSource:    rf.DataSource,
				Placeholder:   path,
				Params:        rf.Params,
			})
			if err := walkPlaceholders(rf.Placeholders, path, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// orderedMembers splits a JSON object into its members keeping source order
func orderedMembers(raw json.RawMessage) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected object")
	}

	var keys []string
	var values []json.RawMessage
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected object key")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values = append(values, value)
	}
	return keys, values, nil
}

func isEmpty(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

// PageFromRoute builds a page from a layout route and optional item metadata.
// Metadata wins for the path and names; routePath is the last resort.
func PageFromRoute(route []byte, info *layout.ItemInfo, routePath string) (Page, error) {
	if inner, ok := layout.ExtractRoute(route); ok {
		route = inner
	}

	var r routeFields
	if err := json.Unmarshal(route, &r); err != nil {
		return Page{}, fmt.Errorf("decode route: %w", err)
	}

	renderings, err := ExtractRenderings(route)
	if err != nil {
		return Page{}, err
	}

	page := Page{
		ID:           r.ItemID,
		Name:         r.Name,
		DisplayName:  r.DisplayName,
		TemplateName: r.TemplateName,
		TemplateID:   r.TemplateID,
		Path:         routePath,
		URL:          routePath,
		Language:     r.ItemLanguage,
		Renderings:   renderings,
	}

	if info != nil {
		if info.Name != "" {
			page.Name = info.Name
		}
		if info.DisplayName != "" {
			page.DisplayName = info.DisplayName
		}
		if info.Path != "" {
			page.Path = info.Path
		}
	}
	if page.DisplayName == "" {
		page.DisplayName = page.Name
	}
	return page, nil
}

// BuildComponentUsage groups renderings across pages by component name.
// Results are sorted by usage count, highest first, then by name.
func BuildComponentUsage(pages []Page) []ComponentUsage {
	index := make(map[string]*ComponentUsage)
	var order []string
	seenPage := make(map[string]map[string]bool)
	seenSource := make(map[string]map[string]bool)

	for _, page := range pages {
		for _, r := range page.Renderings {
			usage, ok := index[r.ComponentName]
			if !ok {
				usage = &ComponentUsage{
					ComponentName: r.ComponentName,
					RenderingID:   r.RenderingID,
					UsedOnPages:   []PageRef{},
					Datasources:   []string{},
				}
				index[r.ComponentName] = usage
				order = append(order, r.ComponentName)
				seenPage[r.ComponentName] = make(map[string]bool)
				seenSource[r.ComponentName] = make(map[string]bool)
			}
			if usage.RenderingID == "" {
				usage.RenderingID = r.RenderingID
			}

			usage.TotalUsages++

			pageKey := page.Path + "|" + page.ID
			if !seenPage[r.ComponentName][pageKey] {
				seenPage[r.ComponentName][pageKey] = true
				usage.UsedOnPages = append(usage.UsedOnPages, PageRef{
					ID:          page.ID,
					Name:        page.Name,
					DisplayName: page.DisplayName,
					Path:        page.Path,
				})
			}

			if r.DataSource != "" && !seenSource[r.ComponentName][r.DataSource] {
				seenSource[r.ComponentName][r.DataSource] = true
				usage.Datasources = append(usage.Datasources, r.DataSource)
			}
		}
	}

	out := make([]ComponentUsage, 0, len(order))
	for _, name := range order {
		u := index[name]
		if u.RenderingID == "" {
			u.RenderingID = u.ComponentName
		}
		out = append(out, *u)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalUsages != out[j].TotalUsages {
			return out[i].TotalUsages > out[j].TotalUsages
		}
		return out[i].ComponentName < out[j].ComponentName
	})
	return out
}

// FilterPages keeps pages whose display name, path, template name or any
// rendering matches term, case-insensitively
func FilterPages(pages []Page, term string) []Page {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return pages
	}

	out := []Page{}
	for _, p := range pages {
		if containsFold(p.DisplayName, term) || containsFold(p.Path, term) || containsFold(p.TemplateName, term) {
			out = append(out, p)
			continue
		}
		for _, r := range p.Renderings {
			if containsFold(r.ComponentName, term) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// FilterComponents keeps usages whose component name or rendering id matches
func FilterComponents(usages []ComponentUsage, term string) []ComponentUsage {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return usages
	}

	out := []ComponentUsage{}
	for _, u := range usages {
		if containsFold(u.ComponentName, term) || containsFold(u.RenderingID, term) {
			out = append(out, u)
		}
	}
	return out
}

func containsFold(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}
