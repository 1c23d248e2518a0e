package sitecore

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const layoutQuery = `
query GetItemLayout($siteName: String!, $routePath: String!, $language: String!) {
  layout(site: $siteName, routePath: $routePath, language: $language) {
    item {
      rendered
    }
  }
}`

const itemInfoQuery = `
query GetItemInfo($siteName: String!, $routePath: String!, $language: String!) {
  layout(site: $siteName, routePath: $routePath, language: $language) {
    item {
      name
      displayName
      path
      url {
        path
      }
    }
  }
}`

const itemByPathQuery = `
query GetPublishedItem($itemId: String!, $language: String!) {
  item(path: $itemId, language: $language) {
    id
    name
    path
    displayName
    url {
      path
    }
  }
}`

const probeQuery = `
query TestConnection {
  __schema {
    queryType {
      name
    }
  }
}`

// renderedField accepts the rendered layout either as a JSON string holding
// the document or as the document itself
type renderedField struct {
	raw json.RawMessage
}

func (r *renderedField) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		r.raw = nil
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("rendered: %w", err)
		}
		r.raw = json.RawMessage(s)
	case '{', '[':
		r.raw = append(json.RawMessage(nil), trimmed...)
	default:
		return fmt.Errorf("rendered: unexpected JSON value %.20s", trimmed)
	}
	return nil
}

// String returns the layout document text, empty when absent
func (r renderedField) String() string {
	s := string(bytes.TrimSpace(r.raw))
	if s == "null" {
		return ""
	}
	return s
}

type layoutResponse struct {
	Layout *struct {
		Item *struct {
			Rendered renderedField `json:"rendered"`
		} `json:"item"`
	} `json:"layout"`
}

func (r layoutResponse) rendered() string {
	if r.Layout == nil || r.Layout.Item == nil {
		return ""
	}
	return r.Layout.Item.Rendered.String()
}

type urlField struct {
	Path string `json:"path"`
}

type itemFields struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Path        string    `json:"path"`
	URL         *urlField `json:"url"`
}

type itemResponse struct {
	Layout *struct {
		Item *itemFields `json:"item"`
	} `json:"layout"`
}

type itemByPathResponse struct {
	Item *itemFields `json:"item"`
}

type schemaResponse struct {
	Schema *struct {
		QueryType *struct {
			Name string `json:"name"`
		} `json:"queryType"`
	} `json:"__schema"`
}
