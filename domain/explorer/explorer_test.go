package explorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmarsh1987/XMCVisualiser/domain/layout"
)

const homeRoute = `{
	"itemId": "home-id",
	"name": "Home",
	"displayName": "Home Page",
	"templateName": "Page",
	"templateId": "tpl-1",
	"itemLanguage": "en",
	"placeholders": {
		"main": [
			{"uid": "u1", "componentName": "Hero", "dataSource": "/data/hero", "params": {"style": "dark"},
			 "placeholders": {"hero-inner": [{"uid": "u2", "componentName": "Button"}]}},
			{"uid": "u3", "componentName": "RichText", "dataSource": "/data/text"}
		],
		"footer": [
			{"uid": "u4", "componentName": "Footer"},
			{"name": "code", "contents": "raw"}
		]
	}
}`

const aboutRoute = `{
	"itemId": "about-id",
	"name": "About",
	"templateName": "Landing",
	"placeholders": {
		"main": [
			{"uid": "a1", "componentName": "Hero", "dataSource": "/data/hero-about"},
			{"uid": "a2", "componentName": "Hero", "dataSource": "/data/hero"}
		]
	}
}`

func TestExtractRenderings_DocumentOrderAndNesting(t *testing.T) {
	renderings, err := ExtractRenderings([]byte(homeRoute))
	require.NoError(t, err)

	var names, placeholders []string
	for _, r := range renderings {
		names = append(names, r.ComponentName)
		placeholders = append(placeholders, r.Placeholder)
	}

	assert.Equal(t, []string{"Hero", "Button", "RichText", "Footer"}, names)
	assert.Equal(t, []string{"main", "main/hero-inner", "main", "footer"}, placeholders)
	assert.Equal(t, "dark", renderings[0].Params["style"])
	assert.Equal(t, "/data/hero", renderings[0].DataSource)
}

func TestExtractRenderings_AcceptsFullDocument(t *testing.T) {
	doc := `{"sitecore":{"context":{},"route":` + homeRoute + `}}`

	renderings, err := ExtractRenderings([]byte(doc))
	require.NoError(t, err)
	assert.Len(t, renderings, 4)
}

func TestExtractRenderings_NoPlaceholders(t *testing.T) {
	renderings, err := ExtractRenderings([]byte(`{"name":"Empty","placeholders":null}`))
	require.NoError(t, err)
	assert.Empty(t, renderings)
}

func TestExtractRenderings_Malformed(t *testing.T) {
	_, err := ExtractRenderings([]byte(`not json`))
	assert.Error(t, err)

	_, err = ExtractRenderings([]byte(`{"placeholders":{"main":"oops"}}`))
	assert.Error(t, err)
}

func TestPageFromRoute(t *testing.T) {
	info := &layout.ItemInfo{Name: "home", DisplayName: "Welcome", Path: "/sitecore/content/site/home"}

	page, err := PageFromRoute([]byte(homeRoute), info, "/")
	require.NoError(t, err)

	assert.Equal(t, "home-id", page.ID)
	assert.Equal(t, "home", page.Name)
	assert.Equal(t, "Welcome", page.DisplayName)
	assert.Equal(t, "/sitecore/content/site/home", page.Path)
	assert.Equal(t, "/", page.URL)
	assert.Equal(t, "Page", page.TemplateName)
	assert.Equal(t, "en", page.Language)
	assert.Len(t, page.Renderings, 4)
}

func TestPageFromRoute_WithoutItemInfo(t *testing.T) {
	page, err := PageFromRoute([]byte(aboutRoute), nil, "/about")
	require.NoError(t, err)

	assert.Equal(t, "/about", page.Path)
	assert.Equal(t, "About", page.DisplayName)
}

func buildPages(t *testing.T) []Page {
	t.Helper()
	home, err := PageFromRoute([]byte(homeRoute), nil, "/")
	require.NoError(t, err)
	about, err := PageFromRoute([]byte(aboutRoute), nil, "/about")
	require.NoError(t, err)
	return []Page{home, about}
}

func TestBuildComponentUsage(t *testing.T) {
	usages := BuildComponentUsage(buildPages(t))

	require.Len(t, usages, 4)
	hero := usages[0]
	assert.Equal(t, "Hero", hero.ComponentName)
	assert.Equal(t, 3, hero.TotalUsages)
	assert.Len(t, hero.UsedOnPages, 2)
	assert.Equal(t, []string{"/data/hero", "/data/hero-about"}, hero.Datasources)
	assert.Equal(t, "Hero", hero.RenderingID)

	// ties sorted by name
	var rest []string
	for _, u := range usages[1:] {
		rest = append(rest, u.ComponentName)
	}
	assert.Equal(t, []string{"Button", "Footer", "RichText"}, rest)
}

func TestBuildComponentUsage_Empty(t *testing.T) {
	assert.Empty(t, BuildComponentUsage(nil))
}

func TestFilterPages(t *testing.T) {
	pages := buildPages(t)

	assert.Len(t, FilterPages(pages, ""), 2)
	assert.Len(t, FilterPages(pages, "landing"), 1)
	assert.Len(t, FilterPages(pages, "BUTTON"), 1)
	assert.Len(t, FilterPages(pages, "/about"), 1)
	assert.Len(t, FilterPages(pages, "hero"), 2)
	assert.Empty(t, FilterPages(pages, "nothing-matches"))
}

func TestFilterComponents(t *testing.T) {
	usages := BuildComponentUsage(buildPages(t))

	assert.Len(t, FilterComponents(usages, "  "), 4)
	filtered := FilterComponents(usages, "rich")
	require.Len(t, filtered, 1)
	assert.Equal(t, "RichText", filtered[0].ComponentName)
}
