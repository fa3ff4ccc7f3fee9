package watcher

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const filterPage = `<html><body>
<div id="app">
<div id="taskOverview"><table class="table table-hover"><tbody>
<tr id="row"><td id="cell" data-original-sku="55">55</td></tr>
</tbody></table></div>
<div id="sidebar"><span id="badge" title="ברקוד הוחלף: 12">x</span><span id="plain" title="hello">y</span>
<span id="hl" class="barcode-highlight">z</span></div>
<div id="fresh"><div id="wrapper"><table class="table-hover"></table></div></div>
</div>
</body></html>`

func testFilterConfig() FilterConfig {
	return FilterConfig{
		ChildListTargets:  "#taskOverview, #kt_content, table.table-hover",
		AddedNodes:        "#taskOverview table, #taskOverview tr, #kt_content table, #kt_content tr, table.table-hover, table.table-hover tr",
		AddedNodesContain: "#taskOverview table, #kt_content table, table.table-hover",
		AttributeTargets:  "#taskOverview table, #kt_content table, table.table-hover",
		HighlightClass:    "barcode-highlight",
		TitleMarker:       "ברקוד הוחלף",
		TrackedAttributes: []string{"data-original-sku"},
	}
}

func TestRelevanceFilter(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(filterPage))
	require.NoError(t, err)
	el := func(sel string) *goquery.Selection { return doc.Find(sel) }
	filter := NewRelevanceFilter(testFilterConfig())

	tests := []struct {
		name     string
		mutation Mutation
		want     bool
	}{
		{"childList inside container", Mutation{Type: ChildList, Target: el("#row")}, true},
		{"childList on container itself", Mutation{Type: ChildList, Target: el("#taskOverview")}, true},
		{"childList elsewhere", Mutation{Type: ChildList, Target: el("#sidebar"), AddedNodes: el("#badge")}, false},
		{"added table", Mutation{Type: ChildList, Target: el("#wrapper"), AddedNodes: el("#wrapper table")}, true},
		{"added node containing table", Mutation{Type: ChildList, Target: el("#fresh"), AddedNodes: el("#wrapper")}, true},
		{"attribute inside table", Mutation{Type: Attributes, Target: el("#cell"), AttributeName: "class"}, true},
		{"highlight class", Mutation{Type: Attributes, Target: el("#hl"), AttributeName: "class"}, true},
		{"title with marker", Mutation{Type: Attributes, Target: el("#badge"), AttributeName: "title"}, true},
		{"title without marker", Mutation{Type: Attributes, Target: el("#plain"), AttributeName: "title"}, false},
		{"tracked attribute anywhere", Mutation{Type: Attributes, Target: el("#plain"), AttributeName: "data-original-sku"}, true},
		{"other attribute elsewhere", Mutation{Type: Attributes, Target: el("#plain"), AttributeName: "style"}, false},
		{"nil target", Mutation{Type: ChildList}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filter.Relevant([]Mutation{tt.mutation}))
		})
	}
}

func TestRelevanceFilter_AnyMutationInBatch(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(filterPage))
	require.NoError(t, err)
	filter := NewRelevanceFilter(testFilterConfig())

	batch := []Mutation{
		{Type: Attributes, Target: doc.Find("#plain"), AttributeName: "style"},
		{Type: ChildList, Target: doc.Find("#row")},
	}
	assert.True(t, filter.Relevant(batch))
	assert.False(t, filter.Relevant(batch[:1]))
	assert.False(t, filter.Relevant(nil))
}

func TestRelevanceFilter_EmptyConfigNeverMatches(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(filterPage))
	require.NoError(t, err)

	filter := NewRelevanceFilter(FilterConfig{})
	assert.False(t, filter.Relevant([]Mutation{
		{Type: ChildList, Target: doc.Find("#row"), AddedNodes: doc.Find("#wrapper")},
		{Type: Attributes, Target: doc.Find("#hl"), AttributeName: "title"},
	}))
}
