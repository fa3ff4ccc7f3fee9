package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSourceConfig() FileSourceConfig {
	return FileSourceConfig{
		Containers: "#taskOverview, #kt_content",
		Attributes: []string{"data-original-sku", "title"},
		Targets:    "#taskOverview, #kt_content",
	}
}

func snapshotPage(qty int, originalSKU string) string {
	return fmt.Sprintf(`<html><body>
<div id="taskOverview"><table class="table table-hover"><tbody>
<tr><td class="text-nowrap" data-original-sku="%s">55</td><td>Dog Food</td><td>%d</td></tr>
</tbody></table></div>
<div id="footer">static</div>
</body></html>`, originalSKU, qty)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileSource_Probe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	source := NewFileSource(path, testSourceConfig(), zap.NewNop())

	assert.False(t, source.Probe(), "missing file")

	writeFile(t, path, `<html><body><div id="other"></div></body></html>`)
	assert.False(t, source.Probe(), "no watch target")

	writeFile(t, path, snapshotPage(1, "55"))
	assert.True(t, source.Probe())
}

func TestFileSource_Diff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	source := NewFileSource(path, testSourceConfig(), zap.NewNop())
	filter := NewRelevanceFilter(testFilterConfig())

	writeFile(t, path, snapshotPage(1, "55"))
	first, err := source.load()
	require.NoError(t, err)

	t.Run("identical snapshot has no mutations", func(t *testing.T) {
		again, err := source.load()
		require.NoError(t, err)
		assert.Empty(t, diff(first, again))
	})

	t.Run("container content change", func(t *testing.T) {
		writeFile(t, path, snapshotPage(2, "55"))
		next, err := source.load()
		require.NoError(t, err)

		mutations := diff(first, next)
		require.Len(t, mutations, 1)
		assert.Equal(t, ChildList, mutations[0].Type)
		assert.Equal(t, "taskOverview", mutations[0].Target.AttrOr("id", ""))
		assert.True(t, filter.Relevant(mutations))
	})

	t.Run("tracked attribute change", func(t *testing.T) {
		writeFile(t, path, snapshotPage(1, "77"))
		next, err := source.load()
		require.NoError(t, err)

		var attrs []Mutation
		for _, m := range diff(first, next) {
			if m.Type == Attributes {
				attrs = append(attrs, m)
			}
		}
		require.Len(t, attrs, 1)
		assert.Equal(t, "data-original-sku", attrs[0].AttributeName)
		assert.True(t, filter.Relevant(attrs))
	})

	t.Run("no previous snapshot reports everything", func(t *testing.T) {
		assert.NotEmpty(t, diff(nil, first))
	})
}

func TestFileSource_Run(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	writeFile(t, path, snapshotPage(0, "55"))

	source := NewFileSource(path, testSourceConfig(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 16)
	done := make(chan error, 1)
	go func() { done <- source.Run(ctx, events) }()

	// The watch is registered asynchronously; rewrite until an event arrives
	qty := 0
	var got Event
	require.Eventually(t, func() bool {
		qty++
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return false
		}
		_, _ = f.WriteString(snapshotPage(qty, "55"))
		_ = f.Close()
		select {
		case got = <-events:
			return len(got.Mutations) > 0
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, ChildList, got.Mutations[0].Type)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
