package slot

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageConfigYAML = `
entity_type: page
slots:
  - name: main
    label: Main content
    required: true
    max_widgets: 10
    allowed_widget_types:
      - core_widgets.ContentWidget
      - core_widgets.ImageWidget
    widget_controls:
      - widget_type: core_widgets.ContentWidget
        label: Content
        default_config:
          title: ""
        config_schema:
          type: object
          properties:
            title:
              type: string
          required: [title]
  - name: sidebar
    label: Sidebar
    max_widgets: 1
`

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRegistry_LoadDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "page.yaml", pageConfigYAML)

	r := NewRegistry()
	require.NoError(t, r.LoadDir(dir))

	assert.Equal(t, []string{"page"}, r.EntityTypes())

	cfg, ok := r.ConfigFor("page", "main")
	require.True(t, ok)
	assert.Equal(t, "Main content", cfg.Label)
	assert.True(t, cfg.Required)
	require.NotNil(t, cfg.MaxWidgets)
	assert.Equal(t, 10, *cfg.MaxWidgets)
	assert.True(t, cfg.AllowsType("core_widgets.ImageWidget"))
	assert.False(t, cfg.AllowsType("core_widgets.VideoWidget"))
	require.Len(t, cfg.WidgetControls, 1)
	assert.JSONEq(t, `{"title":""}`, string(cfg.WidgetControls[0].DefaultConfig))

	sidebar, ok := r.ConfigFor("page", "sidebar")
	require.True(t, ok)
	assert.Nil(t, sidebar.AllowedWidgetTypes)

	_, ok = r.ConfigFor("page", "nope")
	assert.False(t, ok)
}

func TestRegistry_LoadDir_InvalidFileAborts(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "page.yaml", pageConfigYAML)
	writeConfig(t, dir, "bad.yaml", "slots:\n  - label: missing name\n")

	r := NewRegistry()
	err := r.LoadDir(dir)
	require.Error(t, err)
	// Nothing from the failed load becomes visible.
	assert.Empty(t, r.EntityTypes())
}

func TestRegistry_ValidateWidgetConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "page.yaml", pageConfigYAML)

	r := NewRegistry()
	require.NoError(t, r.LoadDir(dir))

	ok := json.RawMessage(`{"title":"Hello"}`)
	assert.NoError(t, r.ValidateWidgetConfig("core_widgets.ContentWidget", ok))

	var cpe *ConfigParseError

	missing := json.RawMessage(`{}`)
	err := r.ValidateWidgetConfig("core_widgets.ContentWidget", missing)
	require.Error(t, err)
	assert.True(t, errors.As(err, &cpe))

	malformed := json.RawMessage(`{"title":`)
	err = r.ValidateWidgetConfig("core_widgets.ContentWidget", malformed)
	require.Error(t, err)
	assert.True(t, errors.As(err, &cpe))

	// Types without a schema accept any valid JSON document.
	assert.NoError(t, r.ValidateWidgetConfig("core_widgets.FreeformWidget", ok))
	err = r.ValidateWidgetConfig("core_widgets.FreeformWidget", malformed)
	require.Error(t, err)
}
