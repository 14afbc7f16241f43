package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchema(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
	}
	return dir
}

func TestLoadDir(t *testing.T) {
	dir := writeSchema(t, map[string]string{
		"article.cue": `
package schema

form: article: {
	owner: "article"
	fields: [
		{key: "title"},
		{key: "gallery", repeat: fields: [{key: "image", attachment: true}]},
	]
}
`,
		"page.cue": `
package schema

form: page: {
	owner: "page"
	fields: [{key: "body"}]
}
`,
	})

	result, errs := LoadDir(dir, LoadModeCollectAll)
	require.Empty(t, errs)
	assert.Equal(t, 2, result.FileCount)
	require.Len(t, result.Forms, 2)
	assert.Equal(t, "article", result.Forms[0].Name)
	assert.Equal(t, "page", result.Forms[1].Name)

	form, ok := result.Form("page")
	require.True(t, ok)
	assert.Equal(t, "page", form.Owner)

	_, ok = result.Form("missing")
	assert.False(t, ok)
}

func TestLoadDirNotFound(t *testing.T) {
	_, errs := LoadDir(filepath.Join(t.TempDir(), "nope"), LoadModeFailFast)
	require.Len(t, errs, 1)

	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestLoadDirNoFiles(t *testing.T) {
	_, errs := LoadDir(t.TempDir(), LoadModeFailFast)
	require.Len(t, errs, 1)

	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrCodeNoFiles, le.Code)
}

func TestLoadDirCollectAll(t *testing.T) {
	dir := writeSchema(t, map[string]string{
		"bad.cue": `
package schema

form: a: {fields: [{key: "x"}]}
form: b: {owner: "page"}
form: c: {
	owner: "page"
	fields: [
		{key: "cover", attachment: true},
		{key: "banner", attachment: true},
	]
}
form: d: {owner: "page", fields: [{key: "ok"}]}
`,
	})

	result, errs := LoadDir(dir, LoadModeCollectAll)
	require.Len(t, errs, 3)
	require.NotNil(t, result)

	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrCodeCompile, le.Code)
	require.ErrorAs(t, errs[2], &le)
	assert.Equal(t, ErrCollectionShared, le.Code)

	names := make([]string, len(result.Forms))
	for i, f := range result.Forms {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"d"}, names)
}

func TestLoadDirFailFast(t *testing.T) {
	dir := writeSchema(t, map[string]string{
		"bad.cue": `
package schema

form: a: {fields: [{key: "x"}]}
form: b: {owner: "page"}
`,
	})

	_, errs := LoadDir(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}

func TestLoadDirSyntaxError(t *testing.T) {
	dir := writeSchema(t, map[string]string{
		"bad.cue": "package schema\n\nform: {{{\n",
	})

	_, errs := LoadDir(dir, LoadModeFailFast)
	require.Len(t, errs, 1)

	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrCodeLoadFailed, le.Code)
}
