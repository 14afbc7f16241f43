package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type jsonResponse[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

func decode[T any](t *testing.T, out string) jsonResponse[T] {
	t.Helper()
	var resp jsonResponse[T]
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

type uploaded struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type submitted struct {
	Record      string            `json:"record"`
	Data        map[string]any    `json:"data"`
	Collections map[string]string `json:"collections"`
	Added       []string          `json:"added"`
	Removed     []string          `json:"removed"`
}

type boundField struct {
	Address     string     `json:"address"`
	Collection  string     `json:"collection"`
	Template    bool       `json:"template"`
	Attachments []uploaded `json:"attachments"`
}

type boundForm struct {
	Form   string       `json:"form"`
	Fields []boundField `json:"fields"`
	Groups []struct {
		Address string `json:"address"`
		Items   []struct {
			ID     string       `json:"id"`
			Fields []boundField `json:"fields"`
		} `json:"items"`
		Template struct {
			Fields []boundField `json:"fields"`
		} `json:"template"`
	} `json:"groups"`
	Rules []string `json:"rules"`
}

func TestUploadCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "forms.db")

	out, err := execute(t, "upload", "--db", db, "--format", "json", "beach.jpg", "sunset.jpg")
	require.NoError(t, err)

	resp := decode[[]uploaded](t, out)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "beach.jpg", resp.Data[0].Name)
	assert.NotEmpty(t, resp.Data[0].ID)
	assert.NotEqual(t, resp.Data[0].ID, resp.Data[1].ID)
}

func TestUploadCommandText(t *testing.T) {
	db := filepath.Join(t.TempDir(), "forms.db")

	out, err := execute(t, "upload", "--db", db, "beach.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "\tbeach.jpg"), out)
}

func TestSubmitThenRender(t *testing.T) {
	db := filepath.Join(t.TempDir(), "forms.db")

	out, err := execute(t, "upload", "--db", db, "--format", "json", "beach.jpg")
	require.NoError(t, err)
	upload := decode[[]uploaded](t, out).Data[0]

	out, err = execute(t, "submit",
		"--schema", schemaDir, "--form", "article", "--db", db, "--format", "json",
		"--field", "title=Trip",
		"--field", "gallery[0][caption]=Beach",
		"--field", "gallery[0][image][uploaded]="+upload.ID,
	)
	require.NoError(t, err, out)

	saved := decode[submitted](t, out).Data
	require.True(t, strings.HasPrefix(saved.Record, "article/"), saved.Record)
	assert.Equal(t, "Trip", saved.Data["title"])
	require.Len(t, saved.Added, 1)
	itemAddr := saved.Added[0]
	assert.True(t, strings.HasPrefix(itemAddr, "gallery."), itemAddr)
	itemID := strings.TrimPrefix(itemAddr, "gallery.")
	assert.Equal(t, "image.gallery."+itemID, saved.Collections[itemAddr+".image"])

	recordID := strings.TrimPrefix(saved.Record, "article/")
	out, err = execute(t, "render",
		"--schema", schemaDir, "--form", "article", "--db", db, "--record", recordID, "--format", "json")
	require.NoError(t, err, out)

	bound := decode[boundForm](t, out).Data
	assert.Equal(t, "article", bound.Form)
	require.Len(t, bound.Groups, 1)
	gallery := bound.Groups[0]
	assert.Equal(t, "gallery", gallery.Address)
	require.Len(t, gallery.Items, 1)
	assert.Equal(t, itemID, gallery.Items[0].ID)

	var image *boundField
	for i, f := range gallery.Items[0].Fields {
		if f.Address == itemAddr+".image" {
			image = &gallery.Items[0].Fields[i]
		}
	}
	require.NotNil(t, image)
	assert.Equal(t, "image.gallery."+itemID, image.Collection)
	require.Len(t, image.Attachments, 1)
	assert.Equal(t, upload.ID, image.Attachments[0].ID)

	for _, f := range gallery.Template.Fields {
		assert.True(t, f.Template, f.Address)
		assert.Empty(t, f.Collection, f.Address)
	}

	out, err = execute(t, "render",
		"--schema", schemaDir, "--form", "article", "--db", db, "--record", recordID)
	require.NoError(t, err)
	assert.Contains(t, out, "article "+saved.Record)
	assert.Contains(t, out, "gallery (1 item(s))")
	assert.Contains(t, out, "[image.gallery."+itemID+": 1]")
	assert.Contains(t, out, `title = "Trip"`)
}

func TestSubmitFromJSONFile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "forms.db")
	data := filepath.Join(dir, "book.json")
	require.NoError(t, os.WriteFile(data, []byte(`{
		"title": "Atlas",
		"chapters": [
			{"heading": "One", "sections": [{"body": "a"}, {"body": "b"}]}
		]
	}`), 0644))

	out, err := execute(t, "submit",
		"--schema", schemaDir, "--form", "book", "--db", db, "--data", data)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ Saved book/")
	assert.Equal(t, 3, strings.Count(out, "  + "), out)
}

func TestSubmitCountViolation(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "forms.db")
	data := filepath.Join(dir, "too-many.json")
	require.NoError(t, os.WriteFile(data, []byte(`{"gallery": [
		{"caption": "1"}, {"caption": "2"}, {"caption": "3"}, {"caption": "4"}
	]}`), 0644))

	out, err := execute(t, "submit",
		"--schema", schemaDir, "--form", "article", "--db", db, "--data", data, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode[any](t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "STRUCTURAL", resp.Error.Code)
	assert.Equal(t, "add would exceed max_items", resp.Error.Message)
}

func TestSubmitInvalidInput(t *testing.T) {
	db := filepath.Join(t.TempDir(), "forms.db")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no payload", nil, "one of --data or --field is required"},
		{"malformed pair", []string{"--field", "title"}, "want key=value"},
		{"missing file", []string{"--data", "/nonexistent/data.json"}, "open submission"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"submit", "--schema", schemaDir, "--form", "article", "--db", db}, tt.args...)
			out, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [E022]")
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestRenderUnknownForm(t *testing.T) {
	db := filepath.Join(t.TempDir(), "forms.db")

	out, err := execute(t, "render", "--schema", schemaDir, "--form", "missing", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E020]")
}

func TestRenderMissingRecord(t *testing.T) {
	db := filepath.Join(t.TempDir(), "forms.db")

	out, err := execute(t, "render", "--schema", schemaDir, "--form", "article", "--db", db, "--record", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E023]")
}

func TestRenderNewRecordUsesDefaultCollection(t *testing.T) {
	db := filepath.Join(t.TempDir(), "forms.db")

	out, err := execute(t, "render",
		"--schema", schemaDir, "--form", "article", "--db", db,
		"--default-collection", "uploads", "--format", "json")
	require.NoError(t, err, out)

	bound := decode[boundForm](t, out).Data
	for _, f := range bound.Fields {
		if f.Address == "cover" {
			assert.Equal(t, "uploads", f.Collection)
			return
		}
	}
	t.Fatal("cover field not bound")
}
