package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "schema"), 0755))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScenario_ResolvesSchema(t *testing.T) {
	path := writeScenario(t, `
name: s
description: d
schema: schema
form: article
assertions:
  - type: calls
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "schema"), s.Schema)
	assert.Equal(t, "article", s.Form)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertCalls, s.Assertions[0].Type)
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: s
description: d
schema: schema
form: article
assertion:
  - type: calls
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing name",
			body: "description: d\nschema: schema\nform: f\nassertions: [{type: calls}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			body: "name: n\nschema: schema\nform: f\nassertions: [{type: calls}]\n",
			want: "description is required",
		},
		{
			name: "missing schema dir",
			body: "name: n\ndescription: d\nschema: elsewhere\nform: f\nassertions: [{type: calls}]\n",
			want: "schema directory not found",
		},
		{
			name: "missing form",
			body: "name: n\ndescription: d\nschema: schema\nassertions: [{type: calls}]\n",
			want: "form is required",
		},
		{
			name: "submit and fields",
			body: "name: n\ndescription: d\nschema: schema\nform: f\nsubmit: {a: 1}\nfields: {a: 1}\nassertions: [{type: calls}]\n",
			want: "mutually exclusive",
		},
		{
			name: "stored without id",
			body: "name: n\ndescription: d\nschema: schema\nform: f\nstored: {a: 1}\nassertions: [{type: calls}]\n",
			want: "require record.id",
		},
		{
			name: "id without stored",
			body: "name: n\ndescription: d\nschema: schema\nform: f\nrecord: {id: r1}\nassertions: [{type: calls}]\n",
			want: "requires stored data",
		},
		{
			name: "no assertions",
			body: "name: n\ndescription: d\nschema: schema\nform: f\n",
			want: "assertions list is required",
		},
		{
			name: "unknown assertion",
			body: "name: n\ndescription: d\nschema: schema\nform: f\nassertions: [{type: final_state}]\n",
			want: `unknown assertion type "final_state"`,
		},
		{
			name: "record_data without expect",
			body: "name: n\ndescription: d\nschema: schema\nform: f\nassertions: [{type: record_data, path: a}]\n",
			want: "requires expect or absent",
		},
		{
			name: "attachment step without ids",
			body: "name: n\ndescription: d\nschema: schema\nform: f\nrecord: {id: r1}\nstored: {}\nattachments: [{collection: c}]\nassertions: [{type: calls}]\n",
			want: "ids are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_ExpectErrorWithoutAssertions(t *testing.T) {
	path := writeScenario(t, "name: n\ndescription: d\nschema: schema\nform: f\nexpect_error: STRUCTURAL\n")

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "STRUCTURAL", s.ExpectError)
}
