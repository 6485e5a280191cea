package gviz

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

func TestProject(t *testing.T) {
	resp, err := Parse("/*O_o*/\ngoogle.visualization.Query.setResponse(" + samplePayload + ");")
	require.NoError(t, err)

	proj, err := Project(resp)
	require.NoError(t, err)

	// Column C has no label, so its id is the header.
	assert.Equal(t, []string{"Product Name", "MRP", "C"}, proj.Headers)
	require.Len(t, proj.Rows, 2)

	assert.Equal(t, catalog.Row{"Product Name": "Paracetamol", "MRP": "15.50"}, proj.Rows[0])
	assert.Equal(t, catalog.Row{"Product Name": "Ibuprofen", "MRP": json.Number("42"), "C": "x"}, proj.Rows[1])
}

func TestProject_ColumnAlignment(t *testing.T) {
	payload := `{"status":"ok","table":{` +
		`"cols":[{"id":"A","label":"Name"},{"id":"","label":"  "},{"id":"C","label":"Stock"}],` +
		`"rows":[` +
		`{"c":[{"v":"Zinc"},{"v":"ignored"},{"v":7}]},` +
		`{"c":[null,{"v":"ignored"},{"v":3},{"v":"overflow"}]},` +
		`{"c":[{"v":"Short"}]},` +
		`{"c":[]}` +
		`]}}`

	resp, err := Parse(payload)
	require.NoError(t, err)
	proj, err := Project(resp)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Stock"}, proj.Headers)
	assert.Equal(t, []catalog.Row{
		{"Name": "Zinc", "Stock": json.Number("7")},
		{"Stock": json.Number("3")},
		{"Name": "Short"},
		{},
	}, proj.Rows)
}

func TestProject_DuplicateLabels(t *testing.T) {
	payload := `{"status":"ok","table":{` +
		`"cols":[{"id":"A","label":"Name"},{"id":"B","label":"Name"}],` +
		`"rows":[{"c":[{"v":"first"},{"v":"second"}]},{"c":[{"v":"only"},null]}]}}`

	resp, err := Parse(payload)
	require.NoError(t, err)
	proj, err := Project(resp)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name"}, proj.Headers)
	assert.Equal(t, "second", proj.Rows[0]["Name"])
	assert.Equal(t, "only", proj.Rows[1]["Name"])
}

func TestProject_SchemaErrors(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus string
		wantDetail string
	}{
		{
			name:       "error status with detailed message",
			payload:    `{"status":"error","errors":[{"reason":"access_denied","message":"Access denied","detailed_message":"Sheet is private"}]}`,
			wantStatus: "error",
			wantDetail: "Sheet is private",
		},
		{
			name:       "error status with message only",
			payload:    `{"status":"error","errors":[{"reason":"invalid_query","message":"INVALID_QUERY"}]}`,
			wantStatus: "error",
			wantDetail: "INVALID_QUERY",
		},
		{
			name:       "ok status without table",
			payload:    `{"status":"ok"}`,
			wantStatus: "ok",
		},
		{
			name:       "non-ok status is rejected",
			payload:    `{"status":"warning","table":{"cols":[],"rows":[]}}`,
			wantStatus: "warning",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Parse(tt.payload)
			require.NoError(t, err)

			proj, err := Project(resp)
			assert.Nil(t, proj)

			var se *SchemaError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.wantStatus, se.Status)
			assert.Equal(t, tt.wantDetail, se.Detail)
			assert.ErrorIs(t, err, ErrNoTable)
			assert.Contains(t, err.Error(), "no table")
		})
	}

	t.Run("nil response", func(t *testing.T) {
		_, err := Project(nil)
		assert.ErrorIs(t, err, ErrNoTable)
	})
}

func TestProject_Deterministic(t *testing.T) {
	resp, err := Parse(samplePayload)
	require.NoError(t, err)

	first, err := Project(resp)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Project(resp)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestColumnHeaders(t *testing.T) {
	cols := []Column{
		{ID: "A", Label: " Name "},
		{ID: "B", Label: ""},
		{ID: "", Label: ""},
	}
	assert.Equal(t, []string{"Name", "B", ""}, ColumnHeaders(cols))
}
