package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewSource(t *testing.T, doc string) Source {
	t.Helper()
	docs, err := decodeDocuments([]byte(doc))
	require.NoError(t, err)
	src, err := newSource("active.yml", "active", docs[0], keyView, keySelect)
	require.NoError(t, err)
	return src
}

func TestNewView(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected View
	}{
		{
			name:     "string select",
			doc:      "$view: active_users\n$select: SELECT * FROM users WHERE delete_date_time IS NULL\n",
			expected: View{Name: "active_users", Priority: DefaultPriority, Select: "SELECT * FROM users WHERE delete_date_time IS NULL"},
		},
		{
			name:     "line list",
			doc:      "$view: v\n$priority: 5\n$select:\n  - SELECT id\n  - FROM users\n",
			expected: View{Name: "v", Priority: 5, Select: "SELECT id\nFROM users"},
		},
		{
			name:     "named after the file",
			doc:      "$select: SELECT 1\n",
			expected: View{Name: "active", Priority: DefaultPriority, Select: "SELECT 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewView(viewSource(t, tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *v)
		})
	}
}

func TestNewViewErrors(t *testing.T) {
	for _, doc := range []string{
		"$view: v\n$select: '  '\n",
		"$view: v\n$select: [1, 2]\n",
		"$view: 3\n$select: SELECT 1\n",
	} {
		_, err := NewView(viewSource(t, doc))
		assert.ErrorIs(t, err, ErrInvalidDefinition, doc)
	}
}

func TestViewSQL(t *testing.T) {
	v := View{Name: "v", Select: "SELECT 1;"}
	assert.Equal(t, "CREATE VIEW IF NOT EXISTS v AS SELECT 1;", v.SQL(newTestBuilder(t, DialectSQLite, false)))
	assert.Equal(t, "CREATE OR REPLACE VIEW `v` AS SELECT 1;", v.SQL(newTestBuilder(t, DialectMySQL, true)))
}
