package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `Users:
  definition: |
    $table: users
    $define: {}
  output: |
    CREATE TABLE IF NOT EXISTS users (
        "id" INTEGER
    );

Posts:
  definition: |
    $table: posts
    $define: {}
  output: |
    stale
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tables.yml"), []byte(fixture), 0o644))
	return dir
}

func testEvents(t *testing.T, events ...TestEvent) []byte {
	t.Helper()
	var lines []string
	for _, e := range events {
		buf, err := json.Marshal(e)
		require.NoError(t, err)
		lines = append(lines, string(buf))
	}
	return []byte(strings.Join(lines, "\n"))
}

func TestParseTestResults(t *testing.T) {
	dir := writeFixture(t)
	output := testEvents(t,
		TestEvent{Action: "run", Test: "TestCompileFixtures/Posts"},
		TestEvent{Action: "output", Test: "TestCompileFixtures/Posts", Output: "        \tError:      \tNot equal: \n"},
		TestEvent{Action: "output", Test: "TestCompileFixtures/Posts", Output: `        	            	expected: "stale\n"` + "\n"},
		TestEvent{Action: "output", Test: "TestCompileFixtures/Posts", Output: `        	            	actual  : "CREATE TABLE posts (\n    \"id\" INTEGER\n);\n"` + "\n"},
		TestEvent{Action: "fail", Test: "TestCompileFixtures/Posts"},
		TestEvent{Action: "run", Test: "TestCompileFixtures/Users"},
		TestEvent{Action: "pass", Test: "TestCompileFixtures/Users"},
		TestEvent{Action: "fail", Test: "TestOther"},
	)

	failures := parseTestResults(output, dir)
	require.Len(t, failures, 1)
	assert.Equal(t, TestFailure{
		TestName: "Posts",
		YamlFile: filepath.Join(dir, "tables.yml"),
		Expected: "stale\n",
		Actual:   "CREATE TABLE posts (\n    \"id\" INTEGER\n);\n",
	}, failures[0])
}

func TestUpdateYamlFile(t *testing.T) {
	dir := writeFixture(t)
	file := filepath.Join(dir, "tables.yml")

	require.NoError(t, updateYamlFile(file, "Users", "output", "CREATE TABLE users (\n\n    \"id\" TEXT\n);\n"))
	buf, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, `Users:
  definition: |
    $table: users
    $define: {}
  output: |
    CREATE TABLE users (

        "id" TEXT
    );
Posts:
  definition: |
    $table: posts
    $define: {}
  output: |
    stale
`, string(buf))

	assert.Error(t, updateYamlFile(file, "Missing", "output", "x"))
}

func TestCategorizeFailure(t *testing.T) {
	tests := []struct {
		name     string
		failure  TestFailure
		expected string
	}{
		{
			name:     "triggers",
			failure:  TestFailure{Expected: "CREATE TRIGGER a", Actual: ""},
			expected: "Trigger count differences",
		},
		{
			name:     "ordering",
			failure:  TestFailure{Expected: "a,\nb,", Actual: "b,\na,"},
			expected: "Column ordering differences",
		},
		{
			name:     "quotes",
			failure:  TestFailure{Expected: `"a" b`, Actual: "`a` b c"},
			expected: "Other",
		},
		{
			name:     "quotes only",
			failure:  TestFailure{Expected: `CREATE TABLE "users" (x)`, Actual: "CREATE TABLE users (x)"},
			expected: "Quote differences",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, categorizeFailure(tt.failure))
		})
	}
}
