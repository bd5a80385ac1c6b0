package schema_test

import (
	"testing"

	"github.com/sqldef/auditdef/testutil"
	"github.com/stretchr/testify/require"
)

func TestCompileFixtures(t *testing.T) {
	tests, err := testutil.ReadTests("testdata/*.yml")
	require.NoError(t, err)
	require.NotEmpty(t, tests)

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.RunCompileTest(t, name, test)
		})
	}
}
