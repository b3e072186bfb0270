package health_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exograph/exo-core/health"
)

func TestCheckSucceedsOn2xxWithNoErrors(t *testing.T) {
	checker := health.NewChecker(health.Config{Query: health.DefaultQuery}, func(ctx context.Context, query, variablesJSON string) (int, []byte, error) {
		assert.Equal(t, health.DefaultQuery, query)
		return 200, []byte(`{"data":{"__typename":"Query"}}`), nil
	})
	result := checker.Check(context.Background())
	assert.True(t, result.OK)
}

func TestCheckFailsOnErrorsField(t *testing.T) {
	checker := health.NewChecker(health.Config{Query: health.DefaultQuery}, func(ctx context.Context, query, variablesJSON string) (int, []byte, error) {
		return 200, []byte(`{"errors":[{"message":"boom"}]}`), nil
	})
	result := checker.Check(context.Background())
	assert.False(t, result.OK)
}

func TestCheckFailsOnNon2xx(t *testing.T) {
	checker := health.NewChecker(health.Config{Query: health.DefaultQuery}, func(ctx context.Context, query, variablesJSON string) (int, []byte, error) {
		return 500, []byte(`{}`), nil
	})
	result := checker.Check(context.Background())
	assert.False(t, result.OK)
}

func TestCheckAppliesJSONPointerAssertion(t *testing.T) {
	cfg := health.Config{Query: `{ ping { ok } }`, ResponseJSONPointer: "/data/ping/ok"}

	okChecker := health.NewChecker(cfg, func(ctx context.Context, query, variablesJSON string) (int, []byte, error) {
		return 200, []byte(`{"data":{"ping":{"ok":true}}}`), nil
	})
	assert.True(t, okChecker.Check(context.Background()).OK)

	badChecker := health.NewChecker(cfg, func(ctx context.Context, query, variablesJSON string) (int, []byte, error) {
		return 200, []byte(`{"data":{"ping":{"ok":false}}}`), nil
	})
	assert.False(t, badChecker.Check(context.Background()).OK)
}

func TestResolveQueryFallsBackToDefaultOnUnknownEnvVar(t *testing.T) {
	require.NoError(t, os.Unsetenv("EXO_HEALTHZ_TEST_UNSET_VAR"))
	cfg := health.Config{Query: `{ ping }`, VariablesJSON: `{"id": "${EXO_HEALTHZ_TEST_UNSET_VAR}"}`}

	var gotQuery string
	checker := health.NewChecker(cfg, func(ctx context.Context, query, variablesJSON string) (int, []byte, error) {
		gotQuery = query
		return 200, []byte(`{"data":{}}`), nil
	})
	result := checker.Check(context.Background())
	assert.True(t, result.OK)
	assert.Equal(t, health.DefaultQuery, gotQuery)
}

func TestExpandVariablesSubstitutesKnownEnvVars(t *testing.T) {
	require.NoError(t, os.Setenv("EXO_HEALTHZ_TEST_TENANT", "acme"))
	defer os.Unsetenv("EXO_HEALTHZ_TEST_TENANT")

	expanded, ok := health.ExpandVariables(`{"tenant": "${EXO_HEALTHZ_TEST_TENANT}"}`)
	require.True(t, ok)
	assert.Equal(t, `{"tenant": "acme"}`, expanded)
}
