package errors

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/api/datasets/x").
		WithExtension("trace_id", "req-1").
		WithExtension("type", "overridden")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, TypeNotFound, got["type"], "standard members win over extensions")
	assert.Equal(t, "Not Found", got["title"])
	assert.Equal(t, float64(http.StatusNotFound), got["status"])
	assert.Equal(t, "/api/datasets/x", got["instance"])
	assert.Equal(t, "req-1", got["trace_id"])
	_, hasDetail := got["detail"]
	assert.False(t, hasDetail)
}

func TestProblemDetails_WithExtensionOnZeroValue(t *testing.T) {
	problem := &ProblemDetails{Status: http.StatusTeapot}
	problem.WithExtension("k", 1)
	assert.Equal(t, 1, problem.Extensions["k"])
}
