package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/jhadepilot/internal/config"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	rt, err := Setup(context.Background(), "jhadepilot-test", config.TraceConfig{}, nil)
	require.NoError(t, err)
	require.NotNil(t, rt.Tracer)
	assert.NoError(t, rt.Shutdown(context.Background()))
}

func TestSetupStdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	rt, err := Setup(context.Background(), "jhadepilot-test", config.TraceConfig{Enabled: true}, &buf)
	require.NoError(t, err)

	_, span := rt.Tracer.Start(context.Background(), "orchestrate")
	span.End()

	require.NoError(t, rt.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"orchestrate"`)
}
