package producer

import (
	"errors"
	"strings"
	"testing"

	"github.com/boron/funnel-service/internal/funnel/store"
	"github.com/boron/funnel-service/internal/testutil"
	"github.com/boron/funnel-service/pkg/metrics"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completion(body string) string {
	return "Here is your funnel:\n\n```json\n" + body + "\n```\n\nLet me know what to change."
}

func TestExtractJSON(t *testing.T) {
	raw, err := ExtractJSON(completion(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(raw))

	raw, err = ExtractJSON("```json\r\n{\"b\":2}\r\n```\n```json\n{\"c\":3}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(raw))

	_, err = ExtractJSON("no fences here")
	assert.True(t, errors.Is(err, ErrNoJSON))

	_, err = ExtractJSON("```\n{\"a\":1}\n```")
	assert.True(t, errors.Is(err, ErrNoJSON))
}

func TestExtractFunnel_UnwrapsEnvelope(t *testing.T) {
	v, err := ExtractFunnel(completion(`{"funnel":{"name":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "x"}, v)

	v, err = ExtractFunnel(completion(`{"name":"y"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "y"}, v)

	_, err = ExtractFunnel(completion(`{"name":`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoJSON))
}

func TestIngest_Produced(t *testing.T) {
	st := store.New()
	before := promtest.ToFloat64(metrics.FunnelsIngested.WithLabelValues("produced"))

	out := Ingest(st, nil, completion(`{"funnel":`+testutil.ScenarioJSON+`}`))
	require.True(t, out.Produced)
	require.NotNil(t, out.Document)
	require.NotNil(t, out.Validation)
	assert.True(t, out.Validation.Valid)
	assert.Len(t, out.Validation.Warnings, 2)
	assert.Contains(t, out.Message, `"Test" funnel with 1 blocks`)

	assert.Equal(t, testutil.FunnelID, st.Document().ID)
	assert.Equal(t, 1, st.Metadata().Iterations)
	assert.Equal(t, before+1, promtest.ToFloat64(metrics.FunnelsIngested.WithLabelValues("produced")))
}

func TestIngest_FailuresNeverTouchStore(t *testing.T) {
	invalid := strings.Replace(testutil.ScenarioJSON, testutil.FunnelID, "not-a-uuid", 1)
	cases := map[string]struct {
		text    string
		warning string
	}{
		"no json":   {"Sure! What product is this for?", WarnNoFunnel},
		"malformed": {completion(`{"funnel": {`), WarnMalformedJSON},
		"invalid":   {completion(invalid), WarnInvalidFunnel},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			st := store.New()
			st.SetDocument(testutil.Blocks(testutil.Callout("keep")))
			before := st.Snapshot()

			out := Ingest(st, nil, tc.text)
			assert.False(t, out.Produced)
			assert.Nil(t, out.Document)
			assert.Equal(t, tc.warning, out.Warning)
			assert.Equal(t, before, st.Snapshot())
		})
	}
}

func TestIngest_InvalidReportsIssues(t *testing.T) {
	invalid := strings.Replace(testutil.ScenarioJSON, `"blocks": [`, `"blocks": [{"id":"x","type":"Nope","props":{}},`, 1)
	out := Ingest(store.New(), nil, completion(invalid))
	require.NotEmpty(t, out.Issues)
	assert.Equal(t, "blocks[0].type", out.Issues[0].Path)
}
