package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/isesword/arrow-cdata-bridge/columnar"
	"github.com/isesword/arrow-cdata-bridge/loopback"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func TestParseInt64s(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	arr, err := parseInt64s([]byte(`[1, null, -3]`), mem)
	require.NoError(t, err)
	defer arr.Release()

	assert.Equal(t, []*int64{ptr(1), nil, ptr(-3)}, int64Values(arr))

	_, err = parseInt64s([]byte(`["a"]`), mem)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	if !columnar.ZeroCopySupported() {
		t.Skip("zero-copy requires cgo")
	}

	rt := loopback.New()
	defer rt.Close()
	p := columnar.NewPipeline(rt)

	configuration := DefaultConfiguration()
	result, err := run(context.Background(), p, configuration, []byte(`[1, 2, null]`))
	require.NoError(t, err)
	defer result.Release()
	assert.Equal(t, []*int64{ptr(2), ptr(4), nil}, int64Values(result))

	configuration.Operation = "multiply"
	squared, err := run(context.Background(), p, configuration, []byte(`[3, -4]`))
	require.NoError(t, err)
	defer squared.Release()
	assert.Equal(t, []*int64{ptr(9), ptr(16)}, int64Values(squared))

	// 输入和中间结果都已在运行时中释放
	assert.Equal(t, 0, rt.Len())

	configuration.Operation = "divide"
	_, err = run(context.Background(), p, configuration, []byte(`[1]`))
	assert.Error(t, err)
}

type closeTracker struct {
	*loopback.Runtime
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return c.Runtime.Close()
}

func TestExecuteClosesRuntimeOnFailure(t *testing.T) {
	tracker := &closeTracker{Runtime: loopback.New()}
	orig := openRuntime
	openRuntime = func(*Configuration) (foreignRuntime, error) { return tracker, nil }
	defer func() { openRuntime = orig }()

	err := execute(options{values: `["not a number"]`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call failed")
	assert.True(t, tracker.closed, "runtime must be closed before the error reaches main")
}

func TestWriteReadIPC(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	arr, err := parseInt64s([]byte(`[5, null, 7]`), mem)
	require.NoError(t, err)
	defer arr.Release()

	var buf bytes.Buffer
	require.NoError(t, WriteIPC(&buf, "add", arr, mem))

	got, err := ReadIPC(&buf, mem)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, int64Values(arr), int64Values(got))

	_, err = ReadIPC(strings.NewReader("not arrow"), mem)
	assert.Error(t, err)
}

func TestMetricsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := columnar.NewMetrics("cli_test", reg)
	metrics.RecordCall("add", nil, 0)

	server := NewMetricsServer("127.0.0.1:0", reg)
	ts := httptest.NewServer(server.server.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `cli_test_calls_total{op="add",status="ok"} 1`)
}
