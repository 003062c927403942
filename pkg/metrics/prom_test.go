package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveQuery(t *testing.T) {
	before := testutil.CollectAndCount(QueryDuration)
	ObserveQuery("test_op", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.CollectAndCount(QueryDuration))
}

func TestStartPrometheusServer(t *testing.T) {
	RowsInserted.WithLabelValues("clientes").Add(2)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	StartPrometheusServer(ctx, &wg, &PromServerOpts{Addr: "127.0.0.1:19100"})

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:19100/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	assert.True(t, strings.Contains(body, `dbrest_rows_inserted_total{table="clientes"}`))

	cancel()
	wg.Wait()
}

func TestCountInsert(t *testing.T) {
	counter := RowsInserted.WithLabelValues("maquinarian.ma_maestro_orden_trabajo")
	before := testutil.ToFloat64(counter)

	CountInsert("MAQUINARIAN.MA_MAESTRO_ORDEN_TRABAJO")
	CountInsert("maquinarian.ma_maestro_orden_trabajo")

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}
