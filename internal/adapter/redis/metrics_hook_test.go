package redis

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/pscheid92/rtspoverlay/internal/adapter/metrics"
	"github.com/pscheid92/rtspoverlay/internal/platform/retry"
)

func TestNewClient_MalformedURLIsPermanent(t *testing.T) {
	rdb, err := NewClient(context.Background(), "http://localhost:6379", nil)

	assert.Nil(t, rdb)
	var permErr *retry.PermanentError
	assert.ErrorAs(t, err, &permErr)
}

func TestMetricsHook_CountsByStatus(t *testing.T) {
	m := metrics.NewRedisMetrics(prometheus.NewRegistry())
	hook := NewMetricsHook(m)
	ctx := context.Background()

	ok := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return nil })
	miss := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return goredis.Nil })
	fail := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return errors.New("boom") })

	_ = ok(ctx, goredis.NewIntCmd(ctx, "publish", "ch", "m"))
	_ = miss(ctx, goredis.NewStringCmd(ctx, "get", "k"))
	_ = fail(ctx, goredis.NewIntCmd(ctx, "publish", "ch", "m"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("publish", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("get", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("publish", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.CommandDuration))
}

func TestMetricsHook_PipelineAndDial(t *testing.T) {
	m := metrics.NewRedisMetrics(prometheus.NewRegistry())
	hook := NewMetricsHook(m)
	ctx := context.Background()

	pipeline := hook.ProcessPipelineHook(func(context.Context, []goredis.Cmder) error { return nil })
	_ = pipeline(ctx, nil)

	dial := hook.DialHook(func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("refused")
	})
	_, _ = dial(ctx, "tcp", "localhost:6379")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("pipeline", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionErrors))
}
