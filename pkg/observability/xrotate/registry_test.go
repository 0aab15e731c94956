package xrotate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/omeyang/xroll/pkg/observability/xstatus"
)

func quietOpts(t *testing.T, opts ...Option) []Option {
	t.Helper()
	return append([]Option{WithStatus(quietStatus(t)), WithMeterProvider(noop.NewMeterProvider())}, opts...)
}

// =============================================================================
// Registry
// =============================================================================

func TestRegistry_SharesManagerPerFile(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	t.Cleanup(func() { _ = reg.Shutdown(context.Background()) })
	active := filepath.Join(dir, "app.log")
	pattern := filepath.Join(dir, "app-%i.log")

	a, err := reg.Acquire(active, pattern, quietOpts(t, WithPolicy(never))...)
	require.NoError(t, err)
	// 路径写法不同但指向同一文件
	b, err := reg.Acquire(filepath.Join(dir, ".", "app.log"), pattern)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, reg.Len())

	key, err := Key(active, pattern)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.RefCount(key))
	assert.Equal(t, []string{key}, reg.Keys())

	require.NoError(t, reg.Release(context.Background(), a))
	assert.Equal(t, StateOpen, a.State(), "仍有引用时不关闭")
	require.NoError(t, reg.Release(context.Background(), b))
	assert.Equal(t, StateClosed, a.State())
	assert.Zero(t, reg.Len())
	assert.Zero(t, reg.RefCount(key))

	assert.ErrorIs(t, reg.Release(context.Background(), a), ErrNotRegistered)
}

func TestRegistry_AcquireReconfigures(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	t.Cleanup(func() { _ = reg.Shutdown(context.Background()) })
	active := filepath.Join(dir, "app.log")
	pattern := filepath.Join(dir, "app-%i.log")

	m, err := reg.Acquire(active, pattern, quietOpts(t, WithPolicy(never))...)
	require.NoError(t, err)

	size, err := NewSizeTrigger(100)
	require.NoError(t, err)
	again, err := reg.Acquire(active, pattern, WithPolicy(size))
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Same(t, size, m.Policy())

	direct, err := NewDirectWriteStrategy()
	require.NoError(t, err)
	_, err = reg.Acquire(active, pattern, WithStrategy(direct))
	assert.ErrorIs(t, err, ErrStrategyMismatch)
	key, _ := Key(active, pattern)
	assert.Equal(t, 2, reg.RefCount(key), "失败的获取不增加引用")
}

func TestKey_OnePerFile(t *testing.T) {
	dir := t.TempDir()
	active := filepath.Join(dir, "app.log")

	// 设置文件名时只按文件去重，模式不参与
	a, err := Key(active, filepath.Join(dir, "app-%i.log"))
	require.NoError(t, err)
	b, err := Key(filepath.Join(dir, ".", "app.log"), filepath.Join(dir, "other-%i.log.gz"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Key(active, "")
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestRegistry_DirectWriteKey(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	t.Cleanup(func() { _ = reg.Shutdown(context.Background()) })
	pattern := filepath.Join(dir, "app-%i.log")

	s, err := NewDirectWriteStrategy()
	require.NoError(t, err)
	a, err := reg.Acquire("", pattern, quietOpts(t, WithPolicy(never), WithStrategy(s))...)
	require.NoError(t, err)
	b, err := reg.Acquire("", pattern)
	require.NoError(t, err)
	assert.Same(t, a, b)

	key, err := Key("", pattern)
	require.NoError(t, err)
	assert.Equal(t, "pattern:"+pattern, key)

	_, err = Key("", "")
	assert.ErrorIs(t, err, ErrEmptyPattern)
}

func TestRegistry_AcquireFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	_, err := reg.Acquire(filepath.Join(dir, "app.log"), filepath.Join(dir, "app-%i.log"),
		WithStatus(xstatus.Discard()))
	assert.ErrorIs(t, err, ErrNilPolicy)
	assert.Zero(t, reg.Len())
}

func TestRegistry_Shutdown(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	a, err := reg.Acquire(filepath.Join(dir, "a.log"), filepath.Join(dir, "a-%i.log"), quietOpts(t, WithPolicy(never))...)
	require.NoError(t, err)
	b, err := reg.Acquire(filepath.Join(dir, "b.log"), filepath.Join(dir, "b-%i.log"), quietOpts(t, WithPolicy(never))...)
	require.NoError(t, err)
	require.NoError(t, a.Close(), "提前关闭的管理器在 Shutdown 时被忽略")

	require.NoError(t, reg.Shutdown(context.Background()))
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, reg.Len())
}

// =============================================================================
// Appender
// =============================================================================

func TestAppender_SharesFile(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	t.Cleanup(func() { _ = reg.Shutdown(context.Background()) })
	cfg := AppenderConfig{
		Name:     "audit",
		FileName: filepath.Join(dir, "app.log"),
		Pattern:  filepath.Join(dir, "app-%i.log"),
	}

	a, err := NewAppender(reg, cfg, quietOpts(t, WithPolicy(never))...)
	require.NoError(t, err)
	cfg.Name = "access"
	b, err := NewAppender(reg, cfg)
	require.NoError(t, err)
	assert.Same(t, a.Manager(), b.Manager())
	assert.Equal(t, "audit", a.Name())

	writeString(t, a, "from-a ")
	_, err = b.Append(utc(2024, 3, 5, 0, 0, 0), []byte("from-b"))
	require.NoError(t, err)
	require.NoError(t, b.Rotate())

	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Close(), ErrClosed)
	_, err = a.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.Rotate(), ErrClosed)

	writeString(t, b, "still open")
	require.NoError(t, b.Close())
	assert.Equal(t, StateClosed, b.Manager().State())

	assert.Equal(t, "from-a from-b", readFile(t, filepath.Join(dir, "app-1.log")))
	assert.Equal(t, "still open", readFile(t, filepath.Join(dir, "app.log")))
}

func TestAppender_IgnoreErrors(t *testing.T) {
	dir := t.TempDir()
	for _, ignore := range []bool{false, true} {
		reg := NewRegistry()
		status := quietStatus(t)
		a, err := NewAppender(reg, AppenderConfig{
			Name:         "app",
			FileName:     filepath.Join(dir, "app.log"),
			Pattern:      filepath.Join(dir, "app-%i.log"),
			IgnoreErrors: ignore,
		}, WithPolicy(never), WithStatus(status), WithMeterProvider(noop.NewMeterProvider()))
		require.NoError(t, err)
		// 关闭底层管理器，写入必然失败
		require.NoError(t, a.Manager().Close())

		n, err := a.Write([]byte("lost"))
		if ignore {
			require.NoError(t, err)
			assert.Equal(t, 4, n)
			assert.NotEmpty(t, status.EntriesAtLeast(xstatus.LevelError))
		} else {
			assert.ErrorIs(t, err, ErrClosed)
		}
		assert.ErrorIs(t, a.Close(), ErrClosed, "管理器已关闭")
	}
}

func TestAppender_DefaultRegistry(t *testing.T) {
	dir := t.TempDir()
	a, err := NewAppender(nil, AppenderConfig{
		FileName: filepath.Join(dir, "app.log"),
		Pattern:  filepath.Join(dir, "app-%i.log"),
	}, quietOpts(t, WithPolicy(never))...)
	require.NoError(t, err)
	key, _ := Key(filepath.Join(dir, "app.log"), "")
	assert.Equal(t, 1, DefaultRegistry().RefCount(key))
	require.NoError(t, a.Close())
	assert.Zero(t, DefaultRegistry().RefCount(key))
}
