package xrotate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xroll/pkg/observability/xpattern"
	"github.com/omeyang/xroll/pkg/observability/xstatus"
)

func utc(y int, mo time.Month, d, h, mi, s int) time.Time {
	return time.Date(y, mo, d, h, mi, s, 0, time.UTC)
}

// =============================================================================
// SizeTrigger
// =============================================================================

func TestNewSizeTrigger(t *testing.T) {
	_, err := NewSizeTrigger(0)
	assert.ErrorIs(t, err, ErrInvalidFileSize)
	_, err = NewSizeTrigger(-5)
	assert.ErrorIs(t, err, ErrInvalidFileSize)

	st, err := NewSizeTrigger(1024)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), st.MaxSize())
	assert.Equal(t, "SizeTrigger[1.0 KiB]", st.String())
}

func TestParseSizeTrigger(t *testing.T) {
	tests := []struct {
		expr    string
		want    int64
		wantErr bool
	}{
		{expr: "10 KB", want: 10 * 1024},
		{expr: "10,5 KB", want: 10752},
		{expr: "1MB", want: 1 << 20},
		{expr: "0", wantErr: true},
		{expr: "lots", wantErr: true},
		{expr: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			st, err := ParseSizeTrigger(tt.expr)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFileSize)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.MaxSize())
		})
	}
}

func TestSizeTrigger_IsTriggeringEvent(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, filepath.Join(dir, "app.log"), filepath.Join(dir, "app-%i.log"), WithPolicy(never))
	st, err := NewSizeTrigger(10)
	require.NoError(t, err)

	assert.False(t, st.IsTriggeringEvent(m, Event{Size: 100}), "空文件不触发，超大单条写入落到新文件")

	writeString(t, m, "12345678")
	assert.False(t, st.IsTriggeringEvent(m, Event{Size: 2}), "恰好等于阈值不触发")
	assert.True(t, st.IsTriggeringEvent(m, Event{Size: 3}))
	assert.False(t, st.IsTriggeringEvent(m, Event{Size: 3, Startup: true}), "启动评估不看大小")
}

func TestSizeTrigger_RollsBeforeOverflowingWrite(t *testing.T) {
	dir := t.TempDir()
	st, err := NewSizeTrigger(10)
	require.NoError(t, err)
	m := newTestManager(t, filepath.Join(dir, "app.log"), filepath.Join(dir, "app-%i.log"), WithPolicy(st))

	writeString(t, m, "aaaaaa")
	writeString(t, m, "bbbbbb")
	writeString(t, m, "cccccccccccccccc")
	writeString(t, m, "d")
	require.NoError(t, m.Close())

	assert.Equal(t, "aaaaaa", readFile(t, filepath.Join(dir, "app-1.log")))
	assert.Equal(t, "bbbbbb", readFile(t, filepath.Join(dir, "app-2.log")))
	assert.Equal(t, "cccccccccccccccc", readFile(t, filepath.Join(dir, "app-3.log")))
	assert.Equal(t, "d", readFile(t, filepath.Join(dir, "app.log")))
}

// =============================================================================
// TimeTrigger
// =============================================================================

func TestNewTimeTrigger(t *testing.T) {
	_, err := NewTimeTrigger(-1, false, 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = NewTimeTrigger(1, false, -time.Second)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	tt, err := NewTimeTrigger(0, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, tt.interval)
}

func TestTimeTrigger_RequiresDate(t *testing.T) {
	dir := t.TempDir()
	tt, err := NewTimeTrigger(1, false, 0)
	require.NoError(t, err)
	_, err = NewManager(filepath.Join(dir, "app.log"), filepath.Join(dir, "app-%i.log"),
		WithPolicy(tt), WithStatus(xstatus.Discard()))
	assert.ErrorIs(t, err, ErrNoDateInPattern)
}

func TestTimeTrigger_Boundaries(t *testing.T) {
	tests := []struct {
		name     string
		interval int
		modulate bool
		want     time.Time
	}{
		{name: "下一小时", interval: 1, want: utc(2024, 3, 5, 11, 0, 0)},
		{name: "间隔6小时不对齐", interval: 6, want: utc(2024, 3, 5, 16, 0, 0)},
		{name: "间隔6小时对齐", interval: 6, modulate: true, want: utc(2024, 3, 5, 12, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			clock := newFakeClock(utc(2024, 3, 5, 10, 15, 0))
			trig, err := NewTimeTrigger(tt.interval, tt.modulate, 0)
			require.NoError(t, err)
			newTestManager(t, filepath.Join(dir, "app.log"), filepath.Join(dir, "app-%d{yyyy-MM-dd-HH}.log"),
				WithPolicy(trig), WithClock(clock.Now),
				WithPatternOptions(xpattern.WithLocation(time.UTC)))
			assert.True(t, tt.want.Equal(trig.NextRollover()), "got %s", trig.NextRollover())
		})
	}
}

func TestTimeTrigger_RollsAtBoundary(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(utc(2024, 3, 5, 10, 15, 0))
	trig, err := NewTimeTrigger(1, false, 0)
	require.NoError(t, err)
	m := newTestManager(t, filepath.Join(dir, "app.log"), filepath.Join(dir, "app-%d{yyyy-MM-dd-HH}.log"),
		WithPolicy(trig), WithClock(clock.Now),
		WithPatternOptions(xpattern.WithLocation(time.UTC)))

	writeString(t, m, "ten ")
	clock.Set(utc(2024, 3, 5, 10, 59, 59))
	writeString(t, m, "still ten ")
	clock.Set(utc(2024, 3, 5, 11, 0, 1))
	writeString(t, m, "eleven ")
	assert.True(t, utc(2024, 3, 5, 12, 0, 0).Equal(trig.NextRollover()))

	// 事件时间优先于时钟
	_, err = m.WriteEvent([]byte("twelve "), utc(2024, 3, 5, 12, 0, 0))
	require.NoError(t, err)
	require.NoError(t, m.Close())

	assert.Equal(t, "ten still ten ", readFile(t, filepath.Join(dir, "app-2024-03-05-10.log")))
	assert.Equal(t, "eleven ", readFile(t, filepath.Join(dir, "app-2024-03-05-11.log")))
	assert.Equal(t, "twelve ", readFile(t, filepath.Join(dir, "app.log")))
}

func TestTimeTrigger_EmptyFileNeverRolls(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(utc(2024, 3, 5, 10, 15, 0))
	trig, err := NewTimeTrigger(1, false, 0)
	require.NoError(t, err)
	m := newTestManager(t, filepath.Join(dir, "app.log"), filepath.Join(dir, "app-%d{yyyy-MM-dd-HH}.log"),
		WithPolicy(trig), WithClock(clock.Now),
		WithPatternOptions(xpattern.WithLocation(time.UTC)))

	clock.Set(utc(2024, 3, 5, 15, 0, 0))
	writeString(t, m, "late")
	require.NoError(t, m.Close())
	assert.Equal(t, []string{"app.log"}, listDir(t, dir))
}

func TestTimeTrigger_RandomDelay(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(utc(2024, 3, 5, 10, 15, 0))
	trig, err := NewTimeTrigger(1, false, time.Minute)
	require.NoError(t, err)
	newTestManager(t, filepath.Join(dir, "app.log"), filepath.Join(dir, "app-%d{yyyy-MM-dd-HH}.log"),
		WithPolicy(trig), WithClock(clock.Now),
		WithPatternOptions(xpattern.WithLocation(time.UTC)))

	next := trig.NextRollover()
	boundary := utc(2024, 3, 5, 11, 0, 0)
	assert.False(t, next.Before(boundary))
	assert.True(t, next.Before(boundary.Add(time.Minute)))
}

// =============================================================================
// OnStartupTrigger
// =============================================================================

// seedFile 写入已有文件并设置修改时间
func seedFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestOnStartupTrigger(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	tests := []struct {
		name     string
		content  string
		minSize  int64
		boundary time.Time
		wantRoll bool
	}{
		{name: "旧文件轮转", content: "yesterday", minSize: 1, wantRoll: true},
		{name: "小于最小尺寸", content: "tiny", minSize: 100},
		{name: "文件晚于边界", content: "fresh", minSize: 1, boundary: old.Add(-time.Hour)},
		{name: "空文件且最小尺寸为0", content: "", minSize: 0, wantRoll: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			active := filepath.Join(dir, "app.log")
			seedFile(t, active, tt.content, old)

			trig := NewOnStartupTrigger(tt.minSize, tt.boundary)
			strategy, err := NewDefaultStrategy(WithRenameEmptyFiles(true))
			require.NoError(t, err)
			m := newTestManager(t, active, filepath.Join(dir, "app-%i.log"),
				WithPolicy(trig), WithStrategy(strategy))
			require.NoError(t, m.Close())

			if tt.wantRoll {
				assert.Equal(t, tt.content, readFile(t, filepath.Join(dir, "app-1.log")))
				assert.Empty(t, readFile(t, active))
				return
			}
			assert.NoFileExists(t, filepath.Join(dir, "app-1.log"))
			assert.Equal(t, tt.content, readFile(t, active))
		})
	}
}

func TestOnStartupTrigger_FiresOnce(t *testing.T) {
	dir := t.TempDir()
	active := filepath.Join(dir, "app.log")
	seedFile(t, active, "old", time.Now().Add(-time.Hour))

	trig := NewOnStartupTrigger(1, time.Time{})
	m := newTestManager(t, active, filepath.Join(dir, "app-%i.log"), WithPolicy(trig))
	assert.False(t, trig.IsTriggeringEvent(m, Event{Time: time.Now(), Startup: true}))
	assert.False(t, trig.IsTriggeringEvent(m, Event{Time: time.Now(), Size: 10}))
}

// =============================================================================
// CronTrigger
// =============================================================================

func TestNewCronTrigger(t *testing.T) {
	for _, expr := range []string{"0 0 * * *", "*/5 * * * * *", "@daily", "@every 1h"} {
		_, err := NewCronTrigger(expr, false)
		assert.NoError(t, err, expr)
	}
	for _, expr := range []string{"", "bogus", "61 * * * *"} {
		_, err := NewCronTrigger(expr, false)
		assert.ErrorIs(t, err, ErrInvalidCron, expr)
	}

	c, err := NewCronTrigger("0 0 * * *", false)
	require.NoError(t, err)
	assert.True(t, utc(2024, 3, 6, 0, 0, 0).Equal(c.Next(utc(2024, 3, 5, 10, 0, 0))))
	assert.Equal(t, "CronTrigger[0 0 * * *]", c.String())
}

func TestCronTrigger_EvaluateOnStartup(t *testing.T) {
	for _, evaluate := range []bool{true, false} {
		t.Run(map[bool]string{true: "错过调度时轮转", false: "不评估"}[evaluate], func(t *testing.T) {
			dir := t.TempDir()
			active := filepath.Join(dir, "app.log")
			seedFile(t, active, "before", time.Now().Add(-72*time.Hour))

			c, err := NewCronTrigger("@daily", evaluate)
			require.NoError(t, err)
			m := newTestManager(t, active, filepath.Join(dir, "app-%i.log"), WithPolicy(c))
			require.NoError(t, m.Close())

			if evaluate {
				assert.Equal(t, "before", readFile(t, filepath.Join(dir, "app-1.log")))
			} else {
				assert.NoFileExists(t, filepath.Join(dir, "app-1.log"))
			}
		})
	}
}

func TestCronTrigger_FiresInBackground(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCronTrigger("@every 1s", false)
	require.NoError(t, err)
	m := newTestManager(t, filepath.Join(dir, "app.log"), filepath.Join(dir, "app-%i.log"), WithPolicy(c))
	writeString(t, m, "scheduled")

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "app-1.log"))
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, m.Close())
	assert.Equal(t, "scheduled", readFile(t, filepath.Join(dir, "app-1.log")))
	assert.NoError(t, c.Stop(context.Background()), "重复停止是安全的")
}

// =============================================================================
// CompositeTrigger
// =============================================================================

// recordingPolicy 记录调用的子策略
type recordingPolicy struct {
	fire      bool
	initErr   error
	stopErr   error
	calls     int
	rollovers int
	stopped   int
}

func (r *recordingPolicy) Initialize(*Manager) error { return r.initErr }

func (r *recordingPolicy) IsTriggeringEvent(*Manager, Event) bool {
	r.calls++
	return r.fire
}

func (r *recordingPolicy) OnRollover(*Manager, time.Time) { r.rollovers++ }

func (r *recordingPolicy) Stop(context.Context) error {
	r.stopped++
	return r.stopErr
}

func TestCompositeTrigger_ShortCircuit(t *testing.T) {
	a := &recordingPolicy{}
	b := &recordingPolicy{fire: true}
	c := &recordingPolicy{}
	comp := NewCompositeTrigger(nil, a, b, c)
	require.Len(t, comp.Policies(), 3)

	assert.True(t, comp.IsTriggeringEvent(nil, Event{}))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 0, c.calls, "第一个 true 之后不再评估")

	comp.OnRollover(nil, time.Now())
	assert.Equal(t, []int{1, 1, 1}, []int{a.rollovers, b.rollovers, c.rollovers})

	b.stopErr = errors.New("stuck")
	err := comp.Stop(context.Background())
	assert.ErrorContains(t, err, "stuck")
	assert.Equal(t, []int{1, 1, 1}, []int{a.stopped, b.stopped, c.stopped})
}

func TestCompositeTrigger_InitializeRollsBack(t *testing.T) {
	a := &recordingPolicy{}
	b := &recordingPolicy{initErr: errors.New("boom")}
	c := &recordingPolicy{}
	comp := NewCompositeTrigger(a, b, c)

	assert.ErrorContains(t, comp.Initialize(nil), "boom")
	assert.Equal(t, 1, a.stopped, "已初始化的子策略被停止")
	assert.Equal(t, 0, c.stopped)
}

func TestCompositeTrigger_Empty(t *testing.T) {
	comp := NewCompositeTrigger()
	assert.False(t, comp.IsTriggeringEvent(nil, Event{}))
	assert.NoError(t, comp.Initialize(nil))
	assert.NoError(t, comp.Stop(context.Background()))
}

func TestCompositeTrigger_SizeOrTime(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(utc(2024, 3, 5, 10, 15, 0))
	size, err := NewSizeTrigger(8)
	require.NoError(t, err)
	tm, err := NewTimeTrigger(1, false, 0)
	require.NoError(t, err)
	m := newTestManager(t, filepath.Join(dir, "app.log"), filepath.Join(dir, "app-%d{yyyy-MM-dd-HH}-%i.log"),
		WithPolicy(NewCompositeTrigger(size, tm)), WithClock(clock.Now),
		WithPatternOptions(xpattern.WithLocation(time.UTC)))

	writeString(t, m, "aaaaaa")
	writeString(t, m, "bbbbbb") // 大小触发
	clock.Set(utc(2024, 3, 5, 11, 0, 0))
	writeString(t, m, "c") // 时间触发
	require.NoError(t, m.Close())

	assert.Equal(t, "aaaaaa", readFile(t, filepath.Join(dir, "app-2024-03-05-10-1.log")))
	assert.Equal(t, "bbbbbb", readFile(t, filepath.Join(dir, "app-2024-03-05-10-2.log")))
	assert.Equal(t, "c", readFile(t, filepath.Join(dir, "app.log")))
}

func TestManager_PolicyPanicIsContained(t *testing.T) {
	dir := t.TempDir()
	status := quietStatus(t)
	boom := policyFunc(func(*Manager, Event) bool { panic("broken policy") })
	m, err := NewManager(filepath.Join(dir, "app.log"), filepath.Join(dir, "app-%i.log"),
		WithPolicy(boom), WithStatus(status))
	require.NoError(t, err)

	writeString(t, m, "survives")
	require.NoError(t, m.Close())
	assert.Equal(t, "survives", readFile(t, filepath.Join(dir, "app.log")))

	var warned bool
	for _, e := range status.Entries() {
		if e.Msg == "triggering policy panicked" {
			warned = true
		}
	}
	assert.True(t, warned)
}
