package xstatus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// 级别
// =============================================================================

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "TRACE", want: LevelDebug},
		{in: " info ", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "warning", want: LevelWarn},
		{in: "off", want: LevelError},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevel_Text(t *testing.T) {
	var l Level
	require.NoError(t, l.UnmarshalText([]byte("error")))
	assert.Equal(t, LevelError, l)
	b, err := l.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ERROR", string(b))
	assert.Error(t, l.UnmarshalText([]byte("nope")))
}

// =============================================================================
// 输出与缓冲
// =============================================================================

func TestStatusLogger_OutputFiltering(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(WithOutput(&buf), WithLevel(LevelWarn), WithName("rolling"))
	require.NoError(t, err)

	ctx := context.Background()
	s.Info(ctx, "quiet")
	s.Warn(ctx, "rollover failed", "file", "app.log", "error", errors.New("disk full"))

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "rollover failed")
	assert.Contains(t, out, "component=rolling")
	assert.Contains(t, out, "disk full")

	// 缓冲区不受级别过滤
	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "quiet", entries[0].Msg)
	assert.Equal(t, "app.log", entries[1].Attrs["file"])
	assert.EqualError(t, entries[1].Err(), "disk full")
	assert.Len(t, s.EntriesAtLeast(LevelWarn), 1)

	s.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, s.Level())
	s.Debug(ctx, "now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestStatusLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(WithOutput(&buf), WithFormat("JSON"))
	require.NoError(t, err)
	s.Error(context.Background(), "boom", "n", 3)

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "boom", m["msg"])
	assert.Equal(t, "ERROR", m["level"])

	_, err = New(WithFormat("xml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestStatusLogger_RingWraps(t *testing.T) {
	s, err := New(WithOutput(&bytes.Buffer{}), WithCapacity(3))
	require.NoError(t, err)
	for _, m := range []string{"a", "b", "c", "d", "e"} {
		s.Error(context.Background(), m)
	}
	var msgs []string
	for _, e := range s.Entries() {
		msgs = append(msgs, e.Msg)
	}
	assert.Equal(t, []string{"c", "d", "e"}, msgs)

	s.Clear()
	assert.Empty(t, s.Entries())

	noRing, err := New(WithOutput(&bytes.Buffer{}), WithCapacity(0))
	require.NoError(t, err)
	noRing.Warn(context.Background(), "x")
	assert.Empty(t, noRing.Entries())
}

func TestStatusLogger_Listeners(t *testing.T) {
	s, err := New(WithOutput(&bytes.Buffer{}))
	require.NoError(t, err)

	var mu sync.Mutex
	var got []string
	remove := s.AddListener(func(e Entry) {
		mu.Lock()
		got = append(got, e.Msg)
		mu.Unlock()
	})
	s.AddListener(func(Entry) { panic("listener bug") })
	s.AddListener(nil)()

	s.Warn(context.Background(), "one")
	remove()
	s.Warn(context.Background(), "two")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"one"}, got)
}

func TestStatusLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status", "status.log")
	s, err := New(WithFile(FileConfig{Path: path}), WithLevel(LevelInfo))
	require.NoError(t, err)

	//nolint:staticcheck // nil ctx 按 Background 处理
	s.Info(nil, "to file")
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "重复关闭")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "to file"))

	_, err = New(WithFile(FileConfig{Path: ""}))
	assert.ErrorIs(t, err, ErrInvalidFileConfig)
	_, err = New(WithFile(FileConfig{Path: path, MaxBackups: -1}))
	assert.ErrorIs(t, err, ErrInvalidFileConfig)
}

func TestDiscardAndDefault(t *testing.T) {
	d := Discard()
	d.Debug(context.Background(), "x")
	d.Info(context.Background(), "x")
	d.Warn(context.Background(), "x")
	d.Error(context.Background(), "x")

	assert.Same(t, Default(), Default())
	assert.Equal(t, Logger(Default()), OrDefault(nil))
	assert.Equal(t, d, OrDefault(d))
}
