package xaction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// =============================================================================
// Composite
// =============================================================================

func TestComposite(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	mk := func(name string, ok bool, err error) Action {
		return ActionFunc(func(context.Context) (bool, error) {
			ran = append(ran, name)
			return ok, err
		})
	}

	t.Run("全部成功", func(t *testing.T) {
		ran = nil
		ok, err := NewComposite(true, mk("a", true, nil), nil, mk("b", true, nil)).Execute(context.Background())
		assert.True(t, ok)
		assert.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ran)
	})

	t.Run("遇错停止", func(t *testing.T) {
		ran = nil
		ok, err := NewComposite(true, mk("a", false, boom), mk("b", true, nil)).Execute(context.Background())
		assert.False(t, ok)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"a"}, ran)
	})

	t.Run("返回 false 也停止", func(t *testing.T) {
		ran = nil
		ok, err := NewComposite(true, mk("a", false, nil), mk("b", true, nil)).Execute(context.Background())
		assert.False(t, ok)
		assert.NoError(t, err)
		assert.Equal(t, []string{"a"}, ran)
	})

	t.Run("遇错继续并汇总", func(t *testing.T) {
		ran = nil
		ok, err := NewComposite(false, mk("a", false, boom), mk("b", true, nil)).Execute(context.Background())
		assert.False(t, ok)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"a", "b"}, ran)
	})

	t.Run("ctx 已取消", func(t *testing.T) {
		ran = nil
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ok, err := NewComposite(false, mk("a", true, nil)).Execute(ctx)
		assert.False(t, ok)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, ran)
	})
}

func TestChain(t *testing.T) {
	assert.Nil(t, Chain(true, nil, nil))
	single := ActionFunc(func(context.Context) (bool, error) { return true, nil })
	assert.NotNil(t, Chain(true, nil, single))
	_, isComposite := Chain(true, single, single).(*Composite)
	assert.True(t, isComposite)
}

// =============================================================================
// FileRename
// =============================================================================

func TestFileRename(t *testing.T) {
	ctx := context.Background()

	t.Run("重命名到新目录", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "app.log")
		dst := filepath.Join(dir, "archive", "app-1.log")
		writeFile(t, src, "hello")

		ok, err := (&FileRename{Source: src, Target: dst}).Execute(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoFileExists(t, src)
		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("源文件不存在", func(t *testing.T) {
		dir := t.TempDir()
		ok, err := (&FileRename{Source: filepath.Join(dir, "x"), Target: filepath.Join(dir, "y")}).Execute(ctx)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("空文件被删除", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "app.log")
		dst := filepath.Join(dir, "app-1.log")
		writeFile(t, src, "")
		ok, err := (&FileRename{Source: src, Target: dst}).Execute(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoFileExists(t, src)
		assert.NoFileExists(t, dst)
	})

	t.Run("允许重命名空文件", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "app.log")
		dst := filepath.Join(dir, "app-1.log")
		writeFile(t, src, "")
		ok, err := (&FileRename{Source: src, Target: dst, RenameEmptyFiles: true}).Execute(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.FileExists(t, dst)
	})

	t.Run("目标是目录时回退复制也失败", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "app.log")
		dst := filepath.Join(dir, "busy")
		writeFile(t, src, "data")
		writeFile(t, filepath.Join(dst, "inner"), "x")
		r := &FileRename{Source: src, Target: dst, Attempts: 2, Delay: time.Millisecond}
		ok, err := r.Execute(ctx)
		assert.False(t, ok)
		assert.Error(t, err)
		assert.FileExists(t, src, "失败时源文件保留")
		assert.Contains(t, r.String(), "FileRename")
	})
}

func TestFileDelete(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "app-3.log.gz")
	writeFile(t, p, "x")

	d := &FileDelete{Path: p}
	ok, err := d.Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoFileExists(t, p)

	ok, err = d.Execute(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "不存在时不算执行")
	assert.Equal(t, "FileDelete["+p+"]", d.String())
}
