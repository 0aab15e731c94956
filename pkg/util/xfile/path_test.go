package xfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SanitizePath
// =============================================================================

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "绝对路径", input: "/var/log/app.log", want: "/var/log/app.log"},
		{name: "相对路径", input: "logs/app.log", want: "logs/app.log"},
		{name: "文件名包含双点", input: "app..2024.log", want: "app..2024.log"},
		{name: "冗余分隔符", input: "logs//./app.log", want: "logs/app.log"},
		{name: "绝对路径中的双点被解析", input: "/var/log/../tmp/app.log", want: "/var/tmp/app.log"},
		{name: "空路径", input: "", wantErr: ErrEmptyPath},
		{name: "空字节", input: "app\x00.log", wantErr: ErrNullByte},
		{name: "目录路径", input: "logs/", wantErr: ErrInvalidPath},
		{name: "相对穿越", input: "../etc/passwd", wantErr: ErrPathTraversal},
		{name: "当前目录", input: ".", wantErr: ErrInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePath(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

// =============================================================================
// Canonical
// =============================================================================

func TestCanonical(t *testing.T) {
	dir := t.TempDir()
	realDir := filepath.Join(dir, "realDir")
	require.NoError(t, os.Mkdir(realDir, 0o750))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(realDir, link))

	want, err := Canonical(filepath.Join(realDir, "app.log"))
	require.NoError(t, err)

	t.Run("文件不存在时经由符号链接", func(t *testing.T) {
		got, err := Canonical(filepath.Join(link, "app.log"))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("文件存在时", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(realDir, "app.log"), []byte("x"), 0o600))
		got, err := Canonical(filepath.Join(link, "app.log"))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("非法路径", func(t *testing.T) {
		_, err := Canonical("")
		assert.ErrorIs(t, err, ErrEmptyPath)
	})
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		name     string
		exts     []string
		wantStem string
		wantExt  string
	}{
		{name: "app.log.gz", exts: []string{".gz", ".zip"}, wantStem: "app.log", wantExt: ".gz"},
		{name: "app.log.tar.gz", exts: []string{".gz", ".tar.gz"}, wantStem: "app.log", wantExt: ".tar.gz"},
		{name: "app.log", exts: []string{".gz"}, wantStem: "app.log", wantExt: ""},
		{name: ".gz", exts: []string{".gz"}, wantStem: ".gz", wantExt: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stem, ext := SplitExt(tt.name, tt.exts...)
			assert.Equal(t, tt.wantStem, stem)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func FuzzSanitizePath(f *testing.F) {
	f.Add("/var/log/app.log")
	f.Add("../x")
	f.Add("a/")
	f.Fuzz(func(t *testing.T, p string) {
		got, err := SanitizePath(p)
		if err != nil {
			return
		}
		if !filepath.IsAbs(got) && hasDotDotSegment(got) {
			t.Fatalf("SanitizePath(%q) = %q keeps a traversal segment", p, got)
		}
	})
}
