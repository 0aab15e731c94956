package xsize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    int64
		wantErr error
		errMsg  string
	}{
		{name: "纯字节", expr: "1024", want: 1024},
		{name: "KB", expr: "10 KB", want: 10 * 1024},
		{name: "小写无空格", expr: "10kb", want: 10 * 1024},
		{name: "MB 小数", expr: "10.75 MB", want: 11272192},
		{name: "逗号小数点", expr: "10,75 MB", want: 11272192},
		{name: "GB", expr: "1 GB", want: 1 << 30},
		{name: "多余空格", expr: "  2   MB ", want: 2 << 20},
		{name: "零", expr: "0", wantErr: ErrNotPositive, errMsg: "File size must be > 0"},
		{name: "空表达式", expr: "", wantErr: ErrUnsupported, errMsg: "Unsupported file size expression ''"},
		{name: "非法单位", expr: "10 XB", wantErr: ErrUnsupported, errMsg: "Unsupported file size expression '10 XB'"},
		{name: "负数", expr: "-1 MB", wantErr: ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.expr)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOr(t *testing.T) {
	assert.Equal(t, int64(2048), ParseOr("2 KB", 1))
	assert.Equal(t, int64(7), ParseOr("bogus", 7))
}

func TestMustParse(t *testing.T) {
	assert.Equal(t, int64(1<<20), MustParse("1 MB"))
	assert.Panics(t, func() { MustParse("") })
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "10 MiB", Format(10<<20))
	assert.Equal(t, "0 B", Format(0))
	assert.Equal(t, "-1.0 KiB", Format(-1024))
}

func FuzzParse(f *testing.F) {
	f.Add("10 MB")
	f.Add("10,5 kb")
	f.Add("")
	f.Add("0")
	f.Fuzz(func(t *testing.T, expr string) {
		n, err := Parse(expr)
		if err == nil && n <= 0 {
			t.Fatalf("Parse(%q) = %d without error", expr, n)
		}
	})
}
