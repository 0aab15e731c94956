package xaction

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/omeyang/xroll/pkg/observability/xstatus"
)

// PathInfo 遍历得到的候选文件
type PathInfo struct {
	// Path 完整路径（BasePath 与 Rel 拼接）
	Path string
	// Rel 相对 BasePath 的路径，使用 '/' 分隔
	Rel  string
	Info fs.FileInfo
}

// PathCondition 删除条件
type PathCondition interface {
	// Accept 报告是否接受（删除）该文件
	Accept(base string, p PathInfo) bool
	// BeforeFileTreeWalk 在每次遍历前调用，用于重置累计状态
	BeforeFileTreeWalk()
}

// PathSorter 决定条件评估顺序
type PathSorter interface {
	Sort(paths []PathInfo)
}

// SortByModTime 按修改时间排序，RecentFirst 为 true 时最新在前；时间相同按路径排序
type SortByModTime struct {
	RecentFirst bool
}

// Sort 实现 PathSorter
func (s SortByModTime) Sort(paths []PathInfo) {
	sort.SliceStable(paths, func(i, j int) bool {
		ti, tj := paths[i].Info.ModTime(), paths[j].Info.ModTime()
		if !ti.Equal(tj) {
			if s.RecentFirst {
				return ti.After(tj)
			}
			return ti.Before(tj)
		}
		if s.RecentFirst {
			return paths[i].Path > paths[j].Path
		}
		return paths[i].Path < paths[j].Path
	})
}

// Delete 按条件删除 BasePath 下的文件
type Delete struct {
	BasePath string
	// MaxDepth 最大遍历深度，BasePath 直接子文件为 1；小于 1 按 1 处理
	MaxDepth int
	// FollowLinks 是否跟随符号链接（进入链接目录、按目标判断文件）
	FollowLinks bool
	// TestMode 只记录将被删除的文件，不真正删除
	TestMode bool
	// Sorter 默认最新在前
	Sorter     PathSorter
	Conditions []PathCondition
	Status     xstatus.Logger
}

var _ Action = (*Delete)(nil)

// Execute 实现 Action。BasePath 不存在返回 (false, nil)。
// 单个文件删除失败不会中断其余文件，错误汇总返回。
func (d *Delete) Execute(ctx context.Context) (bool, error) {
	if d.BasePath == "" {
		return false, ErrEmptyBasePath
	}
	if _, err := os.Stat(d.BasePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	paths, err := d.Collect(ctx)
	if err != nil {
		return false, err
	}
	selected := d.Select(paths)

	status := d.Status
	if status == nil {
		status = xstatus.Discard()
	}
	var errs []error
	for _, p := range selected {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if d.TestMode {
			status.Info(ctx, "delete action in test mode, would delete", "path", p.Path)
			continue
		}
		if err := os.Remove(p.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("xaction: delete %s: %w", p.Path, err))
			continue
		}
		status.Debug(ctx, "deleted file", "path", p.Path)
	}
	return true, errors.Join(errs...)
}

// Collect 遍历 BasePath 返回候选文件（已排序）
func (d *Delete) Collect(ctx context.Context) ([]PathInfo, error) {
	depth := max(d.MaxDepth, 1)
	var out []PathInfo
	visited := make(map[string]struct{})
	if err := d.walk(ctx, d.BasePath, "", depth, visited, &out); err != nil {
		return nil, err
	}
	sorter := d.Sorter
	if sorter == nil {
		sorter = SortByModTime{RecentFirst: true}
	}
	sorter.Sort(out)
	return out, nil
}

func (d *Delete) walk(ctx context.Context, dir, rel string, depth int, visited map[string]struct{}, out *[]PathInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.FollowLinks {
		// 防止符号链接环
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			if _, seen := visited[resolved]; seen {
				return nil
			}
			visited[resolved] = struct{}{}
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		relPath := e.Name()
		if rel != "" {
			relPath = rel + "/" + e.Name()
		}
		var info fs.FileInfo
		if d.FollowLinks && e.Type()&fs.ModeSymlink != 0 {
			info, err = os.Stat(full)
		} else {
			info, err = e.Info()
		}
		if err != nil {
			// 遍历期间被删除或悬空链接，跳过
			continue
		}
		if info.IsDir() {
			if depth > 1 {
				if err := d.walk(ctx, full, relPath, depth-1, visited, out); err != nil {
					return err
				}
			}
			continue
		}
		*out = append(*out, PathInfo{Path: full, Rel: relPath, Info: info})
	}
	return nil
}

// Select 对已排序的候选文件评估条件，返回将被删除的文件
func (d *Delete) Select(paths []PathInfo) []PathInfo {
	for _, c := range d.Conditions {
		c.BeforeFileTreeWalk()
	}
	var selected []PathInfo
	for _, p := range paths {
		if acceptAll(d.BasePath, p, d.Conditions) {
			selected = append(selected, p)
		}
	}
	return selected
}

// acceptAll 所有条件都接受时返回 true；空条件列表视为接受
func acceptAll(base string, p PathInfo, conds []PathCondition) bool {
	for _, c := range conds {
		if !c.Accept(base, p) {
			return false
		}
	}
	return true
}

// String 便于日志输出
func (d *Delete) String() string {
	return fmt.Sprintf("Delete[base=%s depth=%d conditions=%d test=%t]",
		d.BasePath, max(d.MaxDepth, 1), len(d.Conditions), d.TestMode)
}

// relSlash 规范化相对路径分隔符
func relSlash(rel string) string {
	return strings.ReplaceAll(rel, `\`, "/")
}
