// Package watch 监听输入文件变化，防抖后触发重新处理。
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"linereviser/internal/diag"
)

// DefaultDebounce: 合并连续事件的静默窗口。
const DefaultDebounce = 200 * time.Millisecond

// Options: 防抖窗口与路径过滤。
type Options struct {
	Debounce time.Duration
	// Match 决定目录中的文件变化是否触发；nil 接受全部。显式给出的文件总是触发。
	Match func(path string) bool
	// SkipDir 决定递归时是否跳过某目录（传入目录路径）。
	SkipDir func(dir string) bool
}

// Handler 接收一批防抖后的变更路径（已排序、去重）。
type Handler func(ctx context.Context, changed []string) error

// Watcher 基于 fsnotify 监听文件与目录（目录递归）。
// 文件通过其父目录监听，以兼容编辑器的"写临时文件再改名"保存方式。
type Watcher struct {
	fw     *fsnotify.Watcher
	opts   Options
	files  map[string]struct{}
	dirs   map[string]struct{}
	logger *diag.Logger
}

// New 为 roots 建立监听；"-"（STDIN）不可监听。
func New(roots []string, opts Options, logger *diag.Logger) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{fw: fw, opts: opts, files: map[string]struct{}{}, dirs: map[string]struct{}{}, logger: logger}
	for _, root := range roots {
		if root == "-" {
			_ = fw.Close()
			return nil, fmt.Errorf("watch: stdin cannot be watched")
		}
		if err := w.addRoot(filepath.Clean(root)); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addRoot(root string) error {
	fi, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if !fi.IsDir() {
		w.files[root] = struct{}{}
		return w.fw.Add(filepath.Dir(root))
	}
	return w.addTree(root)
}

// addTree 递归添加目录。
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && w.opts.SkipDir != nil && w.opts.SkipDir(p) {
			return filepath.SkipDir
		}
		w.dirs[p] = struct{}{}
		if err := w.fw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// relevant 判断事件是否应触发。
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if _, ok := w.files[ev.Name]; ok {
		return true
	}
	if _, ok := w.dirs[filepath.Dir(ev.Name)]; !ok {
		return false
	}
	return w.opts.Match == nil || w.opts.Match(ev.Name)
}

// Run 阻塞处理事件，直至 ctx 取消；返回前关闭底层监听。
// 单批处理出错只记录，不终止监听。
func (w *Watcher) Run(ctx context.Context, fn Handler) error {
	defer w.fw.Close()
	pending := map[string]struct{}{}
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				w.maybeAddDir(ev.Name)
			}
			if !w.relevant(ev) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.opts.Debounce)
			}
			timerC = timer.C
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch", string(diag.CodeIO), "watcher error", "", map[string]string{"error": err.Error()})
		case <-timerC:
			timerC = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			w.logger.DebugStart("watch", "rerun", "", "", map[string]string{"changed": fmt.Sprintf("%d", len(changed))})
			if err := fn(ctx, changed); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.ErrorWithKV("watch", string(diag.Classify(err)), "rerun failed", nil, "", "", map[string]string{"error": err.Error()})
			}
		}
	}
}

// maybeAddDir: 被监听目录下新建的子目录同样纳入监听。
func (w *Watcher) maybeAddDir(p string) {
	if _, ok := w.dirs[filepath.Dir(p)]; !ok {
		return
	}
	fi, err := os.Stat(p)
	if err != nil || !fi.IsDir() {
		return
	}
	if w.opts.SkipDir != nil && w.opts.SkipDir(p) {
		return
	}
	if err := w.addTree(p); err != nil {
		w.logger.Warn("watch", string(diag.CodeIO), "add dir failed", p, map[string]string{"error": err.Error()})
	}
}
