package sshmonitor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Whitelist 白名单文件，每行一个地址
// 每次判断都重新读取文件，修改无需重启
type Whitelist struct {
	fs     afero.Fs
	path   string
	logger *zap.Logger
}

// NewWhitelist 创建白名单
func NewWhitelist(fs afero.Fs, path string, logger *zap.Logger) *Whitelist {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Whitelist{fs: fs, path: path, logger: logger}
}

// Path 白名单文件路径
func (w *Whitelist) Path() string {
	return w.path
}

// Load 读取白名单集合
// 文件缺失或不可读时返回空集合和错误
func (w *Whitelist) Load() (map[string]struct{}, error) {
	set := make(map[string]struct{})

	data, err := afero.ReadFile(w.fs, w.path)
	if err != nil {
		return set, fmt.Errorf("读取白名单 %s 失败: %w", w.path, err)
	}

	text := strings.ReplaceAll(string(data), "\r,", "")
	for _, line := range strings.Split(text, "\n") {
		addr := strings.TrimSpace(line)
		if addr == "" {
			continue
		}
		set[addr] = struct{}{}
	}
	return set, nil
}

// Contains 判断地址是否在白名单中，读取失败时按不在白名单处理
func (w *Whitelist) Contains(addr string) bool {
	if addr == "" {
		return false
	}
	set, err := w.Load()
	if err != nil {
		w.logger.Error("白名单不可用，按空白名单处理", zap.Error(err))
		return false
	}
	_, ok := set[addr]
	return ok
}

// List 返回白名单中的地址，保持文件顺序
func (w *Whitelist) List() ([]string, error) {
	lines, err := w.readLines()
	if err != nil {
		return nil, err
	}
	var addrs []string
	for _, line := range lines {
		if addr := strings.TrimSpace(line); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs, nil
}

// Add 添加地址（幂等）
func (w *Whitelist) Add(addr string) error {
	return w.modify(addr, true)
}

// Remove 移除地址（幂等）
func (w *Whitelist) Remove(addr string) error {
	return w.modify(addr, false)
}

func (w *Whitelist) readLines() ([]string, error) {
	f, err := w.fs.Open(w.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, strings.ReplaceAll(scanner.Text(), "\r,", ""))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// modify 修改白名单
// add: true=添加地址, false=移除地址
func (w *Whitelist) modify(addr string, add bool) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("地址不能为空")
	}

	lines, err := w.readLines()
	if err != nil {
		if !os.IsNotExist(err) || !add {
			return err
		}
		lines = nil
	}

	var newLines []string
	found := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == addr {
			found = true
			if add {
				newLines = append(newLines, trimmed)
			}
			continue
		}
		newLines = append(newLines, trimmed)
	}

	if add == found {
		return nil
	}
	if add {
		newLines = append(newLines, addr)
	}

	if err := w.fs.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return err
	}

	// 备份原文件
	backupPath := w.path + ".bak"
	if lines != nil {
		if err := w.fs.Rename(w.path, backupPath); err != nil {
			return err
		}
	}

	content := ""
	if len(newLines) > 0 {
		content = strings.Join(newLines, "\n") + "\n"
	}
	if err := afero.WriteFile(w.fs, w.path, []byte(content), 0644); err != nil {
		if lines != nil {
			// 恢复备份
			_ = w.fs.Rename(backupPath, w.path)
		}
		return err
	}

	w.logger.Info("白名单已更新", zap.String("addr", addr), zap.Bool("add", add))
	return nil
}

// Watch 监听白名单文件变更并记录日志，直到 ctx 结束
// 判断时依旧重新读取文件，这里只负责让修改可见
func (w *Whitelist) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// 监听目录，编辑器通常以重命名的方式保存文件
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("监听白名单目录 %s 失败: %w", dir, err)
	}

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			set, err := w.Load()
			if err != nil {
				w.logger.Warn("白名单文件已变更但无法读取", zap.String("op", event.Op.String()), zap.Error(err))
				continue
			}
			w.logger.Info("白名单文件已变更", zap.String("op", event.Op.String()), zap.Int("entries", len(set)))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("白名单监听错误", zap.Error(err))
		}
	}
}
