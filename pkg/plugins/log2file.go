package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log2FilePath 返回登录记录文件路径，默认 $HOME/.ssh_logins.log
func Log2FilePath(cfg Log2FileConfig) (string, error) {
	if cfg.Path != "" {
		return cfg.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("无法确定 HOME 目录: %w", err)
	}
	return filepath.Join(home, DefaultLog2FileName), nil
}

// AppendLogin 以 "[时间] 登录记录" 的格式追加写入文件
func AppendLogin(cfg Log2FileConfig, login string, now time.Time) (string, error) {
	path, err := Log2FilePath(cfg)
	if err != nil {
		return "", err
	}

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	defer w.Close()

	if _, err := fmt.Fprintf(w, "[%s] %s\n", now.UTC().Format("2006-01-02 15:04:05"), login); err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return path, nil
}
