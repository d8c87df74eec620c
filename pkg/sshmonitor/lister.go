package sshmonitor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/host"
)

// Lister 会话探针，返回当前成功登录的 SSH 会话快照（每行一条）
type Lister interface {
	List(ctx context.Context) (string, error)
}

// CommandLister 通过外部程序获取登录列表
type CommandLister struct {
	Path string
	Args []string
}

// NewCommandLister 创建外部程序探针
func NewCommandLister(path string, args ...string) *CommandLister {
	return &CommandLister{Path: path, Args: args}
}

// List 执行探针程序并返回其标准输出
func (l *CommandLister) List(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, l.Path, l.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("执行探针 %s 失败: %w: %s", l.Path, err, msg)
		}
		return "", fmt.Errorf("执行探针 %s 失败: %w", l.Path, err)
	}
	return stdout.String(), nil
}

// UsersLister 基于 utmp 的内置探针，只保留远程会话
type UsersLister struct {
	users    func(ctx context.Context) ([]host.UserStat, error)
	hostname func(ctx context.Context) (string, error)
}

// NewUsersLister 创建内置探针
func NewUsersLister() *UsersLister {
	return &UsersLister{
		users: host.UsersWithContext,
		hostname: func(ctx context.Context) (string, error) {
			info, err := host.InfoWithContext(ctx)
			if err != nil {
				return "", err
			}
			return info.Hostname, nil
		},
	}
}

// List 输出格式: "<登录时间> <主机名> <用户> - <来源>:<终端>"
func (l *UsersLister) List(ctx context.Context) (string, error) {
	users, err := l.users(ctx)
	if err != nil {
		return "", fmt.Errorf("读取登录用户失败: %w", err)
	}
	hostname, err := l.hostname(ctx)
	if err != nil {
		return "", fmt.Errorf("读取主机名失败: %w", err)
	}

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Started < users[j].Started
	})

	var b strings.Builder
	for _, u := range users {
		if u.Host == "" {
			continue
		}
		started := time.Unix(int64(u.Started), 0).UTC().Format(time.RFC3339)
		fmt.Fprintf(&b, "%s %s %s - %s:%s\n", started, hostname, u.User, u.Host, u.Terminal)
	}
	return b.String(), nil
}
