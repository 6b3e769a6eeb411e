// votectl 选举系统命令行客户端
//
//	votectl [-server URL] [-session PATH] <command> [flags]
//
// 命令: login, logout, whoami, elections, candidacies, vote, history, results
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/client"
)

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.db"
	}
	return filepath.Join(home, ".votectl", "session.db")
}

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	serverDefault := os.Getenv("VOTECTL_SERVER")
	if serverDefault == "" {
		serverDefault = "http://localhost:8080"
	}

	fs := flag.NewFlagSet("votectl", flag.ExitOnError)
	server := fs.String("server", serverDefault, "服务端地址")
	sessionPath := fs.String("session", defaultSessionPath(), "本地会话数据库路径")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "用法: votectl [-server URL] [-session PATH] <login|logout|whoami|elections|candidacies|vote|history|results> [flags]")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	store, err := client.OpenSessionStore(*sessionPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开会话失败: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(client.NewAPI(*server), store, os.Stdin, os.Stdout)
	if err := a.run(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		stop()
		store.Close()
		os.Exit(1)
	}
}
