package cmd

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"VibeFM/config"
	"VibeFM/logger"
	"VibeFM/storage"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "检查运行环境",
	Long:  `检查ffmpeg可执行文件、MinIO连接和上游服务配置是否就绪。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.InitLogger(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})

		ok := true

		// ffmpeg
		fmt.Printf("检查 ffmpeg (%s)... ", cfg.FFmpegPath)
		if err := exec.Command(cfg.FFmpegPath, "-version").Run(); err != nil {
			fmt.Printf("失败: %v\n", err)
			ok = false
		} else {
			fmt.Println("OK")
		}

		// Upstream credentials
		if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
			fmt.Println("SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET 未配置")
			ok = false
		}
		if cfg.YouTubeAPIKey == "" {
			fmt.Println("YOUTUBE_API_KEY 未配置")
			ok = false
		}
		if cfg.AgentAPIKey == "" {
			fmt.Println("AGENT_API_KEY 未配置（description 请求将不可用）")
		}

		// MinIO
		if cfg.MinioAccessKey != "" {
			fmt.Printf("检查 MinIO (%s, bucket %s)... ", cfg.MinioEndpoint, cfg.MinioBucket)
			store, err := storage.NewMinioStorage(cfg)
			if err != nil {
				fmt.Printf("失败: %v\n", err)
				ok = false
			} else {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := store.Check(ctx); err != nil {
					fmt.Printf("失败: %v\n", err)
					ok = false
				} else {
					fmt.Println("OK")
				}
			}
		} else {
			fmt.Println("MinIO 未配置，upload 投递模式不可用")
		}

		if !ok {
			log.Fatal("环境检查未通过")
		}
		fmt.Println("环境检查通过！")
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
