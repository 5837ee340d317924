package cmd

import (
	"github.com/spf13/cobra"

	"VibeFM/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动VibeFM服务器",
	Long:  `启动VibeFM的HTTP服务器，提供歌曲解析与音频获取API`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
