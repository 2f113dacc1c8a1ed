package app

import (
	"github.com/spf13/cobra"

	"github.com/sockbridge/sockbridge/internal/build"
	"github.com/sockbridge/sockbridge/internal/config"
)

func Sockbridge() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "",
		Short: "Sockbridge",
		Long:  "Sockbridge - SockJS protocol server in Go",
		Run: func(cmd *cobra.Command, args []string) {
			Run(cmd, configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "config.json", "path to config file")
	config.DefineFlags(cmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Sockbridge version number",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("Sockbridge v%s\n", build.Version)
		},
	}
	cmd.AddCommand(versionCmd)
	return cmd
}
