package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/table-order/fakebackend"
	"github.com/yeremiapane/table-order/utils"
)

var demoBackendAddr string

var demoBackendCmd = &cobra.Command{
	Use:   "demo-backend",
	Short: "Run an in-memory restaurant backend with a sample menu",
	Long: `Run an in-memory restaurant backend with a sample menu.

Examples:
  table-order demo-backend --addr :3000
  table-order --api-url http://localhost:3000 menu --table 4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gin.SetMode(gin.ReleaseMode)
		utils.InfoLogger.Printf("Demo backend listening on %s", demoBackendAddr)
		return fakebackend.NewSeeded().Handler().Run(demoBackendAddr)
	},
}

func init() {
	demoBackendCmd.Flags().StringVar(&demoBackendAddr, "addr", ":3000", "listen address")
}
