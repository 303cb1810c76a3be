package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "table-order",
	Short: "QR table ordering client for restaurants",
	Long: `table-order is the customer and staff client of a restaurant's ordering backend.

Customers browse the menu of their table, build a cart, place orders, follow
their status and pay through UPI apps. Staff unlock the dashboard with a PIN
to move orders along and to manage the menu. Run "serve" for the web front or
use the subcommands directly from a terminal.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, keys as environment variable names)")
	rootCmd.PersistentFlags().String("api-url", "", "backend base URL (API_URL)")
	rootCmd.PersistentFlags().String("store-driver", "", "storage driver: sqlite or mysql (STORE_DRIVER)")
	rootCmd.PersistentFlags().String("store-dsn", "", "storage DSN (STORE_DSN)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (LOG_LEVEL)")

	bindFlag(rootCmd, "API_URL", "api-url")
	bindFlag(rootCmd, "STORE_DRIVER", "store-driver")
	bindFlag(rootCmd, "STORE_DSN", "store-dsn")
	bindFlag(rootCmd, "LOG_LEVEL", "log-level")

	rootCmd.AddCommand(serveCmd, demoBackendCmd, menuCmd, cartCmd, orderCmd, payCmd, adminCmd)
}

// bindFlag lets a persistent flag override key only when it was set.
func bindFlag(c *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, c.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() {
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
