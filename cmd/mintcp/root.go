// Command mintcp is the sample driver for the protocol engine: a cobra CLI
// built as a single binary package rather than a library package fronted
// by a separate main.go.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kpchow/mintcp/tcplog"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:     "mintcp",
	Short:   "mintcp drives a pair of in-process TCP connections end to end",
	Version: "0.1.0",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults built in if omitted)")

	level, err := logrus.ParseLevel("info")
	if err == nil {
		tcplog.SetLevel(level)
	}

	rootCmd.AddCommand(demoCmd)
}
