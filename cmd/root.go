// Package cmd is the command line interface of the ipquery server.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd(vip *viper.Viper) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "ipquery",
		Short: "ipquery serves an echo app, that looks up and stores the IP of every visitor.",
		Long: `A demo server for the ipquery middleware.
Each request is resolved via api.ipquery.io or a local geolocation database and stored in memory, the log, or PostgreSQL.`,
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if configFile == "" {
				return nil
			}

			vip.SetConfigFile(configFile)

			if err := vip.ReadInConfig(); err != nil {
				return fmt.Errorf("%w: could not read config file: %v", ErrConfigLoadFailed, err) //nolint:errorlint,lll // prevent err in api
			}

			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a config file, e.g. config.yaml")

	return rootCmd
}

func newServeCmd(vip *viper.Viper) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := LoadConfig(vip)
			if err != nil {
				return err
			}

			app, err := NewApp(cmd.Context(), conf)
			if err != nil {
				return err
			}

			return app.Run(cmd.Context())
		},
	}

	serveCmd.Flags().IntP("port", "p", 0, "port of the http server")
	serveCmd.Flags().Bool("forwarded-for", false, "use the address forwarded by a proxy as the client ip")
	serveCmd.Flags().String("store", "", "where to store lookups: memory, log, postgres")
	serveCmd.Flags().String("resolver", "", "how to resolve ips: ipquery, ip2location, maxmind")

	_ = vip.BindPFlag("http.port", serveCmd.Flags().Lookup("port"))
	_ = vip.BindPFlag("forwarded_for", serveCmd.Flags().Lookup("forwarded-for"))
	_ = vip.BindPFlag("store.kind", serveCmd.Flags().Lookup("store"))
	_ = vip.BindPFlag("resolver.kind", serveCmd.Flags().Lookup("resolver"))

	return serveCmd
}

func newConfigCmd(vip *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:                   "config",
		Short:                 "Print the effective configuration, secrets are masked",
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := LoadConfig(vip)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if err := enc.Encode(conf); err != nil {
				return fmt.Errorf("could not print configuration: %w", err)
			}

			return nil
		},
	}
}

// NewIPQueryCLI initialises the complete cli with its commands and returns the root command.
func NewIPQueryCLI(vip *viper.Viper) *cobra.Command {
	rootCmd := newRootCmd(vip)
	rootCmd.AddCommand(newVersionCmd(vip))
	rootCmd.AddCommand(newServeCmd(vip))
	rootCmd.AddCommand(newConfigCmd(vip))

	return rootCmd
}

// Execute runs the cli until it finishes or the process receives an interrupt.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := NewIPQueryCLI(DefaultViper()).ExecuteContext(ctx)

	stop()

	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
