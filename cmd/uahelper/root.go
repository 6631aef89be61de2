// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"context"
	"io"

	"github.com/awcullen/uahelper/client"
	"github.com/awcullen/uahelper/config"
	"github.com/awcullen/uahelper/server"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds the settings shared by the commands.
type app struct {
	configFile string
	envFile    string
	endpoint   string
	username   string
	password   string
	security   bool
	logLevel   string
	simulate   bool

	cfg    *config.Config
	logger zerolog.Logger
	stderr io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "uahelper",
		Short: "OPC UA command line client",
		Long: `A command line client for OPC UA servers.

Examples:
  uahelper read -e opc.tcp://127.0.0.1:49320 "ns=2;s=Channel1.Device1.Tag1"
  uahelper write -e opc.tcp://127.0.0.1:49320 "ns=2;s=Channel1.Device1.Tag2=111"
  uahelper subscribe --simulate "ns=2;s=Demo.Ramp"
  uahelper demo --simulate`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	f := cmd.PersistentFlags()
	f.StringVarP(&a.configFile, "config", "c", "", "Path to a YAML config file")
	f.StringVar(&a.envFile, "env-file", "", "Path to a .env file (default: .env, if present)")
	f.StringVarP(&a.endpoint, "endpoint", "e", "", "OPC UA server endpoint URL")
	f.StringVarP(&a.username, "username", "u", "", "User name of the session identity")
	f.StringVarP(&a.password, "password", "p", "", "Password of the session identity")
	f.BoolVar(&a.security, "security", false, "Select a secure endpoint")
	f.StringVar(&a.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	f.BoolVar(&a.simulate, "simulate", false, "Connect to an in-process simulation server")

	cmd.AddCommand(
		newReadCmd(a),
		newWriteCmd(a),
		newSubscribeCmd(a),
		newEndpointsCmd(a),
		newDemoCmd(a),
	)
	return cmd
}

// load reads the configuration and applies the flags that were set.
func (a *app) load(cmd *cobra.Command) error {
	var envFiles []string
	if a.envFile != "" {
		envFiles = append(envFiles, a.envFile)
	}
	cfg, err := config.Load(a.configFile, envFiles...)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("endpoint") {
		cfg.Endpoint = a.endpoint
	}
	if f.Changed("username") {
		cfg.UserName = a.username
	}
	if f.Changed("password") {
		cfg.Password = a.password
	}
	if f.Changed("security") {
		cfg.Security = a.security
	}
	if f.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.stderr = cmd.ErrOrStderr()
	a.logger = cfg.Logger(a.stderr)
	return nil
}

// simulation starts an in-process server that accepts the configured user.
func (a *app) simulation() (*server.Server, error) {
	opts := []server.Option{server.WithLogger(a.logger.With().Str("component", "server").Logger())}
	if a.cfg.UserName != "" {
		opts = append(opts, server.WithUser(a.cfg.UserName, a.cfg.Password))
	}
	srv, err := server.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "start simulation server")
	}
	return srv, nil
}

// connect returns a client connected to the configured endpoint, or to a simulation server.
// The returned function closes the client and the simulation.
func (a *app) connect(ctx context.Context, extra ...client.Option) (*client.Client, func(), error) {
	opts := append(a.cfg.ClientOptions(a.logger.With().Str("component", "client").Logger()), extra...)
	endpoint := a.cfg.Endpoint
	var srv *server.Server
	if a.simulate {
		var err error
		if srv, err = a.simulation(); err != nil {
			return nil, nil, err
		}
		opts = append(opts, client.WithTransport(srv.Transport()))
		endpoint = srv.EndpointURL()
	}
	c, err := client.Dial(ctx, endpoint, opts...)
	if err != nil {
		if srv != nil {
			srv.Close()
		}
		return nil, nil, err
	}
	return c, func() {
		if err := c.Close(context.Background()); err != nil {
			a.logger.Debug().Err(err).Msg("error closing client")
		}
		if srv != nil {
			srv.Close()
		}
	}, nil
}
