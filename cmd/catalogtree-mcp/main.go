package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"

	mcpadapter "catalogtree/internal/adapters/mcp"
	"catalogtree/internal/adapters/source"
	"catalogtree/internal/application"
	"catalogtree/internal/config"
)

func main() {
	flags := pflag.NewFlagSet("catalogtree-mcp", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "config file (default "+config.DefaultConfigFile()+")")
	flags.StringP("source", "s", config.SourceFilesystem, "catalog source: fs, sqlite, http or yaml")
	flags.StringP("root", "r", config.RootPath(), "root directory of the fs source")
	flags.String("db", "", "sqlite catalog (default derived from --root)")
	flags.String("remote", "", "base URL of a catalog server")
	flags.String("catalog", "", "YAML catalog document")
	flags.IntP("page-size", "n", application.DefaultPageSize, "children fetched per page")
	flags.Bool("show-hidden", false, "list dot files of the fs source")
	flags.String("log-level", "warn", "log level: debug, info, warn, error or off")
	flags.String("log-file", "", "write logs to this file instead of stderr")
	_ = flags.Parse(os.Args[1:])

	if err := run(*configPath, flags); err != nil {
		fmt.Fprintf(os.Stderr, "catalogtree-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, flags *pflag.FlagSet) error {
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// stdout carries the protocol
	log, closeLog, err := config.LoggerFor(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	opened, err := source.Open(context.Background(), cfg, log)
	if err != nil {
		return err
	}
	defer opened.Close()

	model := application.NewLazyTreeModel(opened.Provider,
		application.WithPageSize(cfg.PageSize),
		application.WithLogger(log),
	)

	mcpServer := server.NewMCPServer(
		"catalogtree-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	mcpadapter.RegisterTreeTools(mcpServer, mcpadapter.NewSession(model))

	log.WithField("source", cfg.Source).Info("serving tree tools on stdio")
	return server.ServeStdio(mcpServer)
}
