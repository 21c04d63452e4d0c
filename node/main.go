// Package main defines the entry point of the oraculum full node.
package main

import (
	"fmt"
	"os"

	joonix "github.com/joonix/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	_ "go.uber.org/automaxprocs"

	"github.com/oraculum-network/oraculum/node/flags"
	"github.com/oraculum-network/oraculum/node/node"
	"github.com/oraculum-network/oraculum/shared/cmd"
	"github.com/oraculum-network/oraculum/shared/logutil"
	"github.com/oraculum-network/oraculum/shared/version"
)

var appFlags = []cli.Flag{
	flags.NetworkFlag,
	flags.RPCHost,
	flags.RPCPort,
	flags.MiningEnabledFlag,
	flags.SecretKeyFileFlag,
	flags.ConsensusThresholdFlag,
	flags.OutboundLimitFlag,
	flags.TxPendingTimeoutFlag,
	cmd.DataDirFlag,
	cmd.VerbosityFlag,
	cmd.EnableTracingFlag,
	cmd.TracingProcessNameFlag,
	cmd.TracingEndpointFlag,
	cmd.TraceSampleFractionFlag,
	cmd.MonitoringPortFlag,
	cmd.DisableMonitoringFlag,
	cmd.ClearDB,
	cmd.ForceClearDB,
	cmd.LogFormat,
	cmd.LogFileName,
	cmd.ConfigFileFlag,
}

func main() {
	app := cli.App{}
	app.Name = "oraculum"
	app.Usage = "this is a proof-of-eligibility full node for the oraculum data request network"
	app.Action = startNode
	app.Version = version.GetVersion()
	app.Flags = appFlags

	app.Before = func(ctx *cli.Context) error {
		// Load any flags from file, if specified.
		if ctx.IsSet(cmd.ConfigFileFlag.Name) {
			if err := altsrc.InitInputSourceWithContext(appFlags, altsrc.NewYamlSourceFromFlagFunc(cmd.ConfigFileFlag.Name))(ctx); err != nil {
				return err
			}
		}

		format := ctx.String(cmd.LogFormat.Name)
		switch format {
		case "text":
			formatter := new(prefixed.TextFormatter)
			formatter.TimestampFormat = "2006-01-02 15:04:05"
			formatter.FullTimestamp = true
			// If persistent log files are written - we disable the log
			// messages coloring because the colors are ANSI codes and seen
			// as gibberish in the log files.
			formatter.DisableColors = ctx.String(cmd.LogFileName.Name) != ""
			logrus.SetFormatter(formatter)
		case "fluentd":
			f := joonix.NewFormatter()
			if err := joonix.DisableTimestampFormat(f); err != nil {
				panic(err)
			}
			logrus.SetFormatter(f)
		case "json":
			logrus.SetFormatter(&logrus.JSONFormatter{})
		default:
			return fmt.Errorf("unknown log format %s", format)
		}

		level, err := logrus.ParseLevel(ctx.String(cmd.VerbosityFlag.Name))
		if err != nil {
			return err
		}
		logrus.SetLevel(level)

		if logFileName := ctx.String(cmd.LogFileName.Name); logFileName != "" {
			if err := logutil.ConfigurePersistentLogging(logFileName); err != nil {
				logrus.WithError(err).Error("Failed to configuring logging to disk")
			}
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Error(err.Error())
		os.Exit(1)
	}
}

func startNode(ctx *cli.Context) error {
	n, err := node.New(ctx)
	if err != nil {
		return err
	}
	n.Start()
	return nil
}
