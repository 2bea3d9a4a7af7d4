package main

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	vegeta "github.com/tsenart/vegeta/v12/lib"

	"mistral-probe/load"
	"mistral-probe/logger"
	"mistral-probe/pkg"
	"mistral-probe/stub"
)

var (
	version  = "v1.0.0"
	proxies  string
	logLevel = "info"
	logPath  = "log"

	port int

	host      string
	model     string
	users     uint64
	spawnRate float64
	duration  time.Duration
	timeout   time.Duration

	cmd = &cobra.Command{
		Use:   "mistral-probe",
		Short: "functional and load probes for a Mistral compatible chat API",
		Long: "mistral-probe drives a hosted chat-completion endpoint: the sanity\n" +
			"suite checks the request/response contract, the load command simulates\n" +
			"concurrent users, and serve hosts a local stub of the API.",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			pkg.InitConfig()
			if proxies != "" {
				pkg.Config.Set("proxies", proxies)
			}
			logger.Init(logPath, switchLogLevel())
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "host the local API stub",
		Run: func(cmd *cobra.Command, args []string) {
			if port == 0 {
				port = pkg.Config.GetInt("stub.port")
			}
			if port == 0 {
				port = 8080
			}
			stub.New(pkg.Config.GetString("stub.api-key"), pkg.Config.GetInt("stub.rpm")).Run(port)
		},
	}

	loadCmd = &cobra.Command{
		Use:   "load",
		Short: "run the load scenario and print a report",
		Run: func(cmd *cobra.Command, args []string) {
			opts := load.Options{
				Host:      host,
				APIKey:    pkg.Config.GetString("mistral.api-key"),
				Model:     model,
				Users:     users,
				SpawnRate: spawnRate,
				Duration:  duration,
				Timeout:   timeout,
			}
			if opts.Host == "" {
				opts.Host = pkg.Config.GetString("mistral.base-url")
			}
			if opts.Host == "" {
				logger.Fatal("no target host: set --host, mistral.base-url or BASE_URL")
			}
			if opts.APIKey == "" {
				logger.Fatal("no api key: set mistral.api-key or MISTRAL_API_KEY")
			}
			if opts.Users == 0 {
				opts.Users = pkg.Config.GetUint64("load.users")
			}
			if opts.SpawnRate == 0 {
				opts.SpawnRate = pkg.Config.GetFloat64("load.spawn-rate")
			}
			if opts.Duration == 0 {
				opts.Duration = pkg.Config.GetDuration("load.duration")
			}

			report, err := load.Attack(opts)
			if err != nil {
				logger.Fatal(err)
			}
			if err = vegeta.NewTextReporter(&report.Metrics).Report(os.Stdout); err != nil {
				logger.Fatal(err)
			}
			if !report.Success() {
				os.Exit(1)
			}
		},
	}
)

func main() {
	cmd.PersistentFlags().StringVar(&proxies, "proxies", "", "local proxies")
	cmd.PersistentFlags().StringVar(&logLevel, "log", logLevel, "log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&logPath, "log-path", logPath, "log path")

	serveCmd.Flags().IntVar(&port, "port", 0, "stub port")

	loadCmd.Flags().StringVar(&host, "host", "", "target host, e.g. https://api.mistral.ai")
	loadCmd.Flags().StringVar(&model, "model", "", "model to request")
	loadCmd.Flags().Uint64Var(&users, "users", 0, "simulated users")
	loadCmd.Flags().Float64Var(&spawnRate, "spawn-rate", 0, "users spawned per second")
	loadCmd.Flags().DurationVar(&duration, "duration", 0, "run duration")
	loadCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per request timeout")

	cmd.AddCommand(serveCmd, loadCmd)
	_ = cmd.Execute()
}

func switchLogLevel() logrus.Level {
	switch logLevel {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
