package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/top250-scraper/pkg/chart"
	"github.com/Sriram-PR/top250-scraper/pkg/config"
	"github.com/Sriram-PR/top250-scraper/pkg/crawler"
	"github.com/Sriram-PR/top250-scraper/pkg/dataset"
	"github.com/Sriram-PR/top250-scraper/pkg/extract"
	"github.com/Sriram-PR/top250-scraper/pkg/fetch"
	"github.com/Sriram-PR/top250-scraper/pkg/report"
	"github.com/Sriram-PR/top250-scraper/pkg/storage"
)

const version = "1.0.0"

const defaultConfigFile = "config.yaml"

func main() {
	if len(os.Args) < 2 {
		runAll(nil)
		return
	}

	switch os.Args[1] {
	case "crawl":
		runCrawl(os.Args[2:])
	case "split":
		runSplit(os.Args[2:])
	case "chart":
		runChart(os.Args[2:])
	case "report":
		runReport(os.Args[2:])
	case "show":
		runShow(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("top250 %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		if len(os.Args[1]) > 1 && os.Args[1][0] == '-' {
			// bare flags belong to the full run
			runAll(os.Args[1:])
			return
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `top250 - Douban Top 250 scraper

Usage:
  top250 [options]            Crawl, split, chart and report in one run
  top250 <command> [options]

Commands:
  crawl       Fetch every list page, write the raw and split workbooks
  split       Split year/genre of an existing raw workbook
  chart       Render charts from the split workbook (bar, pie, scatter or all)
  report      Write the HTML summary report
  show        Print the first rows of the split workbook
  validate    Validate configuration file
  version     Show version info

Run 'top250 <command> -h' for command-specific help.`)
}

// commonFlags registers the flags every command accepts
type commonFlags struct {
	fs         *flag.FlagSet
	configFile *string
	logLevel   *string
}

func newCommonFlags(name, usageLine string) *commonFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cf := &commonFlags{
		fs:         fs,
		configFile: fs.String("config", defaultConfigFile, "Path to config file (built-in defaults if the default file is missing)"),
		logLevel:   fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)"),
	}
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s\n\nOptions:\n", usageLine)
		fs.PrintDefaults()
	}
	return cf
}

// configRequired reports whether -config was given explicitly
func (cf *commonFlags) configRequired() bool {
	set := false
	cf.fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			set = true
		}
	})
	return set
}

func (cf *commonFlags) parse(args []string) {
	if err := cf.fs.Parse(args); err != nil {
		os.Exit(1)
	}
}

// setup builds the logger and loads the effective configuration, exiting on config errors
func (cf *commonFlags) setup() (*config.AppConfig, *logrus.Logger) {
	log := setupLogger(*cf.logLevel)
	appCfg, err := loadConfig(*cf.configFile, cf.configRequired(), log)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	logAppConfig(appCfg, log)
	return appCfg, log
}

// runAll handles the argument-less full pipeline
func runAll(args []string) {
	cf := newCommonFlags("top250", "top250 [options]")
	cf.parse(args)
	appCfg, log := cf.setup()

	ctx, stop := signalContext(log)
	defer stop()

	exitOnError(log, doAll(ctx, appCfg, log, os.Stdout))
}

// runCrawl handles the crawl subcommand
func runCrawl(args []string) {
	cf := newCommonFlags("crawl", "top250 crawl [options]")
	cf.parse(args)
	appCfg, log := cf.setup()

	ctx, stop := signalContext(log)
	defer stop()

	exitOnError(log, doCrawl(ctx, appCfg, log, os.Stdout))
}

// runSplit handles the split subcommand
func runSplit(args []string) {
	cf := newCommonFlags("split", "top250 split [options]")
	cf.parse(args)
	appCfg, log := cf.setup()

	exitOnError(log, doSplit(appCfg, log, os.Stdout))
}

// runChart handles the chart subcommand; the kind is the first positional argument
func runChart(args []string) {
	cf := newCommonFlags("chart", "top250 chart [options] [bar|pie|scatter|all]")
	cf.parse(args)
	kind := chart.KindAll
	if cf.fs.NArg() > 0 {
		kind = cf.fs.Arg(0)
	}
	appCfg, log := cf.setup()

	exitOnError(log, doChart(appCfg, kind, log, os.Stdout))
}

// runReport handles the report subcommand
func runReport(args []string) {
	cf := newCommonFlags("report", "top250 report [options]")
	cf.parse(args)
	appCfg, log := cf.setup()

	exitOnError(log, doReport(appCfg, log, os.Stdout))
}

// runShow handles the show subcommand
func runShow(args []string) {
	cf := newCommonFlags("show", "top250 show [options]")
	n := cf.fs.Int("n", 10, "Number of rows to print (0 = all)")
	cf.parse(args)
	appCfg, log := cf.setup()

	exitOnError(log, doShow(appCfg, *n, os.Stdout))
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", defaultConfigFile, "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: top250 validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doValidate(*configFile, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := config.Load(configPath, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "OK: %d page(s) of %d from %s\n",
		len(crawler.PageOffsets(appCfg.PageSize, appCfg.TotalEntries)), appCfg.PageSize, appCfg.BaseURL)
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// setupLogger creates a configured logrus.Logger with the given log level.
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
		log.Debugf("Setting log level to: %s", level.String())
	}

	return log
}

// loadConfig loads the config file, validates it and logs warnings.
func loadConfig(configFile string, required bool, log *logrus.Logger) (*config.AppConfig, error) {
	appCfg, err := config.Load(configFile, required)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(configFile); statErr == nil {
		log.Infof("Loaded configuration from %s", configFile)
	} else {
		log.Infof("No configuration at %s, using built-in defaults", configFile)
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		return nil, err
	}
	return appCfg, nil
}

// logAppConfig logs the effective configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Debugf("Config: BaseURL:%s, PageSize:%d, TotalEntries:%d, RespectRobots:%t",
		appCfg.BaseURL, appCfg.PageSize, appCfg.TotalEntries, appCfg.RespectRobots)
	log.Debugf("Config Output: Dir:%s, Sheet:%s, Raw:%s, Split:%s, StateDir:%q",
		appCfg.OutputDir, appCfg.SheetName, appCfg.RawWorkbook, appCfg.SplitWorkbook, appCfg.StateDir)
	log.Debugf("Config Charts: Bar:%s, Pie:%s, Scatter:%s, Rows:%d, Jitter:%.2f, Seed:%d, Open:%t",
		appCfg.Charts.BarFile, appCfg.Charts.PieFile, appCfg.Charts.ScatterFile,
		appCfg.Charts.ScatterRows, appCfg.Charts.JitterAmount, appCfg.Charts.JitterSeed, appCfg.ShouldOpenScatter())
	log.Debugf("Config HTTP Client: Timeout:%v, MaxIdle:%d, MaxIdlePerHost:%d, IdleTimeout:%v",
		appCfg.HTTPClientSettings.Timeout, appCfg.HTTPClientSettings.MaxIdleConns,
		appCfg.HTTPClientSettings.MaxIdleConnsPerHost, appCfg.HTTPClientSettings.IdleConnTimeout)
}

// signalContext returns a context cancelled by SIGINT/SIGTERM. A second signal,
// or a shutdown that takes longer than 30s, forces exit.
func signalContext(log *logrus.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		case <-done:
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		close(done)
		cancel()
	}
}

// exitOnError maps a command result to the process exit code
func exitOnError(log *logrus.Logger, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		log.Warn("Run cancelled.")
		os.Exit(0)
	}
	log.Errorf("Run finished with error: %v", err)
	os.Exit(1)
}

// doAll runs crawl, split, charts and report in sequence
func doAll(ctx context.Context, appCfg *config.AppConfig, log *logrus.Logger, stdout io.Writer) error {
	if err := doCrawl(ctx, appCfg, log, stdout); err != nil {
		return err
	}
	if err := doChart(appCfg, chart.KindAll, log, stdout); err != nil {
		return err
	}
	return doReport(appCfg, log, stdout)
}

// doCrawl fetches every page into the raw workbook and then splits it
func doCrawl(ctx context.Context, appCfg *config.AppConfig, log *logrus.Logger, stdout io.Writer) error {
	logEntry := log.WithField("component", "crawl")

	store, err := storage.NewBadgerStore(ctx, appCfg.StateDir, false, logEntry)
	if err != nil {
		// crawl without a ledger
		log.Errorf("Failed to initialize page ledger: %v", err)
	} else {
		defer store.Close()
	}

	httpClient := fetch.NewClient(appCfg.HTTPClientSettings, logEntry)
	fetcher := fetch.NewFetcher(httpClient, appCfg.UserAgent, logEntry)
	if appCfg.RespectRobots {
		fetcher.WithRobots(fetch.NewRobotsHandler(httpClient, appCfg.UserAgent, logEntry))
	}

	extractor, err := extract.NewExtractor(appCfg.Selectors)
	if err != nil {
		return err
	}

	var ledger storage.PageLedger
	if store != nil {
		ledger = store
	}
	c := crawler.NewCrawler(appCfg, fetcher, extractor, ledger, logEntry)

	res, err := c.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Excel文件已经生成: %s (%d 条记录, %d 页失败)\n", res.RawWorkbook, len(res.Records), res.FailedPages)

	split, err := c.Split()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "年份和类型已拆分为独立列, 保存到新文件: %s (%d 条记录)\n",
		appCfg.OutputPath(appCfg.SplitWorkbook), len(split))
	return nil
}

// doSplit splits the raw workbook left by an earlier crawl
func doSplit(appCfg *config.AppConfig, log *logrus.Logger, stdout io.Writer) error {
	split, err := crawler.SplitWorkbook(appCfg, log.WithField("component", "split"))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "年份和类型已拆分为独立列, 保存到新文件: %s (%d 条记录)\n",
		appCfg.OutputPath(appCfg.SplitWorkbook), len(split))
	return nil
}

// doChart renders the requested chart kind from the split workbook
func doChart(appCfg *config.AppConfig, kind string, log *logrus.Logger, stdout io.Writer) error {
	rows, err := dataset.ReadSplit(appCfg.OutputPath(appCfg.SplitWorkbook), appCfg.SheetName)
	if err != nil {
		return err
	}

	paths, err := chart.NewBuilder(appCfg, log.WithField("component", "chart")).Build(kind, rows)
	for _, p := range paths {
		fmt.Fprintf(stdout, "图表已成功保存为：%s\n", p)
	}
	return err
}

// doReport writes the HTML summary of the split workbook
func doReport(appCfg *config.AppConfig, log *logrus.Logger, stdout io.Writer) error {
	rows, err := dataset.ReadSplit(appCfg.OutputPath(appCfg.SplitWorkbook), appCfg.SheetName)
	if err != nil {
		return err
	}

	path := appCfg.OutputPath(appCfg.ReportFile)
	if err := report.Write(path, report.Render(report.Build(rows, appCfg))); err != nil {
		return err
	}
	log.WithField("component", "report").Infof("Report written to %s", path)
	fmt.Fprintf(stdout, "报告已生成: %s\n", path)
	return nil
}

// doShow prints the first n rows of the split workbook as a table
func doShow(appCfg *config.AppConfig, n int, stdout io.Writer) error {
	rows, err := dataset.ReadSplit(appCfg.OutputPath(appCfg.SplitWorkbook), appCfg.SheetName)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, renderSplitTable(rows, n))
	fmt.Fprintf(stdout, "%d 条记录\n", len(rows))
	return nil
}
