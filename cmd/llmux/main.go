// =============================================================================
// llmux 演示入口
// =============================================================================
// LLM 调用核心的端到端演示：加载配置 → 组装中间件管线 → 并发多路复用会话
//
// 使用方法:
//
//	llmux run                        # 使用默认配置运行演示
//	llmux run --config config.yaml   # 指定配置文件
//	llmux run --requests 8           # 指定演示请求数
//	llmux version                    # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/graphrag"
	"github.com/BaSui01/graphrag/config"
	internalmetrics "github.com/BaSui01/graphrag/internal/metrics"
	"github.com/BaSui01/graphrag/llm"
	"github.com/BaSui01/graphrag/metrics"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runDemo(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🖥️ run 命令
// =============================================================================

func runDemo(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	requests := fs.Int("requests", 4, "Number of demo requests to submit")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting llmux demo",
		zap.String("version", Version),
		zap.String("model", cfg.Model),
	)

	// 指标：Prometheus 收集器挂在聚合存储后面
	collector := internalmetrics.NewCollector("graphrag", logger)
	store := metrics.NewStore(collector)

	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	// 基座 handler：回显模拟，替代真实 provider 调用
	base := echoHandler(cfg.Model)

	handler, err := graphrag.NewHandler(cfg, base, store, logger)
	if err != nil {
		logger.Fatal("Failed to build pipeline", zap.Error(err))
	}

	// Ctrl+C 中断会话
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	respond := func(id string, resp *llm.Response, err error) {
		if err != nil {
			logger.Warn("request failed", zap.String("id", id), zap.Error(err))
			return
		}
		logger.Info("request done", zap.String("id", id), zap.String("content", resp.Content))
	}

	session, err := graphrag.OpenSession(ctx, cfg, handler, respond, store, logger)
	if err != nil {
		logger.Fatal("Failed to open session", zap.Error(err))
	}

	for i := 0; i < *requests; i++ {
		req := &llm.Request{
			Model: cfg.Model,
			Messages: []llm.Message{
				{Role: llm.RoleUser, Content: fmt.Sprintf("demo prompt %d", i)},
			},
			Metrics: &metrics.Accumulator{},
		}
		if err := session.Submit(fmt.Sprintf("req-%d", i), req); err != nil {
			logger.Warn("submit failed", zap.String("id", fmt.Sprintf("req-%d", i)), zap.Error(err))
			break
		}
	}

	session.Close()

	stats := session.Stats()
	logger.Info("session finished",
		zap.Int64("submitted", stats.Submitted),
		zap.Int64("completed", stats.Completed),
		zap.Int64("failed", stats.Failed),
	)

	for model, st := range store.Snapshot() {
		logger.Info("model stats",
			zap.String("model", model),
			zap.Int64("attempted", st.Attempted),
			zap.Int64("succeeded", st.Succeeded),
			zap.Int64("failed", st.Failed),
		)
	}
}

// echoHandler 返回一个回显请求内容的基座 handler
func echoHandler(model string) llm.Handler {
	return func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		var last string
		if n := len(req.Messages); n > 0 {
			last = req.Messages[n-1].Content
		}
		return &llm.Response{
			ID:      llm.NewTraceID(),
			Model:   model,
			Content: "echo: " + last,
			Usage: llm.Usage{
				PromptTokens:     len(last) / 4,
				CompletionTokens: len(last) / 4,
				TotalTokens:      len(last) / 2,
			},
		}, nil
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("llmux %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
}

func printUsage() {
	fmt.Println(`llmux - LLM invocation core demo

Usage:
  llmux <command> [options]

Commands:
  run       Run the demo pipeline and multiplexer session
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>        Path to configuration file (YAML)
  --requests <n>         Number of demo requests (default 4)
  --metrics-addr <addr>  Serve Prometheus metrics (e.g. :9090)

Examples:
  llmux run
  llmux run --config config.yaml --requests 8
  llmux run --metrics-addr :9090`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
