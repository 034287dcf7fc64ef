package main

import (
	"encoding/base64"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"git.fiblab.net/sim/syncer/v3"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/scenario-sim/scenario"
	"github.com/tsinghua-fib-lab/scenario-sim/task"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/config"
	"gopkg.in/yaml.v2"
)

var (
	// 分布式模式syncer地址，如果设置为空则激活独立部署模式
	// 独立部署：不需要syncer，不向其他服务提供受保护的RPC访问
	syncerAddr = flag.String("syncer", "", "syncer address (empty means standalone mode), e.g. http://localhost:53001")
	// 模拟任务名
	job = flag.String("job", "job0", "the name of the whole simulation task")
	// 本程序监听的gRPC地址
	grpcAddr = flag.String("listen", ":51102", "gRPC listening address")
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 数据加载input的缓存地址，设置为空则禁用缓存功能
	// 缓存：将proto数据根据数据库db和col序列化到本地文件系统，并总是先试图从文件系统中加载
	cacheDir = flag.String("cache", "data/", "input cache dir path (empty means disable cache)")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "scenario-sim")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	var c config.Config
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Panic("config file or config data must be specified")
	}
	if err := yaml.UnmarshalStrict(file, &c); err != nil {
		log.Panicf("config file load err: %v", err)
	}
	log.Infof("%+v", c)

	os.Exit(run(c))
}

// run 运行场景，返回进程退出码
func run(c config.Config) int {
	// 看门狗报告输出
	var monitorOut io.Writer
	if c.Monitor.File != "" {
		f, err := os.Create(c.Monitor.File)
		if err != nil {
			log.Panicf("monitor file create err: %v", err)
		}
		defer f.Close()
		monitorOut = f
	}

	sidecar := syncer.NewSidecar(task.SelfName, *grpcAddr, *syncerAddr)
	t, err := task.NewContext(
		*job,
		*cacheDir,
		c,
		sidecar,
		true,
		prometheus.DefaultRegisterer,
		monitorOut,
	)
	if err != nil {
		log.Panicf("task init err: %v", err)
	}

	// 指标服务
	if c.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", t.MetricsHandler())
		server := &http.Server{Addr: c.Metrics.Listen, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics server err: %v", err)
			}
		}()
		defer server.Close()
		log.Infof("metrics served at %s/metrics", c.Metrics.Listen)
	}

	// 收到中断信号时在当前步结束后退出
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-signals
		log.Warnf("received %v, stopping", s)
		t.Stop()
	}()

	outcome, err := t.Run()
	if err != nil {
		log.Errorf("scenario aborted: %v", err)
	}
	log.Infof("scenario %v", outcome)
	if outcome == scenario.Failed {
		return 1
	}
	return 0
}
