package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"dhsim/calculator"
	"dhsim/csvio"
	"dhsim/metrics"
	"dhsim/simulation"
	"dhsim/server"
	"dhsim/store"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

var (
	configPath = flag.String("config", "conf/config.ini", "配置文件")
	inputDir   = flag.String("input", "", "管网数据目录")
	outputDir  = flag.String("output", "", "结果输出目录，默认 <input>/results")
	exportDir  = flag.String("export", "", "将导入的管网重新写出到该目录")
	dbPath     = flag.String("db", "", "结果数据库，覆盖 [store] path")
	serve      = flag.Bool("serve", false, "启动 websocket 服务")
	addr       = flag.String("addr", "", "服务地址，覆盖 [server] addr")
	listRuns   = flag.Bool("runs", false, "列出数据库中已存档的批次")
	runID      = flag.String("run", "", "输出某个批次的全网结果和失败的时间步")
	pipeID     = flag.String("pipe", "", "与 -run 一起使用，输出该管道的结果序列")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// 所有退出路径都经过这里返回，数据库在 log.Fatal 之前关闭
func run() error {
	file, err := ini.Load(*configPath)
	if err != nil {
		log.WithField("path", *configPath).Warn("配置文件读取错误，使用默认参数: ", err)
		file = ini.Empty()
	}
	level, err := log.ParseLevel(file.Section("log").Key("level").MustString("info"))
	if err != nil {
		return err
	}
	log.SetLevel(level)

	cfg, err := calculator.ConfigFromIni(file)
	if err != nil {
		return fmt.Errorf("求解参数错误: %w", err)
	}
	opts := simulation.OptionsFromIni(file)

	path := file.Section("store").Key("path").String()
	if *dbPath != "" {
		path = *dbPath
	}
	var db *store.Store
	if path != "" {
		if db, err = store.New(path); err != nil {
			return err
		}
		defer db.Close()
	}

	if *listRuns || *runID != "" {
		if db == nil {
			return errors.New("-runs and -run need a database, set -db or [store] path")
		}
		if *runID != "" {
			return printRun(context.Background(), os.Stdout, db, *runID, *pipeID)
		}
		return printRuns(context.Background(), os.Stdout, db)
	}

	if *serve {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
		listen := file.Section("server").Key("addr").MustString(":9000")
		if *addr != "" {
			listen = *addr
		}
		s := server.NewServer(listen, upgrader, server.Runner{
			Config:  cfg,
			Options: opts,
			Metrics: metrics.DefaultRegistry(),
			Store:   db,
		})
		return s.Serve()
	}

	if *inputDir == "" {
		flag.Usage()
		return errors.New("-input is required")
	}
	return runBatch(cfg, opts, db)
}

func runBatch(cfg calculator.Config, opts simulation.Options, db *store.Store) error {
	sc, err := csvio.ImportFolder(*inputDir)
	if err != nil {
		return err
	}
	if *exportDir != "" {
		if err := csvio.ExportNetwork(*exportDir, sc); err != nil {
			return err
		}
	}

	sim, err := simulation.New(sc, cfg, opts)
	if err != nil {
		return err
	}
	sim.SetRecorder(metrics.DefaultRegistry())
	res, err := sim.Run(context.Background())
	if err != nil {
		return err
	}

	out := *outputDir
	if out == "" {
		out = filepath.Join(*inputDir, "results")
	}
	if err := csvio.WriteResults(out, res); err != nil {
		return err
	}
	if db != nil {
		return db.SaveRun(context.Background(), res)
	}
	return nil
}
