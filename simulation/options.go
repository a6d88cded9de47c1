package simulation

import (
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// 批量计算参数，对应配置文件 [simulation]
type Options struct {
	Workers int

	// 为 true 时单个时间步的物理输入错误只记录并跳过，否则终止整个批次
	SkipFailedSteps bool

	// 整个批次的超时时间，0 表示不限制
	Timeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Workers: runtime.NumCPU(),
	}
}

func OptionsFromIni(file *ini.File) Options {
	d := DefaultOptions()
	opts := Options{
		Workers:         file.Section("simulation").Key("workers").MustInt(d.Workers),
		SkipFailedSteps: file.Section("simulation").Key("skip_failed_steps").MustBool(d.SkipFailedSteps),
		Timeout:         file.Section("simulation").Key("timeout").MustDuration(d.Timeout),
	}
	if opts.Workers <= 0 {
		opts.Workers = d.Workers
	}
	log.WithFields(log.Fields{
		"workers":           opts.Workers,
		"skip_failed_steps": opts.SkipFailedSteps,
		"timeout":           opts.Timeout,
	}).Info("设置批量计算参数")
	return opts
}
