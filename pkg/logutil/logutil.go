// Copyright 2024 KestrelDB
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logutil holds the engine's zap logger. The storage node wires
// its own logger in at startup; the default writes to stderr.
package logutil

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	// Level is a zap level string: debug, info, warn, error.
	Level string `toml:"level"`
	// Filename, when set, routes output to a rotated file instead of stderr.
	Filename   string `toml:"filename"`
	MaxSizeMB  int    `toml:"max-size-mb"`
	MaxBackups int    `toml:"max-backups"`
}

var global atomic.Pointer[zap.Logger]

func init() {
	logger, _ := zap.NewProduction()
	global.Store(logger.Named("vecagg"))
}

// SetupLogger builds a logger from cfg and installs it as the package
// global. Call once at process start.
func SetupLogger(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	var core zapcore.Core
	encCfg := zap.NewProductionEncoderConfig()
	if cfg.Filename != "" {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, level)
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		logger, err := cfg.Build()
		if err != nil {
			return err
		}
		Adopt(logger.Named("vecagg"))
		return nil
	}
	Adopt(zap.New(core).Named("vecagg"))
	return nil
}

// Adopt replaces the global logger, for embedding processes that already
// carry their own zap tree.
func Adopt(logger *zap.Logger) {
	global.Store(logger)
}

func GetLogger() *zap.Logger {
	return global.Load()
}

func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }
