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

package colexec

import (
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/kestreldb/vecagg/pkg/common/verr"
	"github.com/kestreldb/vecagg/pkg/logutil"
)

// Config is the engine's tunable surface, loadable from a TOML file.
type Config struct {
	// Parallelism is the shard count of the parallel driver. 0 means
	// GOMAXPROCS.
	Parallelism int `toml:"parallelism"`

	// PartialCompressThreshold is the serialized partial-result size in
	// bytes above which lz4 kicks in. 0 means the default.
	PartialCompressThreshold int `toml:"partial-compress-threshold"`

	Log logutil.Config `toml:"log"`
}

func DefaultConfig() Config {
	return Config{
		Parallelism:              runtime.GOMAXPROCS(0),
		PartialCompressThreshold: DefaultCompressThreshold,
	}
}

func (c *Config) Validate() error {
	if c.Parallelism < 0 {
		return verr.NewInvalidInput("parallelism cannot be negative: %d", c.Parallelism)
	}
	if c.Parallelism == 0 {
		c.Parallelism = runtime.GOMAXPROCS(0)
	}
	if c.PartialCompressThreshold < 0 {
		return verr.NewInvalidInput("partial-compress-threshold cannot be negative: %d", c.PartialCompressThreshold)
	}
	if c.PartialCompressThreshold == 0 {
		c.PartialCompressThreshold = DefaultCompressThreshold
	}
	return nil
}

// LoadConfig reads and validates a TOML config file.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, verr.NewInvalidInput("loading config %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
