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
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/kestreldb/vecagg/pkg/container/batch"
	"github.com/kestreldb/vecagg/pkg/logutil"
)

// Driver pulls batches from a source into one executor and ends with a
// final or partial result. Cancellation is honored between batches; a
// batch already handed to the executor always completes.
type Driver struct {
	src     Source
	exec    Exec
	partial bool
}

func NewDriver(src Source, exec Exec, partial bool) *Driver {
	return &Driver{src: src, exec: exec, partial: partial}
}

func (d *Driver) Run(ctx context.Context) (*batch.Batch, error) {
	batches, rows := 0, 0
	for {
		select {
		case <-ctx.Done():
			logutil.Debug("aggregation drive canceled",
				zap.Int("batches", batches), zap.Int("rows", rows))
			return nil, errors.Wrap(ctx.Err(), "aggregation canceled")
		default:
		}

		bat, err := d.src.Next(ctx)
		if err != nil {
			return nil, err
		}
		if bat == nil {
			break
		}
		if err = d.exec.Update(bat); err != nil {
			return nil, err
		}
		batches++
		rows += bat.RowCount()
	}

	logutil.Debug("aggregation drive finished",
		zap.Int("batches", batches), zap.Int("rows", rows), zap.Bool("partial", d.partial))
	if d.partial {
		return d.exec.PartialResult()
	}
	return d.exec.Flush()
}
