// Copyright 2025 Stateflow Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	lfsm "github.com/looplab/fsm"

	"github.com/stateflow-io/stateflow/pkg/config"
	"github.com/stateflow-io/stateflow/pkg/env"
	"github.com/stateflow-io/stateflow/pkg/logger"
	"github.com/stateflow-io/stateflow/pkg/metrics"
)

func main() {
	// Initialize the global logger first thing
	logger.Initialize()

	log := logger.For(logger.ComponentCore)

	if len(os.Args) < 2 {
		log.Error("Usage: stateflow <definition.yaml|definition.json> [state ...]")
		os.Exit(1)
	}

	path := os.Args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		log.Errorf("Failed to read machine definition %s: %v", path, err)
		os.Exit(1)
	}

	var def config.MachineDefinition
	if strings.HasSuffix(path, ".json") {
		def, err = config.ParseJSON(data)
	} else {
		def, err = config.ParseYAML(data)
	}
	if err != nil {
		log.Errorf("Failed to load machine definition %s: %v", path, err)
		os.Exit(1)
	}

	// Start the metrics server (if enabled)
	metricsPort, err := env.GetAsInt("STATEFLOW_METRICS_PORT", false, 0)
	if err != nil {
		log.Errorf("Failed to read metrics port: %v", err)
		os.Exit(1)
	}
	if metricsPort > 0 {
		server := metrics.SetupMetricsEndpoint(fmt.Sprintf(":%d", metricsPort))
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Errorf("Failed to shutdown metrics server: %v", err)
			}
		}()
	}

	machine, err := config.Build(def, logger.For(logger.ComponentMachine))
	if err != nil {
		log.Errorf("Failed to build machine %s: %v", def.Name, err)
		os.Exit(1)
	}

	if err := machine.Start(); err != nil {
		log.Errorf("Failed to start machine %s: %v", machine.Name(), err)
		os.Exit(1)
	}

	if err := machine.OnEnterState(func(ctx context.Context, e *lfsm.Event) {
		log.Infof("Machine %s entered state %s via %s", machine.Name(), e.Dst, e.Event)
	}); err != nil {
		log.Errorf("Failed to register enter handler: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()
	for _, target := range os.Args[2:] {
		if err := machine.Go(ctx, target); err != nil {
			log.Errorf("Failed to transition machine %s to %s: %v", machine.Name(), target, err)
			os.Exit(1)
		}
	}

	current, err := machine.Current()
	if err != nil {
		log.Errorf("Failed to read current state: %v", err)
		os.Exit(1)
	}

	log.Infof("Machine %s finished in state %s", machine.Name(), current)

	_ = logger.Sync()
}
