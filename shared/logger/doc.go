// Copyright 2025 CortexAI
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

/*
Package logger provides structured JSON logging for CortexAI gateway
components.

Log entries are written as single-line JSON to stdout so they can be
consumed directly by Cloud Logging, CloudWatch, or an ELK stack. Each
entry carries a timestamp, level, component name, instance identity,
and optional client/request correlation IDs plus free-form fields:

	log := logger.New("gateway")
	log.Info("client-123", "req-456", "query executed", map[string]interface{}{
	    "rows":        42,
	    "duration_ms": 118,
	})

Levels below the configured minimum (default INFO) are dropped. Logger
instances are safe for concurrent use.
*/
package logger
