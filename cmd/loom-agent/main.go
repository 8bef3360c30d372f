// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command loom-agent is a minimal demo orchestrator: it wires config,
// the bridge client, a runtime.Agent, the built-in tool set, and a
// cognitive.StrategyExecutor together to run one ReAct goal. It is not
// a full multi-process CLI orchestrator.
package main

func main() {
	Execute()
}
