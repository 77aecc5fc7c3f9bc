// Copyright 2025 Poiesic Systems
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

// Package queue carries ingestion jobs from the upload surface to the
// ingestion workers.
//
// Payloads are tagged and versioned JSON documents. They are validated on
// both sides of the transport: Enqueue refuses malformed jobs and Dequeue
// moves undecodable payloads to the dead-letter list instead of handing them
// to a worker.
//
// Two transports are provided. RedisQueue is the production transport; it
// survives process restarts and lets workers run on separate hosts.
// MemoryQueue keeps everything in process and backs single-binary
// deployments and tests. Both apply the same retry policy: a nacked job is
// redelivered after an exponential delay until MaxAttempts deliveries have
// failed, after which it is dead-lettered.
package queue
