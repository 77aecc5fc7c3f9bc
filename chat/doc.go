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

// Package chat answers questions about a tenant's documents as a stream of
// text fragments.
//
// A Streamer handles one question at a time: it checks that the asker
// belongs to the tenant, stores the question in the chat session, retrieves
// the most relevant document chunks, and forwards the generated answer to a
// Sink as it is produced. The complete answer is stored only when
// generation ends normally. If generation fails after the first fragment
// was forwarded, InterruptedMarker is written to the Sink and nothing is
// stored; if the caller goes away, the Streamer stops and stores nothing.
package chat
