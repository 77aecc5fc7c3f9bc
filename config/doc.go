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

// Package config loads deployment settings.
//
// Values are resolved in increasing order of precedence: built-in defaults,
// an optional YAML file, a .env file in the working directory, and LUMINA_*
// environment variables. Nested keys map to variables by replacing dots with
// underscores, so ai.embedding_model is read from LUMINA_AI_EMBEDDING_MODEL.
package config
