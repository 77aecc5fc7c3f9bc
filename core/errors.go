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

package core

import "errors"

// Error taxonomy shared by every package. Callers match with errors.Is.
var (
	// ErrInvalidConfiguration indicates a component was configured with unusable parameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDimensionMismatch indicates two vectors of different length were compared.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingProvider indicates the embedding service failed.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrGeneration indicates the completion service failed, before or during streaming.
	ErrGeneration = errors.New("generation error")

	// ErrForbidden indicates the caller is not a member of the requested tenant.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates a session or document does not exist for the tenant.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a malformed request or payload.
	ErrValidation = errors.New("validation error")
)

// Domain validation errors. Each one also matches ErrValidation.
var (
	// ErrEmptyContent indicates the message content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrContentTooLong indicates the message content exceeds MaxMessageLength.
	ErrContentTooLong = errors.New("content too long")

	// ErrInvalidRole indicates an invalid Role value.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidStatus indicates an unknown DocumentStatus value.
	ErrInvalidStatus = errors.New("invalid document status")

	// ErrInvalidTransition indicates a forbidden document status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMissingTenant indicates a record or query without a tenant id.
	ErrMissingTenant = errors.New("tenant id required")
)
