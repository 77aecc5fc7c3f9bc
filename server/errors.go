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

package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/lumina/core"
)

// Error codes returned in the JSON error envelope.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

var (
	// ErrPayloadTooLarge indicates an upload above MaxUploadBytes.
	ErrPayloadTooLarge = errors.New("file too large (max 10MB)")

	// ErrUnsupportedFileType indicates an upload with an extension other
	// than .txt, .md or .pdf.
	ErrUnsupportedFileType = errors.New("only .txt, .md, .pdf allowed")
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// classify maps err onto a status and error code. Internal errors get a
// generic message so storage details do not leak.
func classify(err error) (int, errorBody) {
	switch {
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, errorBody{CodePayloadTooLarge, err.Error()}
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, errorBody{CodeValidation, err.Error()}
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, errorBody{CodeForbidden, "User not in organization"}
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, errorBody{CodeNotFound, "Not found"}
	default:
		return http.StatusInternalServerError, errorBody{CodeInternal, "Processing failed"}
	}
}

// abortWithError renders err and stops the handler chain.
func (s *Server) abortWithError(c *gin.Context, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: body})
}
