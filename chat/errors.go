package chat

import "errors"

var (
	// ErrChatRepositoryRequired is returned when a chat repository is not provided.
	ErrChatRepositoryRequired = errors.New("chat repository required")

	// ErrMembershipRepositoryRequired is returned when a membership repository is not provided.
	ErrMembershipRepositoryRequired = errors.New("membership repository required")

	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrStreamInterrupted indicates the answer failed after fragments were
	// already forwarded. The Sink has received InterruptedMarker.
	ErrStreamInterrupted = errors.New("response interrupted")
)
