package history

import "errors"

var (
	// ErrInvalidCommand is returned when a command has an unknown target or opcode.
	ErrInvalidCommand = errors.New("history: invalid command")

	// ErrTopicRequired is returned when a message is recorded without a topic.
	ErrTopicRequired = errors.New("history: topic is required")
)
