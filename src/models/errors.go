package models

import "fmt"

// NotFoundError represents an error when a requested resource is not found
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// ValidationError represents an error when data validation fails
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StorageError represents an error when storage operations fail
type StorageError struct {
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// TransportError is a request or network failure talking to the chat
// service, including non-success HTTP statuses.
type TransportError struct {
	Op         string
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("API Error: %d %s: %v", e.StatusCode, e.Status, e.Err)
		}
		return fmt.Sprintf("API Error: %d %s", e.StatusCode, e.Status)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "Network error"
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is an explicit error event sent by the chat service inside
// the stream.
type RemoteError struct {
	Code    string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}
