package feed

import (
	"errors"

	"Tally/internal/backend"
	"Tally/internal/core/posts"
)

// NoticeKind classifies a notice for the UI
type NoticeKind string

const (
	// NoticeRetryable is a transient failure; repeating the action may work
	NoticeRetryable NoticeKind = "retryable"
	// NoticeRejected carries the server's own message
	NoticeRejected NoticeKind = "rejected"
	// NoticeSignIn asks the user to sign in
	NoticeSignIn NoticeKind = "sign_in"
	// NoticeInvalid reports bad input from the UI
	NoticeInvalid NoticeKind = "invalid"
	// NoticeFailed is any other failure
	NoticeFailed NoticeKind = "failed"
)

// Notice is a user-facing report of a failed action
type Notice struct {
	Kind      NoticeKind
	Op        string
	Message   string
	EntityID  posts.ID
	Retryable bool
}

const noticeBuffer = 32

// noticeFor classifies err. ok is false for outcomes that are not failures
// from the user's point of view, such as a rejected duplicate tap.
func noticeFor(op string, id posts.ID, err error) (Notice, bool) {
	if err == nil || IsNoop(err) {
		return Notice{}, false
	}

	n := Notice{Op: op, EntityID: id, Message: backend.UserMessage(err)}
	switch {
	case backend.IsTransient(err):
		n.Kind = NoticeRetryable
		n.Retryable = true
	case backend.IsRejection(err):
		n.Kind = NoticeRejected
	case backend.IsAuthError(err):
		n.Kind = NoticeSignIn
	case posts.IsValidationError(err):
		n.Kind = NoticeInvalid
		var valErr *posts.ValidationError
		if errors.As(err, &valErr) {
			n.Message = valErr.Message
		}
	default:
		n.Kind = NoticeFailed
	}
	return n, true
}

// notify never blocks. When the buffer is full the notice is dropped.
func (s *Service) notify(op string, id posts.ID, err error) {
	n, ok := noticeFor(op, id, err)
	if !ok {
		return
	}
	select {
	case s.notices <- n:
	default:
		s.logger.Warn("notice buffer full, dropping notice", "op", op, "message", n.Message)
	}
}

// Notices delivers user-facing failure reports
func (s *Service) Notices() <-chan Notice {
	return s.notices
}
