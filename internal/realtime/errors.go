package realtime

import (
	"errors"

	"github.com/campusmind/campusmind/internal/pkg/apperrors"
)

// genericFailure is what the initiator sees when the persistence collaborator
// errors; the real cause only goes to server logs.
const genericFailure = "Something went wrong, please try again"

// clientMessage converts an error into the short, non-technical string sent
// to the initiating connection. Returns the message and whether the error was
// an expected rejection (validation, authorization, not-found) rather than a
// collaborator failure that needs server-side logging.
func clientMessage(err error) (string, bool) {
	var custom *apperrors.CustomError
	if errors.As(err, &custom) {
		if msg, ok := knownMessage(custom.Err); ok {
			if custom.Message != "" {
				return custom.Message, true
			}
			return msg, true
		}
	}

	if msg, ok := knownMessage(err); ok {
		return msg, true
	}

	return genericFailure, false
}

func knownMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, apperrors.ErrConversationNotFound),
		errors.Is(err, apperrors.ErrNotParticipant):
		// Deliberately the same wording: absence and forbidden are
		// indistinguishable for conversations.
		return "Conversation not found", true
	case errors.Is(err, apperrors.ErrCommunityNotFound),
		errors.Is(err, apperrors.ErrPermissionDenied):
		return "Cannot join this community", true
	case errors.Is(err, apperrors.ErrNotMember):
		return "You are not a member of this community", true
	case errors.Is(err, apperrors.ErrValidationFailed):
		return "Invalid message", true
	case errors.Is(err, apperrors.ErrUserNotFound):
		return "User not found", true
	}
	return "", false
}
