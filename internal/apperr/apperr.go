// Package apperr defines the domain error vocabulary shared by all
// services. Every error carries a stable machine-readable code, an HTTP
// status for the handler layer, and optional structured details.
package apperr

import "net/http"

// Error is a typed, user-facing domain error.
type Error struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches errors by code, so errors.Is works against a freshly
// constructed sentinel of the same kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Code == e.Code
}

func newError(status int, code, message string, details map[string]any) *Error {
	if details == nil {
		details = map[string]any{}
	}
	return &Error{Status: status, Code: code, Message: message, Details: details}
}

// --- Access / authorization ---

func AuthRequired() *Error {
	return newError(http.StatusUnauthorized, "AUTH_REQUIRED", "A valid player token is required.", nil)
}

func AccessTokenInvalid() *Error {
	return newError(http.StatusUnauthorized, "ACCESS_TOKEN_INVALID", "The access token is invalid or expired.", nil)
}

func RoomAccessDenied() *Error {
	return newError(http.StatusForbidden, "ROOM_ACCESS_DENIED", "You do not have active access to this room.", nil)
}

func HostOnly() *Error {
	return newError(http.StatusForbidden, "HOST_ONLY", "Only room hosts can perform this action.", nil)
}

func MatchParticipantRequired() *Error {
	return newError(http.StatusForbidden, "MATCH_PARTICIPANT_REQUIRED", "Only participants can submit match actions.", nil)
}

func MemberKicked() *Error {
	return newError(http.StatusForbidden, "MEMBER_KICKED", "This account was removed by the room host.", nil)
}

func GuestJoinDisabled() *Error {
	return newError(http.StatusForbidden, "GUEST_JOIN_DISABLED", "Guests are not allowed to join this room.", nil)
}

// --- Capacity / concurrency ---

func RoomFull() *Error {
	return newError(http.StatusBadRequest, "ROOM_FULL", "Room has reached its maximum player capacity.", nil)
}

func MatchAlreadyActive() *Error {
	return newError(http.StatusBadRequest, "MATCH_ALREADY_ACTIVE", "Only one active match is allowed per room.", nil)
}

// --- Validation ---

func MatchOpponentInvalid() *Error {
	return newError(http.StatusBadRequest, "MATCH_OPPONENT_INVALID", "Opponent member is not active in this room.", nil)
}

func MatchOpponentRequired() *Error {
	return newError(http.StatusBadRequest, "MATCH_OPPONENT_REQUIRED", "Opponent must be different from host.", nil)
}

func BoardSizeNotAllowed(allowed []int) *Error {
	return newError(http.StatusBadRequest, "BOARD_SIZE_NOT_ALLOWED", "Selected board size is not allowed for this room.",
		map[string]any{"allowedBoardSizes": allowed})
}

func InsufficientImagesMinimum(minimum, activeCount int) *Error {
	return newError(http.StatusBadRequest, "INSUFFICIENT_IMAGES_MINIMUM", "Not enough active images to start any match.",
		map[string]any{"minRequired": minimum, "activeCount": activeCount})
}

func InsufficientImagesBoardSize(required, activeCount int) *Error {
	return newError(http.StatusBadRequest, "INSUFFICIENT_IMAGES_BOARD_SIZE", "Not enough images for selected board size.",
		map[string]any{"requiredImageCount": required, "activeCount": activeCount})
}

func EliminateImageInvalid() *Error {
	return newError(http.StatusBadRequest, "ELIMINATE_IMAGE_INVALID", "Eliminate action requires a valid board image id.", nil)
}

func GuessImageRequired() *Error {
	return newError(http.StatusBadRequest, "GUESS_IMAGE_REQUIRED", "Guess action requires an imageId payload.", nil)
}

func ActionTypeInvalid() *Error {
	return newError(http.StatusBadRequest, "ACTION_TYPE_INVALID", "Unknown match action type.", nil)
}

// --- State ---

func MatchNotActive() *Error {
	return newError(http.StatusBadRequest, "MATCH_NOT_ACTIVE", "Cannot submit actions to a completed match.", nil)
}

func TurnRequired() *Error {
	return newError(http.StatusForbidden, "TURN_REQUIRED", "Only the active turn player can submit this action.", nil)
}

func TurnAnswerInvalid() *Error {
	return newError(http.StatusForbidden, "TURN_ANSWER_INVALID", "The turn owner cannot submit an answer action.", nil)
}

func MatchNotFound() *Error {
	return newError(http.StatusNotFound, "MATCH_NOT_FOUND", "Match was not found in this room.", nil)
}

func MatchParticipantsInvalid() *Error {
	return newError(http.StatusBadRequest, "MATCH_PARTICIPANTS_INVALID", "Match participant state is missing or corrupt.", nil)
}

// --- Rooms / members ---

func RoomNotFound() *Error {
	return newError(http.StatusNotFound, "ROOM_NOT_FOUND", "Room does not exist or is no longer available.", nil)
}

func MemberNotFound() *Error {
	return newError(http.StatusNotFound, "MEMBER_NOT_FOUND", "Room member was not found.", nil)
}

func HostRemoveBlocked() *Error {
	return newError(http.StatusBadRequest, "HOST_REMOVE_BLOCKED", "Host cannot remove themselves.", nil)
}

func RoomHasActiveMatch() *Error {
	return newError(http.StatusBadRequest, "ROOM_HAS_ACTIVE_MATCH", "Cannot archive room while an active match is running.", nil)
}

func RoomMaxPlayersTooLow(activeMemberCount int) *Error {
	return newError(http.StatusBadRequest, "ROOM_MAX_PLAYERS_TOO_LOW",
		"Max players cannot be lower than the number of currently active members.",
		map[string]any{"activeMemberCount": activeMemberCount})
}

// --- Invites ---

func InviteInvalid() *Error {
	return newError(http.StatusNotFound, "INVITE_INVALID", "Invite does not exist or has been revoked.", nil)
}

func InviteExpired() *Error {
	return newError(http.StatusBadRequest, "INVITE_EXPIRED", "Invite has expired.", nil)
}

func InviteMaxUsesReached() *Error {
	return newError(http.StatusBadRequest, "INVITE_MAX_USES_REACHED", "Invite has reached its usage limit.", nil)
}

func InviteNotFound() *Error {
	return newError(http.StatusNotFound, "INVITE_NOT_FOUND", "Invite was not found.", nil)
}

// --- Images ---

func ImageNotFound() *Error {
	return newError(http.StatusNotFound, "IMAGE_NOT_FOUND", "Image was not found.", nil)
}

func ImageDuplicate(imageID string) *Error {
	return newError(http.StatusBadRequest, "IMAGE_DUPLICATE", "Duplicate image already exists in this room.",
		map[string]any{"imageId": imageID})
}

func ImageMimeInvalid() *Error {
	return newError(http.StatusBadRequest, "IMAGE_MIME_INVALID", "Only JPEG, PNG, and WebP files are supported.", nil)
}

func ImageTooLarge(maxMB int) *Error {
	return newError(http.StatusBadRequest, "IMAGE_TOO_LARGE", "Image exceeds the upload size limit.",
		map[string]any{"maxUploadMb": maxMB})
}

func ImageDeleteForbidden() *Error {
	return newError(http.StatusForbidden, "IMAGE_DELETE_FORBIDDEN", "Only the host or uploader can delete this image.", nil)
}
