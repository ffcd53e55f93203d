package apperror

var (
	// Domain errors returned by the chat and relationship services
	ErrNotParticipant       = Forbidden("you are not a participant of this conversation")
	ErrBlocked              = Forbidden("one of the users has blocked the other")
	ErrConversationNotFound = NotFound("conversation not found")
	ErrUserNotFound         = NotFound("user not found")
	ErrFriendRequestMissing = NotFound("friend request not found")
	ErrGroupNameRequired    = InvalidArg("group conversations require a name")
	ErrGroupNameTooLong     = InvalidArg("group name must be at most 200 characters")
	ErrTooFewParticipants   = InvalidArg("at least 2 users are required")
	ErrDirectNeedsTwo       = InvalidArg("a 1:1 conversation must have exactly 2 users")
	ErrRenameDirect         = InvalidArg("only group conversations can be renamed")
	ErrEmptyMessage         = InvalidArg("message content cannot be empty")
	ErrInvalidCursor        = InvalidArg("invalid cursor")
	ErrSelfBlock            = InvalidArg("you cannot block yourself")
	ErrRequestNotPending    = InvalidArg("friend request is not pending")
	ErrNotRequestRecipient  = Forbidden("only the recipient can accept this request")
	ErrNotMessageSender     = Forbidden("only the sender can delete this message")
	ErrMessageNotFound      = NotFound("message not found")
	ErrInvalidCredential    = Unauthorized("invalid or expired token")
	ErrRevokedCredential    = Unauthorized("token has been revoked")
)

func ErrPersistence(cause error) error {
	return Wrap(CodeInternal, "persistence failure", cause)
}
