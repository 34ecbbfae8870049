package errors

import "fmt"

var (
	ErrEmptyDraft           = fmt.Errorf("draft has neither text nor image")
	ErrEmptyMessage         = fmt.Errorf("message has neither text nor image reference")
	ErrUploadFailed         = fmt.Errorf("image upload failed")
	ErrStoreUnavailable     = fmt.Errorf("remote log unreachable")
	ErrAssistantUnavailable = fmt.Errorf("assistant completion service unavailable")
	ErrSelfConversation     = fmt.Errorf("cannot open a conversation with yourself")
	ErrNameTaken            = fmt.Errorf("display name already taken")
	ErrUnknownParticipant   = fmt.Errorf("no such participant")
)
