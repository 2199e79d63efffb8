package domain

// Kind names the event a notification is delivered as.
type Kind string

const (
	KindLike    Kind = "like"
	KindComment Kind = "comment"
)

func (k Kind) String() string { return string(k) }

// Notification is a single event addressed to one user. It is built once by a
// producer and never mutated; delivery is attempted at most once.
type Notification struct {
	targetUserID string
	kind         Kind
	payload      any
}

func NewNotification(targetUserID string, kind Kind, payload any) Notification {
	return Notification{targetUserID: targetUserID, kind: kind, payload: payload}
}

// NewLikeNotification tells the post owner that like was added to their post.
func NewLikeNotification(targetUserID string, like Like) Notification {
	return NewNotification(targetUserID, KindLike, like)
}

// NewCommentNotification tells the post owner that comment was added to their post.
func NewCommentNotification(targetUserID string, comment Comment) Notification {
	return NewNotification(targetUserID, KindComment, comment)
}

func (n Notification) TargetUserID() string { return n.targetUserID }
func (n Notification) Kind() Kind           { return n.kind }
func (n Notification) Payload() any         { return n.payload }
