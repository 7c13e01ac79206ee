package domain

// Account identifies one connected mailbox. The credential itself lives in
// the token store; the core only ever sees the ID.
type Account struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Connected bool   `json:"connected"`
}

// BulkAction is a mutation applied to every scanned message of a target.
type BulkAction string

const (
	ActionTrash BulkAction = "trash"
	ActionSpam  BulkAction = "spam"
)

// Valid reports whether the action is one the coordinator knows.
func (a BulkAction) Valid() bool {
	return a == ActionTrash || a == ActionSpam
}

// ActionTarget selects the messages a bulk action applies to: all messages of
// one sender, or of every sender under a domain. Exactly one of SenderEmail
// and Domain is set.
type ActionTarget struct {
	AccountID   string `json:"account_id"`
	SenderEmail string `json:"sender_email,omitempty"`
	Domain      string `json:"domain,omitempty"`
}

// ActionResult reports a bulk mutation per ID. Failed IDs stay in their
// groups so a retry targets exactly them.
type ActionResult struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}
