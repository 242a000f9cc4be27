package models

// User represents a registered account
type User struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	Password  string  `json:"-"`
	Name      string  `json:"name"`
	Age       int     `json:"age"`
	Bio       string  `json:"bio"`
	Photo     *string `json:"photo"`
	IsAdmin   bool    `json:"is_admin"`
	PushToken *string `json:"-"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

// Candidate is the public card shown while swiping
type Candidate struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Age   int     `json:"age"`
	Bio   string  `json:"bio"`
	Photo *string `json:"photo"`
}

// Swipe represents a like/pass decision by one user about another
type Swipe struct {
	ID           int64 `json:"id"`
	UserID       int64 `json:"user_id"`
	TargetUserID int64 `json:"target_user_id"`
	IsLike       bool  `json:"is_like"`
	CreatedAt    int64 `json:"created_at"`
}

// Match represents a mutual like. User1ID is always the smaller id.
type Match struct {
	ID        int64 `json:"id"`
	User1ID   int64 `json:"user1_id"`
	User2ID   int64 `json:"user2_id"`
	CreatedAt int64 `json:"created_at"`
}

// HasUser reports whether userID takes part in the match
func (m *Match) HasUser(userID int64) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// PartnerOf returns the other participant
func (m *Match) PartnerOf(userID int64) (int64, bool) {
	switch userID {
	case m.User1ID:
		return m.User2ID, true
	case m.User2ID:
		return m.User1ID, true
	}
	return 0, false
}

// MatchSummary is a match as seen by one participant
type MatchSummary struct {
	MatchID   int64   `json:"match_id"`
	UserID    int64   `json:"user_id"`
	Name      string  `json:"name"`
	Age       int     `json:"age"`
	Bio       string  `json:"bio"`
	Photo     *string `json:"photo"`
	CreatedAt int64   `json:"created_at"`
}

// Message represents a chat message inside a match
type Message struct {
	ID        int64  `json:"id"`
	MatchID   int64  `json:"match_id"`
	SenderID  int64  `json:"sender_id"`
	Content   string `json:"content"`
	IsRead    bool   `json:"is_read"`
	IsDeleted bool   `json:"is_deleted"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// UnlimitedUses marks an invite code without a usage quota
const UnlimitedUses = -1

// InviteCode gates registration
type InviteCode struct {
	ID            int64   `json:"id"`
	Code          string  `json:"code"`
	IsUsed        bool    `json:"is_used"`
	UsedBy        *int64  `json:"used_by"`
	CreatedBy     int64   `json:"created_by"`
	CreatedByName *string `json:"created_by_name,omitempty"`
	MaxUses       int     `json:"max_uses"`
	CurrentUses   int     `json:"current_uses"`
	CreatedAt     int64   `json:"created_at"`
	UsedAt        *int64  `json:"used_at"`
	ExpiresAt     *int64  `json:"expires_at"`
}

// IsExpired reports whether the code has expired at now (epoch seconds)
func (ic *InviteCode) IsExpired(now int64) bool {
	return ic.ExpiresAt != nil && *ic.ExpiresAt <= now
}

// IsExhausted reports whether the usage quota is spent
func (ic *InviteCode) IsExhausted() bool {
	return ic.MaxUses != UnlimitedUses && ic.CurrentUses >= ic.MaxUses
}

// ValidAt reports whether the code can still be redeemed at now
func (ic *InviteCode) ValidAt(now int64) bool {
	return !ic.IsExpired(now) && !ic.IsExhausted()
}

// Stats holds admin dashboard counters
type Stats struct {
	TotalUsers       int `json:"totalUsers"`
	TotalMatches     int `json:"totalMatches"`
	TotalMessages    int `json:"totalMessages"`
	TotalInviteCodes int `json:"totalInviteCodes"`
	UsedInviteCodes  int `json:"usedInviteCodes"`
}
