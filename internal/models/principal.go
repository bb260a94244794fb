package models

type PrincipalKind string

const (
	PrincipalUser  PrincipalKind = "user"
	PrincipalGuest PrincipalKind = "guest"
)

// Principal is the caller identity resolved from a player token. It is
// a tagged union: user principals carry UserID, guest principals carry
// the member/room binding they were issued for. Code accepting a
// Principal must branch on Kind and never assume one shape.
type Principal struct {
	Kind        PrincipalKind
	UserID      string
	MemberID    string
	RoomID      string
	DisplayName string
}

// UserPrincipal builds a registered-user principal.
func UserPrincipal(userID string) Principal {
	return Principal{Kind: PrincipalUser, UserID: userID}
}

// GuestPrincipal builds a room-scoped guest principal.
func GuestPrincipal(memberID, roomID, displayName string) Principal {
	return Principal{Kind: PrincipalGuest, MemberID: memberID, RoomID: roomID, DisplayName: displayName}
}
