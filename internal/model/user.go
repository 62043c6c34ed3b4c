package model

import "github.com/matheus3301/chatsync/internal/store"

// UserProfile is the public part of a users document.
type UserProfile struct {
	ID                  string
	Name                string
	Image               string
	Email               string
	FCMToken            string
	Available           bool
	OnlineStatusVisible bool
}

// DisplayName falls back to the id when no name is set.
func (p UserProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// Fields maps p to its users document.
func (p UserProfile) Fields() map[string]any {
	availability := 0
	if p.Available {
		availability = 1
	}
	return map[string]any{
		"name":                  p.Name,
		"image":                 p.Image,
		"email":                 p.Email,
		"fcmToken":              p.FCMToken,
		"availability":          availability,
		"online_status_visible": p.OnlineStatusVisible,
	}
}

// ProfileFromDoc reads a users document.
func ProfileFromDoc(d store.Doc) UserProfile {
	return UserProfile{
		ID:                  d.ID,
		Name:                d.String("name"),
		Image:               d.String("image"),
		Email:               d.String("email"),
		FCMToken:            d.String("fcmToken"),
		Available:           d.Int64("availability") == 1,
		OnlineStatusVisible: d.Bool("online_status_visible"),
	}
}

// UserRelationship is owner's directed view of other.
type UserRelationship struct {
	OwnerID     string
	OtherID     string
	Blocked     bool
	Muted       bool
	Nickname    string
	LastUpdated int64
}

// RelationshipFromDoc reads a user_relationships document.
func RelationshipFromDoc(d store.Doc) UserRelationship {
	return UserRelationship{
		OwnerID:     d.String("userId"),
		OtherID:     d.String("otherUserId"),
		Blocked:     d.Bool("blocked"),
		Muted:       d.Bool("muted"),
		Nickname:    d.String("nickname"),
		LastUpdated: d.Int64("lastUpdated"),
	}
}
