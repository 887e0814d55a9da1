package model

// Identity is who a connection speaks for. ShopSlug is set only for shop accounts.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"username"`
	ShopSlug    string `json:"shopSlug,omitempty"`
}

// PresenceStatus is the connectivity state broadcast by the registry.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "ONLINE"
	StatusOffline PresenceStatus = "OFFLINE"
)

// PresenceEntry records that an identity has at least one open registry connection.
type PresenceEntry struct {
	UserID   string         `json:"userId"`
	Username string         `json:"username"`
	Status   PresenceStatus `json:"status"`
}

// Shop is the slice of the relational shop record the chat layer needs.
type Shop struct {
	Slug        string `json:"slug"`
	OwnerUserID string `json:"ownerUserId"`
	Name        string `json:"name"`
}
