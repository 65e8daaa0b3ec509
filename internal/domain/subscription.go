package domain

// Subscription is a browser Web Push registration belonging to the site owner.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	P256DH   string `json:"p256dh"`
	Auth     string `json:"auth"`
	Label    string `json:"label,omitempty"`
}
