package model

const (
	ClipboardText  = "text"
	ClipboardCode  = "code"
	ClipboardImage = "image"
)

type ClipboardItem struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind string `gorm:"not null" json:"type"`

	// Content holds the base64 ciphertext for text/code items. Image items
	// store their ciphertext in a sidecar file instead and keep its name in
	// ImagePath.
	Content   string `json:"-"`
	ImagePath string `json:"-"`

	OwnerID   string `gorm:"not null" json:"-"`
	CreatedAt int64  `gorm:"not null" json:"created_at"`
}
