package model

// Provenance marks how a file record entered the index. Watcher-discovered
// files get attributed to the configured system owner and keep this tag so
// operators can reattribute them later.
const (
	ProvenanceAPI     = "api"
	ProvenanceWatcher = "watcher"
)

type File struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	// Path is relative to the sync root and doubles as the physical file
	// name. Globally unique; ownership is fixed at create time and survives
	// any later watcher-driven update.
	Path string `gorm:"uniqueIndex;not null" json:"path"`

	Hash string `json:"hash"` // sha256 hex of the file bytes at last observed state
	Size int64  `json:"size"`
	// Unix millisecond timestamps
	LastModified int64 `json:"modified"`
	CreatedAt    int64 `gorm:"not null" json:"created_at"`

	OwnerID    string `gorm:"not null" json:"-"`
	Public     bool   `gorm:"default:false" json:"is_public"`
	Provenance string `gorm:"default:api" json:"-"`
}
