package model

// FileShare grants one user read access to one file. Unique per
// (file, user) pair; cascade-deleted with the file and with either the
// grantee or the granter.
type FileShare struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID    uint   `gorm:"uniqueIndex:idx_file_share_pair;not null" json:"file_id"`
	UserID    string `gorm:"uniqueIndex:idx_file_share_pair;not null" json:"user_id"`
	CreatedBy string `gorm:"not null" json:"created_by"`
	CreatedAt int64  `gorm:"not null" json:"created_at"`
}
