package sharing

import "time"

// ItemType is the kind of item a file index row or share refers to.
type ItemType string

const (
	ItemTypeFile   ItemType = "file"
	ItemTypeFolder ItemType = "folder"
)

// IsFileOrFolder reports whether t names an item that lives in the file index.
func (t ItemType) IsFileOrFolder() bool {
	return t == ItemTypeFile || t == ItemTypeFolder
}

// Share permission bits, as stored in share.permissions.
const (
	PermissionRead   int64 = 1
	PermissionUpdate int64 = 2
	PermissionCreate int64 = 4
	PermissionDelete int64 = 8
	PermissionShare  int64 = 16
)

// Share types, as stored in share.share_type.
const (
	ShareTypeUser  int64 = 0
	ShareTypeGroup int64 = 1
	ShareTypeLink  int64 = 3
)

// DirectShareQuery selects the shares of one file made by one user.
type DirectShareQuery struct {
	ItemType   ItemType
	FileSource int64
	Owner      string

	// ReshareableOnly limits results to shares carrying PermissionShare.
	ReshareableOnly bool

	// ExcludeOwner drops shares whose recipient is Owner.
	ExcludeOwner bool
}

// PendingDeletion correlates a path with the fileid it referenced when its
// deletion began.
type PendingDeletion struct {
	Token     string
	Path      string
	FileID    int64
	CreatedAt time.Time
}

// ShareEvent describes a share that was just created or modified.
type ShareEvent struct {
	ItemType   ItemType
	FileSource int64
	Owner      string

	// Actor is the user performing the share. It stands in for Owner when
	// Owner is empty.
	Actor string
}
