package storage

import (
	"path"
	"strings"
)

// UserPrefix is the key prefix holding every object of one user
func UserPrefix(root, publicID string) string {
	return path.Join(strings.Trim(root, "/"), publicID) + "/"
}

// UploadedPictureKey is the fixed key of a user-uploaded picture. The key
// does not depend on the image format, so a new upload always replaces the
// previous one; the format travels as the object's content type.
func UploadedPictureKey(root, publicID string) string {
	return UserPrefix(root, publicID) + "picture"
}

// ProfileImageKey is the fixed key of a user's generated profile image
func ProfileImageKey(root, publicID string) string {
	return UserPrefix(root, publicID) + "profile.png"
}
