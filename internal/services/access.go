package services

import "github.com/01moynul/bashrometer-golang/internal/models"

// CanModify reports whether caller may change or delete a record owned by ownerID.
func CanModify(caller *models.Identity, ownerID int64) bool {
	if caller == nil {
		return false
	}
	return caller.IsAdmin() || caller.UserID == ownerID
}
