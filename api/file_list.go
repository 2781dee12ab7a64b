package api

import (
	"net/http"
	"websync/sync-api/internal/index"
	"websync/sync-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type fileEntry struct {
	model.File
	Owner string `json:"owner"`
	// Why the requester can see this file: own, shared, public or admin_view
	Type string `json:"type"`
}

// FileList returns every file visible to the requester: owned, shared with
// them, public, and for admins everything else too.
func (a *API) FileList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	files, err := index.ListVisibleTo(a.DB, user)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list visible files", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	sharedIDs := make(map[uint]bool)
	ownerEmails := make(map[string]string)

	if len(files) > 0 {
		var ids []uint

		err = a.DB.
			Model(model.FileShare{}).
			Where("user_id = ?", user.ID).
			Pluck("file_id", &ids).
			Error
		if err != nil {
			zap.L().Error("Failed to resolve share grants", zap.Error(err), zap.String("requestID", requestID))
		}

		for _, id := range ids {
			sharedIDs[id] = true
		}

		var owners []model.User

		ownerIDs := make([]string, 0, len(files))
		for _, f := range files {
			ownerIDs = append(ownerIDs, f.OwnerID)
		}

		err = a.DB.Where("id IN ?", ownerIDs).Find(&owners).Error
		if err != nil {
			zap.L().Error("Failed to resolve file owners", zap.Error(err), zap.String("requestID", requestID))
		}

		for _, o := range owners {
			ownerEmails[o.ID] = o.Email
		}
	}

	entries := make([]fileEntry, 0, len(files))

	for _, f := range files {
		kind := "admin_view"

		switch {
		case f.OwnerID == user.ID:
			kind = "own"
		case sharedIDs[f.ID]:
			kind = "shared"
		case f.Public:
			kind = "public"
		}

		owner := ownerEmails[f.OwnerID]
		if owner == "" {
			owner = "Unknown"
		}

		entries = append(entries, fileEntry{File: f, Owner: owner, Type: kind})
	}

	c.JSON(http.StatusOK, entries)
}
