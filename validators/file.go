package validators

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/spf13/viper"
)

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrFileNameTooLong = errors.New("file name is too long")
	ErrFileEmpty       = errors.New("file is empty")
	ErrNoFile          = errors.New("no file provided")
)

const maxFileNameSize = 255

// FileValidator checks the cheap upload preconditions before any bytes hit
// the disk. Quota and name collisions are checked later, inside the upload
// transaction.
func FileValidator(fh *multipart.FileHeader) (int, error) {
	if fh == nil {
		return http.StatusBadRequest, ErrNoFile
	}

	if len(fh.Filename) > maxFileNameSize {
		return http.StatusBadRequest, ErrFileNameTooLong
	}

	if fh.Size <= 0 {
		return http.StatusBadRequest, ErrFileEmpty
	}

	if fh.Size > viper.GetInt64("upload.max_size") {
		return http.StatusRequestEntityTooLarge, ErrFileTooLarge
	}

	return http.StatusOK, nil
}
