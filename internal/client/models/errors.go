package models

import "errors"

var ErrNoContent = errors.New("file has no content source")
