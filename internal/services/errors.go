package services

import (
	"net/http"

	apierrors "metrolog/internal/errors"
)

// Service errors
var (
	ErrNoSnapshotStore = apierrors.New(http.StatusServiceUnavailable, apierrors.CodeServiceUnavailable, "snapshot storage is not configured")
	ErrUnknownFormat   = apierrors.New(http.StatusBadRequest, apierrors.CodeInvalidParameter, "unknown export format")
)
