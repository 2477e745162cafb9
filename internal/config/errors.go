package config

import "errors"

// ErrCredentialMissing marks a config build that resolved to a
// provider whose API key preference is blank. It is raised before any
// network activity.
var ErrCredentialMissing = errors.New("provider credential missing")
