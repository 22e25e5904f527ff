package services

import "time"

const (
	timeout = 3 * time.Second
	tick    = 5 * time.Millisecond
)
