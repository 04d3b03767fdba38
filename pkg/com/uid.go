package com

import "github.com/rs/xid"

// NewId returns a new unique string id.
func NewId() string { return xid.New().String() }
