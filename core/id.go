package core

import (
	"github.com/google/uuid"
	"github.com/rs/xid"

	"pkt.systems/dropterm/schema"
)

func newRunID() schema.RunID {
	return schema.RunID(xid.New().String())
}

func newWindowID() schema.WindowID {
	return schema.WindowID(uuid.NewString())
}
