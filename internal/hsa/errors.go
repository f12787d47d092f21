package hsa

import "errors"

var errShortPacket = errors.New("hsa: packet buffer shorter than 64 bytes")
